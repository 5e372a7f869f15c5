// Package peer implements the two network-facing adapters the engine
// depends on: the Remote Block Reader (section 4.4) and the Target
// Channel (section 4.5). Block access-token issuance and the
// authenticated-session handshake protocol are named external
// collaborators in section 1; this package depends on them through the
// narrow TokenSource interface below rather than implementing issuance
// itself.
package peer

// TokenSource supplies an opaque, already-scoped access token for a given
// internal block and intent (READ or WRITE). The real issuance and
// session-handshake protocol is out of scope (section 1); this is the
// interface the engine's adapters depend on instead.
type TokenSource interface {
	Token(blockID string, write bool) ([]byte, error)
}

// StaticTokenSource returns the same opaque token for every call. It
// stands in for the real access-token service in tests and in
// deployments where token refresh isn't wired yet.
type StaticTokenSource struct {
	Token_ []byte
}

func (s StaticTokenSource) Token(string, bool) ([]byte, error) { return s.Token_, nil }
