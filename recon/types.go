package recon

// LiveSource is one candidate source of section 3: a surviving internal
// column and the peer that holds it. The engine may hold more live
// sources than min_required_sources strictly needs, as spares for
// scheduleNewRead to route around stragglers and failures (section 4.2.6,
// boundary scenario 4).
type LiveSource struct {
	Index int
	Peer  string
}

// TargetSpec is one requested target of section 3: the column to rebuild,
// the peer to ship it to, and its storage class.
type TargetSpec struct {
	Index        int
	Peer         string
	StorageClass string
}
