package order

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/IdleFellow/stripedrecon/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeBatch decodes one JSON-encoded Batch from r.
func DecodeBatch(r io.Reader) (Batch, error) {
	var b Batch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return b, cmn.Wrap(err, "decode command batch")
	}
	return b, nil
}

// DecodeCommand decodes a single JSON-encoded Command from r, for a
// newline-delimited stream of individual orders.
func DecodeCommand(r io.Reader) (Command, error) {
	var c Command
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return c, cmn.Wrap(err, "decode command")
	}
	return c, nil
}
