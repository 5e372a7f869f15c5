// Package order defines the reconstruction command batch of section 6
// ("Input command (per task)") and decodes it with json-iterator, mirroring
// the teacher's jsoniter usage for request bodies (ais/prxs3.go).
package order

// ExtendedBlock is the block group identity and total byte length of one
// reconstruction order.
type ExtendedBlock struct {
	PoolID  string `json:"pool_id"`
	BlockID string `json:"block_id"`
	Gen     int64  `json:"generation_stamp"`
	Length  int64  `json:"num_bytes"`
}

// ErasureCodingPolicy is (D, P, C).
type ErasureCodingPolicy struct {
	DataUnits   int   `json:"data_units"`
	ParityUnits int   `json:"parity_units"`
	CellSize    int64 `json:"cell_size"`
}

// Command is one reconstruction order: a block group, its policy, the
// live sources to read from, and the targets to rebuild and ship to.
type Command struct {
	ExtendedBlock       ExtendedBlock       `json:"extended_block"`
	ErasureCodingPolicy ErasureCodingPolicy `json:"erasure_coding_policy"`

	LiveBlockIndices []int    `json:"live_block_indices"`
	SourcePeers      []string `json:"source_peers"`

	TargetPeers          []string `json:"target_peers"`
	TargetStorageClasses []string `json:"target_storage_classes"`
	TargetIndices        []int    `json:"target_indices"`
}

// Batch is a batch of reconstruction orders delivered together, per
// section 4.1 ("Submit(batch of reconstruction orders)").
type Batch struct {
	Commands []Command `json:"commands"`
}
