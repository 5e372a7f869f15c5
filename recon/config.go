package recon

import (
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/IdleFellow/stripedrecon/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the external configuration knobs of section 6, plus the
// ambient fields a runnable process needs (log verbosity, metrics bind
// address).
type Config struct {
	// reconstruction.striped-read.timeout-ms
	StripedReadTimeoutMS int64 `json:"reconstruction.striped-read.timeout-ms"`
	// reconstruction.striped-read.threads (Reader Pool max)
	ReaderThreads int `json:"reconstruction.striped-read.threads"`
	// reconstruction.striped-read.buffer-size (raw B)
	BufferSize int64 `json:"reconstruction.striped-read.buffer-size"`
	// reconstruction.striped-blk.threads (Task Pool max)
	TaskThreads int `json:"reconstruction.striped-blk.threads"`

	LogLevel    int    `json:"log-level"`
	MetricsAddr string `json:"metrics-addr"`
}

// DefaultConfig returns the node-global defaults referenced by section 6
// ("default: implementation's node-global default").
func DefaultConfig() Config {
	return Config{
		StripedReadTimeoutMS: 5000,
		ReaderThreads:        64,
		BufferSize:           64 * 1024,
		TaskThreads:          8,
		LogLevel:             0,
		MetricsAddr:          ":9645",
	}
}

// LoadConfig decodes a JSON config document, applying DefaultConfig for
// any zero-valued field left unset by the document.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(r)
	var overlay Config
	if err := dec.Decode(&overlay); err != nil {
		return cfg, cmn.Wrap(err, "decode config")
	}
	if overlay.StripedReadTimeoutMS != 0 {
		cfg.StripedReadTimeoutMS = overlay.StripedReadTimeoutMS
	}
	if overlay.ReaderThreads != 0 {
		cfg.ReaderThreads = overlay.ReaderThreads
	}
	if overlay.BufferSize != 0 {
		cfg.BufferSize = overlay.BufferSize
	}
	if overlay.TaskThreads != 0 {
		cfg.TaskThreads = overlay.TaskThreads
	}
	if overlay.LogLevel != 0 {
		cfg.LogLevel = overlay.LogLevel
	}
	if overlay.MetricsAddr != "" {
		cfg.MetricsAddr = overlay.MetricsAddr
	}
	return cfg, nil
}

// SliceReadTimeout is the configured slice-read timeout as a duration.
func (c Config) SliceReadTimeout() time.Duration {
	return time.Duration(c.StripedReadTimeoutMS) * time.Millisecond
}
