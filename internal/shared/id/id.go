// Package id provides ULID generation for correlating scans and restores in logs.
//
// IDs are lexicographically sortable by creation time and carry a short
// type prefix (scan_*, rst_*, conn_*, trc_*) so log lines are readable at a glance.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ScanID identifies one scan cycle
type ScanID string

// RestoreID identifies one restore operation
type RestoreID string

// ConnID identifies one extension bridge connection
type ConnID string

// TraceID correlates the log lines of one HTTP request or bridge event
type TraceID string

const (
	ScanPrefix    = "scan"
	RestorePrefix = "rst"
	ConnPrefix    = "conn"
	TracePrefix   = "trc"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewScanID generates a new scan ID
func NewScanID() ScanID {
	return ScanID(Default().GenerateWithPrefix(ScanPrefix))
}

// NewRestoreID generates a new restore ID
func NewRestoreID() RestoreID {
	return RestoreID(Default().GenerateWithPrefix(RestorePrefix))
}

// NewConnID generates a new bridge connection ID
func NewConnID() ConnID {
	return ConnID(Default().GenerateWithPrefix(ConnPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

func (id ScanID) String() string    { return string(id) }
func (id TraceID) String() string   { return string(id) }
func (id RestoreID) String() string { return string(id) }
func (id ConnID) String() string    { return string(id) }
