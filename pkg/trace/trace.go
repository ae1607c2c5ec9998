// Package trace writes an optional, machine-consumption-only CBOR stream
// of VM step events, tagged with a per-run UUID. It is pure observability:
// nothing in pkg/bytecode depends on this package, and the absence of a
// tracer never changes a run's result.
package trace

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Step is one recorded VM opcode execution.
type Step struct {
	RunID      string `cbor:"run_id"`
	Seq        uint64 `cbor:"seq"`
	IP         uint32 `cbor:"ip"`
	Opcode     string `cbor:"opcode"`
	Value      string `cbor:"value"`
	Failed     bool   `cbor:"failed"`
	StackDepth int    `cbor:"stack_depth"`
}

// Sink appends CBOR-encoded Step records to an underlying writer, one
// run's worth of steps tagged with a single UUID.
type Sink struct {
	w     io.Writer
	runID string
	seq   uint64
}

// NewSink wraps w, minting a fresh UUID to correlate every Step written
// through this Sink with the run that produced it.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w, runID: uuid.New().String()}
}

// RunID returns the UUID this sink tags every step with.
func (s *Sink) RunID() string {
	return s.runID
}

// Step satisfies pkg/bytecode.Tracer: it synchronously encodes and
// appends one record. Encoding or write failures are swallowed rather
// than propagated, since tracing must never change a program's result.
func (s *Sink) Step(ip uint32, opcode string, value string, failed bool, stackDepth int) {
	s.seq++
	record := Step{
		RunID:      s.runID,
		Seq:        s.seq,
		IP:         ip,
		Opcode:     opcode,
		Value:      value,
		Failed:     failed,
		StackDepth: stackDepth,
	}

	encoded, err := cborEncMode.Marshal(&record)
	if err != nil {
		return
	}
	s.w.Write(encoded)
}
