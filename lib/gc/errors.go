package gc

import "fmt"

// Invariants whose violation aborts the offending operation
const (
	ViolationDoubleRegistration = "double registration"
	ViolationRootCountOverflow  = "root count overflow"
	ViolationRootCountUnderflow = "root count underflow"
	ViolationEdgeToSwept        = "edge to swept record"
	ViolationUseAfterDrop       = "use of dropped handle"
	ViolationUseAfterSweep      = "use of swept record"
)

// InvariantViolation is the panic value used when the bookkeeping of the
// collector or of an ITraceable implementation is found to be broken.
// There is no recovery path: continuing would mean running on a corrupted
// registry or counter.
type InvariantViolation struct {
	Invariant string // one of the Violation* constants
	Type      string // type of the managed value
	RecordID  uint64 // id of the record the violation was detected on
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("gc: invariant violated: %s (type %s, record %d)", e.Invariant, e.Type, e.RecordID)
}

// violation logs and panics with an InvariantViolation for the given record
func violation(r *record, invariant string) {
	err := &InvariantViolation{
		Invariant: invariant,
		Type:      r.typeName,
		RecordID:  r.id,
	}
	log.Errorf("%v", err)
	panic(err)
}
