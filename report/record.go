package report

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNotFound is returned by ReadPort implementations when the requested
	// index does not exist in the contract.
	ErrNotFound = errors.New("report not found")

	// ErrCountUnavailable is returned by Synchronizer when BoundedCount policy
	// is selected but the number of reports can't be obtained.
	ErrCountUnavailable = errors.New("report count unavailable")

	// ErrTransactionFailed is returned by Verifier implementations when the
	// verification transaction can't be sent or is not accepted by the chain.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Record is a snapshot of a single report read from the contract.
type Record struct {
	ID           uint64
	Reporter     string
	Description  string
	Location     string
	EvidenceLink string
	Verified     bool
	// Reward in the chain base unit. Never nil for records returned by
	// Synchronizer.
	Reward *big.Int
}

// ReadPort provides read access to the reports stored in the contract.
//
// GetReport must return an error wrapping ErrNotFound when there is no report
// at the given index. Any other error is treated as a read fault.
type ReadPort interface {
	GetReport(ctx context.Context, index uint64) (Record, error)
}

// Counter is implemented by ReadPort's able to tell the number of reports.
type Counter interface {
	ReportCount(ctx context.Context) (uint64, error)
}

// OwnerReader is implemented by ReadPort's able to tell the contract owner.
type OwnerReader interface {
	Owner(ctx context.Context) (string, error)
}

// Verifier marks the report verified on-chain attaching the reward given in the
// chain base unit. It returns the transaction hash once the transaction is
// accepted.
type Verifier interface {
	Verify(ctx context.Context, id uint64, reward *big.Int) (string, error)
}

// FailureKind classifies a ReadFailure.
type FailureKind uint8

const (
	// FailureTransient is any read fault other than a missing index.
	FailureTransient FailureKind = iota
	// FailureNotFound means there is no report at the index.
	FailureNotFound
)

// String implements fmt.Stringer.
func (k FailureKind) String() string {
	switch k {
	case FailureNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// ReadFailure describes an index that could not be read during a
// synchronization.
type ReadFailure struct {
	Index uint64
	Kind  FailureKind
	Err   error
}

func newReadFailure(index uint64, err error) ReadFailure {
	kind := FailureTransient
	if errors.Is(err, ErrNotFound) {
		kind = FailureNotFound
	}

	return ReadFailure{Index: index, Kind: kind, Err: err}
}

func (x ReadFailure) Error() string {
	return fmt.Sprintf("read report #%d: %v", x.Index, x.Err)
}

func (x ReadFailure) Unwrap() error {
	return x.Err
}

// Snapshot is the result of a single synchronization pass. Records are
// ordered by ascending ID, Failures by ascending index.
type Snapshot struct {
	Records  []Record
	Failures []ReadFailure
}

// Skipped returns failures of indices that hold no readable report although
// they belong to the list. The NotFound failure ending a Probing pass marks the
// end of the list and is not included.
func (x Snapshot) Skipped(p Policy) []ReadFailure {
	n := len(x.Failures)
	if p.Kind() == KindProbing && n > 0 && x.Failures[n-1].Kind == FailureNotFound {
		return x.Failures[:n-1]
	}

	return x.Failures
}

// Truncated reports whether the snapshot may miss reports because of a read
// fault that isn't a missing index.
func (x Snapshot) Truncated(p Policy) bool {
	if p.Kind() != KindProbing || len(x.Failures) == 0 {
		return false
	}

	return x.Failures[len(x.Failures)-1].Kind == FailureTransient
}
