package report

import (
	"fmt"
	"strconv"
)

// PolicyKind selects the way Synchronizer discovers the extent of the report
// index space.
type PolicyKind uint8

const (
	// KindBoundedCount reads the report count first and then every index
	// below it.
	KindBoundedCount PolicyKind = iota
	// KindProbing reads indices one by one until the first failure.
	KindProbing
)

// Policy names accepted by ParsePolicy.
const (
	PolicyNameBounded = "bounded"
	PolicyNameProbing = "probing"
)

// Policy is an enumeration policy. Zero value is BoundedCount starting at 0.
type Policy struct {
	kind   PolicyKind
	origin uint64
}

// BoundedCount returns policy reading indices [origin, count) where count is
// requested from the contract once per synchronization.
func BoundedCount(origin uint64) Policy {
	return Policy{kind: KindBoundedCount, origin: origin}
}

// Probing returns policy reading indices starting from origin until the first
// read failure.
//
// Probing can't distinguish the end of the list from a read fault happening in
// the middle of it: both stop the enumeration. Prefer BoundedCount whenever the
// contract provides a report count.
func Probing(origin uint64) Policy {
	return Policy{kind: KindProbing, origin: origin}
}

// ParsePolicy returns Policy by its name. Empty name means BoundedCount.
func ParsePolicy(name string, origin uint64) (Policy, error) {
	switch name {
	case "", PolicyNameBounded:
		return BoundedCount(origin), nil
	case PolicyNameProbing:
		return Probing(origin), nil
	default:
		return Policy{}, fmt.Errorf("unknown enumeration policy %q", name)
	}
}

// Kind returns policy kind.
func (p Policy) Kind() PolicyKind {
	return p.kind
}

// Origin returns the first index to read.
func (p Policy) Origin() uint64 {
	return p.origin
}

// Name returns policy name as accepted by ParsePolicy.
func (p Policy) Name() string {
	if p.kind == KindProbing {
		return PolicyNameProbing
	}

	return PolicyNameBounded
}

// String implements fmt.Stringer.
func (p Policy) String() string {
	return p.Name() + "@" + strconv.FormatUint(p.origin, 10)
}
