package common

import "github.com/nspcc-dev/neo-go/pkg/interop/native/std"

// Contract version is encoded as major*10^6 + minor*10^3 + patch and must match
// the VERSION file of the repository.
const (
	major = 0
	minor = 2
	patch = 0

	// Oldest deployed version the current code can be updated from.
	prevMajor = 0
	prevMinor = 1
	prevPatch = 0

	Version = major*1_000_000 + minor*1_000 + patch

	PrevVersion = prevMajor*1_000_000 + prevMinor*1_000 + prevPatch

	// ErrVersionMismatch is thrown by CheckVersion when the deployed contract is
	// too old to be updated in place.
	ErrVersionMismatch = "previous version mismatch"

	// ErrAlreadyUpdated is thrown by CheckVersion when the deployed contract
	// already runs the current version.
	ErrAlreadyUpdated = "contract is already of the latest version"
)

// CheckVersion panics unless the contract is updated from a version in
// [PrevVersion, Version).
func CheckVersion(from int) {
	if from < PrevVersion {
		panic(ErrVersionMismatch + ": expected >=" + std.Itoa(PrevVersion, 10))
	}
	if from == Version {
		panic(ErrAlreadyUpdated + ": " + std.Itoa(Version, 10))
	}
}

// AppendVersion appends version of the running contract to update data so the
// new code can check it in _deploy.
func AppendVersion(data any) []any {
	if data == nil {
		return []any{Version}
	}
	return append(data.([]any), Version)
}
