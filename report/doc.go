/*
Package report enumerates incident reports stored in a smart contract.

The contract is reached through a ReadPort: every report lives at a numeric
index and can be read individually. Synchronizer walks that index space under
one of two policies and returns an ordered Snapshot of the records along with
the indices that could not be read.

# Enumeration policies

BoundedCount asks the contract for the number of reports first and then reads
every index in [origin, count). A failing index is recorded and skipped, the
count stays authoritative.

Probing is meant for contracts without a count accessor. It reads from origin
upwards and stops at the first failure. A failure classified as ErrNotFound is
the normal end of the list. Any other failure also stops the walk, since the
policy cannot tell whether more reports follow, but the failure is kept with
FailureTransient kind so the caller can see that the list may be truncated.

# Amounts

Rewards are kept in the chain base unit as arbitrary precision integers. Units
converts them to decimal strings in the display unit and back without losing
precision.
*/
package report
