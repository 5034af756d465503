// Package reports contains RPC wrappers for incident Reports contract.
package reports

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Report is a contract-specific reports.Report type used by its methods.
type Report struct {
	Reporter     util.Uint160
	Description  string
	Location     string
	EvidenceLink string
	Verified     bool
	Reward       *big.Int
}

// ReportSubmittedEvent represents "ReportSubmitted" event emitted by the contract.
type ReportSubmittedEvent struct {
	ID       *big.Int
	Reporter util.Uint160
}

// ReportVerifiedEvent represents "ReportVerified" event emitted by the contract.
type ReportVerifiedEvent struct {
	ID     *big.Int
	Reward *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
	Sender() util.Uint160
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// GetReport invokes `getReport` method of contract.
func (c *ContractReader) GetReport(id *big.Int) (*Report, error) {
	return itemToReport(unwrap.Item(c.invoker.Call(c.hash, "getReport", id)))
}

// Owner invokes `owner` method of contract.
func (c *ContractReader) Owner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "owner"))
}

// ReportCount invokes `reportCount` method of contract.
func (c *ContractReader) ReportCount() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "reportCount"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// SubmitReport creates a transaction invoking `submitReport` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SubmitReport(reporter util.Uint160, description string, location string, evidenceLink string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "submitReport", reporter, description, location, evidenceLink)
}

// SubmitReportTransaction creates a transaction invoking `submitReport` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SubmitReportTransaction(reporter util.Uint160, description string, location string, evidenceLink string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "submitReport", reporter, description, location, evidenceLink)
}

// SubmitReportUnsigned creates a transaction invoking `submitReport` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SubmitReportUnsigned(reporter util.Uint160, description string, location string, evidenceLink string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "submitReport", nil, reporter, description, location, evidenceLink)
}

// Verify creates a transaction transferring reward in GAS fractions from the
// actor's account to the contract with report ID attached as payment data.
// The contract marks the report verified and forwards the reward to the
// reporter. This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Verify(id *big.Int, reward *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(gas.Hash, "transfer", c.actor.Sender(), c.hash, reward, id)
}

// VerifyTransaction creates a transaction paying the reward for the report
// with the given ID. This transaction is signed, but not sent to the network,
// instead it's returned to the caller.
func (c *Contract) VerifyTransaction(id *big.Int, reward *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(gas.Hash, "transfer", c.actor.Sender(), c.hash, reward, id)
}

// VerifyUnsigned creates a transaction paying the reward for the report with
// the given ID. This transaction is not signed, it's simply returned to the
// caller.
func (c *Contract) VerifyUnsigned(id *big.Int, reward *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(gas.Hash, "transfer", nil, c.actor.Sender(), c.hash, reward, id)
}

// itemToReport converts stack item into *Report.
func itemToReport(item stackitem.Item, err error) (*Report, error) {
	if err != nil {
		return nil, err
	}
	var res = new(Report)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of Report from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *Report) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 6 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	res.Reporter, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Reporter: %w", err)
	}

	index++
	res.Description, err = itemToUTF8String(arr[index])
	if err != nil {
		return fmt.Errorf("field Description: %w", err)
	}

	index++
	res.Location, err = itemToUTF8String(arr[index])
	if err != nil {
		return fmt.Errorf("field Location: %w", err)
	}

	index++
	res.EvidenceLink, err = itemToUTF8String(arr[index])
	if err != nil {
		return fmt.Errorf("field EvidenceLink: %w", err)
	}

	index++
	res.Verified, err = arr[index].TryBool()
	if err != nil {
		return fmt.Errorf("field Verified: %w", err)
	}

	index++
	res.Reward, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Reward: %w", err)
	}

	return nil
}

// ReportSubmittedEventsFromApplicationLog retrieves a set of all emitted events
// with "ReportSubmitted" name from the provided [result.ApplicationLog].
func ReportSubmittedEventsFromApplicationLog(log *result.ApplicationLog) ([]*ReportSubmittedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*ReportSubmittedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "ReportSubmitted" {
				continue
			}
			event := new(ReportSubmittedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize ReportSubmittedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to ReportSubmittedEvent or
// returns an error if it's not possible to do to so.
func (e *ReportSubmittedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.ID, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field ID: %w", err)
	}

	index++
	e.Reporter, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Reporter: %w", err)
	}

	return nil
}

// ReportVerifiedEventsFromApplicationLog retrieves a set of all emitted events
// with "ReportVerified" name from the provided [result.ApplicationLog].
func ReportVerifiedEventsFromApplicationLog(log *result.ApplicationLog) ([]*ReportVerifiedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*ReportVerifiedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "ReportVerified" {
				continue
			}
			event := new(ReportVerifiedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize ReportVerifiedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to ReportVerifiedEvent or
// returns an error if it's not possible to do to so.
func (e *ReportVerifiedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.ID, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field ID: %w", err)
	}

	index++
	e.Reward, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Reward: %w", err)
	}

	return nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, err
	}
	return u, nil
}

func itemToUTF8String(item stackitem.Item) (string, error) {
	b, err := item.TryBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("not a UTF-8 string")
	}
	return string(b), nil
}
