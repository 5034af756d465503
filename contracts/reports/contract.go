package reports

import (
	"github.com/civicwatch/incident-reports/common"
	"github.com/civicwatch/incident-reports/contracts/reports/reportsconst"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/convert"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Report is a single incident report.
type Report struct {
	Reporter     interop.Hash160
	Description  string
	Location     string
	EvidenceLink string
	Verified     bool
	// Reward in GAS fractions, zero until verified.
	Reward int
}

const (
	ownerKey     = 'o'
	countKey     = 'c'
	reportPrefix = 'r'
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	var owner interop.Hash160
	if data != nil {
		owner = data.(interop.Hash160)
	}

	if len(owner) == 0 {
		tx := runtime.GetScriptContainer()
		owner = tx.Sender
	}

	if len(owner) != interop.Hash160Len {
		panic("invalid owner")
	}

	ctx := storage.GetContext()
	storage.Put(ctx, ownerKey, owner)

	runtime.Log("reports contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the contract owner.
func Update(script []byte, manifest []byte, data any) {
	ctx := storage.GetReadOnlyContext()
	common.CheckOwnerWitness(getOwner(ctx))

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("reports contract updated")
}

// SubmitReport stores a new report and returns its ID. Transaction must be
// witnessed by the reporter.
//
// Produces ReportSubmitted notification.
func SubmitReport(reporter interop.Hash160, description, location, evidenceLink string) int {
	if len(reporter) != interop.Hash160Len {
		panic(reportsconst.ErrInvalidReporter)
	}

	common.CheckWitness(reporter)

	if len(description) == 0 {
		panic(reportsconst.ErrEmptyDescription)
	}

	ctx := storage.GetContext()

	id := common.GetInt(ctx, countKey)
	common.SetSerialized(ctx, reportKey(id), Report{
		Reporter:     reporter,
		Description:  description,
		Location:     location,
		EvidenceLink: evidenceLink,
	})
	storage.Put(ctx, countKey, id+1)

	runtime.Notify("ReportSubmitted", id, reporter)

	return id
}

// GetReport returns report by its ID. It panics with "report not found"
// message if there is no such report.
func GetReport(id int) Report {
	ctx := storage.GetReadOnlyContext()
	return getReport(ctx, id)
}

// ReportCount returns the number of submitted reports. Valid IDs are
// [0, ReportCount()).
func ReportCount() int {
	ctx := storage.GetReadOnlyContext()
	return common.GetInt(ctx, countKey)
}

// Owner returns the account allowed to verify reports.
func Owner() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return getOwner(ctx)
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract. It
// verifies the report with ID passed in data and forwards the whole amount
// to the reporter as a reward. Only the contract owner can pay rewards, each
// report can be verified once.
//
// Produces ReportVerified notification.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(gas.Hash) {
		panic(reportsconst.ErrOnlyGAS)
	}

	ctx := storage.GetContext()

	if !from.Equals(getOwner(ctx)) {
		panic(reportsconst.ErrNotOwner)
	}

	if amount <= 0 {
		panic(reportsconst.ErrInvalidReward)
	}

	if data == nil {
		panic(reportsconst.ErrMissingReportID)
	}

	id := data.(int)
	r := getReport(ctx, id)
	if r.Verified {
		panic(reportsconst.ErrAlreadyVerified)
	}

	r.Verified = true
	r.Reward = amount
	common.SetSerialized(ctx, reportKey(id), r)

	if !gas.Transfer(runtime.GetExecutingScriptHash(), r.Reporter, amount, nil) {
		panic("can't transfer reward to the reporter")
	}

	runtime.Notify("ReportVerified", id, amount)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func getOwner(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, ownerKey).(interop.Hash160)
}

func getReport(ctx storage.Context, id int) Report {
	if id < 0 || id >= common.GetInt(ctx, countKey) {
		panic(reportsconst.ErrReportNotFound)
	}

	data := storage.Get(ctx, reportKey(id))
	if data == nil {
		panic(reportsconst.ErrReportNotFound)
	}

	return std.Deserialize(data.([]byte)).(Report)
}

func reportKey(id int) []byte {
	return append([]byte{reportPrefix}, convert.ToBytes(id)...)
}
