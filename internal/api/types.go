package api

import (
	"github.com/civicwatch/incident-reports/report"
)

// Report is a JSON view of report.Record. Reward is a decimal string in the
// display unit.
type Report struct {
	ID           uint64 `json:"id" yaml:"id"`
	Reporter     string `json:"reporter" yaml:"reporter"`
	Description  string `json:"description" yaml:"description"`
	Location     string `json:"location" yaml:"location"`
	EvidenceLink string `json:"evidenceLink" yaml:"evidenceLink"`
	Verified     bool   `json:"verified" yaml:"verified"`
	Reward       string `json:"reward" yaml:"reward"`
}

// Failure is a JSON view of report.ReadFailure.
type Failure struct {
	ID    uint64 `json:"id" yaml:"id"`
	Kind  string `json:"kind" yaml:"kind"`
	Error string `json:"error" yaml:"error"`
}

// SyncResult is the diagnostic view of a synchronization.
type SyncResult struct {
	Policy    string    `json:"policy" yaml:"policy"`
	Reports   []Report  `json:"reports" yaml:"reports"`
	Failures  []Failure `json:"failures" yaml:"failures"`
	Truncated bool      `json:"truncated" yaml:"truncated"`
}

// Owner is the response of the owner route.
type Owner struct {
	Owner string `json:"owner"`
}

// ErrorResponse is the body of failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewReports converts records to their JSON views. The result is never nil.
func NewReports(recs []report.Record, u report.Units) []Report {
	res := make([]Report, 0, len(recs))

	for i := range recs {
		res = append(res, Report{
			ID:           recs[i].ID,
			Reporter:     recs[i].Reporter,
			Description:  recs[i].Description,
			Location:     recs[i].Location,
			EvidenceLink: recs[i].EvidenceLink,
			Verified:     recs[i].Verified,
			Reward:       u.Format(recs[i].Reward),
		})
	}

	return res
}

// NewSyncResult converts a synchronization result to its JSON view.
func NewSyncResult(p report.Policy, snap report.Snapshot, u report.Units) SyncResult {
	res := SyncResult{
		Policy:    p.String(),
		Reports:   NewReports(snap.Records, u),
		Failures:  make([]Failure, 0, len(snap.Failures)),
		Truncated: snap.Truncated(p),
	}

	for i := range snap.Failures {
		res.Failures = append(res.Failures, Failure{
			ID:    snap.Failures[i].Index,
			Kind:  snap.Failures[i].Kind.String(),
			Error: snap.Failures[i].Err.Error(),
		})
	}

	return res
}
