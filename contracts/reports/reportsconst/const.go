package reportsconst

const (
	// ErrReportNotFound is thrown when there is no report with the requested ID.
	ErrReportNotFound = "report not found"

	// ErrAlreadyVerified is thrown on attempt to verify a report twice.
	ErrAlreadyVerified = "report is already verified"

	// ErrInvalidReporter is thrown when reporter is not a valid account.
	ErrInvalidReporter = "invalid reporter"

	// ErrEmptyDescription is thrown on attempt to submit a report without
	// description.
	ErrEmptyDescription = "empty description"

	// ErrOnlyGAS is thrown when reward is paid in a token other than GAS.
	ErrOnlyGAS = "only GAS can be accepted as a reward"

	// ErrNotOwner is thrown when reward is paid not by the contract owner.
	ErrNotOwner = "reward can be paid only by the contract owner"

	// ErrInvalidReward is thrown for non-positive rewards.
	ErrInvalidReward = "reward must be positive"

	// ErrMissingReportID is thrown when reward payment carries no report ID.
	ErrMissingReportID = "report ID is expected in payment data"

	// ReportSubmittedEvent is emitted for every new report.
	ReportSubmittedEvent = "ReportSubmitted"

	// ReportVerifiedEvent is emitted when the owner verifies a report.
	ReportVerifiedEvent = "ReportVerified"
)
