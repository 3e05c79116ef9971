package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Authentication & Session errors
// 12000-12999: Submission upload errors
// 13000-13999: Status polling errors
// 14000-14999: Local harness errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalError ErrorCode = 10001
	InvalidParams ErrorCode = 10002
	NotFound      ErrorCode = 10003
	Timeout       ErrorCode = 10004
	Canceled      ErrorCode = 10005

	// Configuration errors (10100-10199)
	ConfigInvalid     ErrorCode = 10100
	ConfigMissing     ErrorCode = 10101
	CredentialMissing ErrorCode = 10102

	// ========== Authentication & Session Errors (11000-11999) ==========

	// Authentication (11000-11099)
	CredentialsRejected ErrorCode = 11000
	AuthUnreachable     ErrorCode = 11001
	TokenExtractFailed  ErrorCode = 11002
	LoginFormChanged    ErrorCode = 11003

	// Session lifecycle (11100-11199)
	SessionExpired    ErrorCode = 11100
	SessionRevoked    ErrorCode = 11101
	AccountUnknown    ErrorCode = 11102
	JudgeUnsupported  ErrorCode = 11103
	StaleForgeryToken ErrorCode = 11104

	// ========== Submission Upload Errors (12000-12999) ==========

	UploadRejected       ErrorCode = 12000
	ProblemUnknown       ErrorCode = 12001
	LanguageNotSupported ErrorCode = 12002
	ArtifactInvalid      ErrorCode = 12003
	ArtifactTooLarge     ErrorCode = 12004

	// ========== Status Polling Errors (13000-13999) ==========

	// Transient (13000-13099): retried with backoff by the tracker
	PollTransient   ErrorCode = 13000
	PollRateLimited ErrorCode = 13001
	PollBadGateway  ErrorCode = 13002

	// Permanent (13100-13199): never retried
	PollPermanent     ErrorCode = 13100
	SubmissionUnknown ErrorCode = 13101
	SubmissionDropped ErrorCode = 13102

	// Tracker termination (13200-13299)
	PollTimeout       ErrorCode = 13200
	PollBudgetExpired ErrorCode = 13201

	// ========== Local Harness Errors (14000-14999) ==========

	SpawnFailed        ErrorCode = 14000
	SolutionNotFound   ErrorCode = 14001
	CommandLineInvalid ErrorCode = 14002
	TestCaseInvalid    ErrorCode = 14100
	TestDirUnreadable  ErrorCode = 14101
)

// errorMessages maps error codes to their default messages
var errorMessages = map[ErrorCode]string{
	// System
	Success:       "Success",
	InternalError: "Internal error",
	InvalidParams: "Invalid parameters",
	NotFound:      "Not found",
	Timeout:       "Operation timed out",
	Canceled:      "Operation canceled",

	// Configuration
	ConfigInvalid:     "Invalid configuration",
	ConfigMissing:     "Configuration file not found",
	CredentialMissing: "Credential not set in environment",

	// Authentication
	CredentialsRejected: "Judge rejected the credentials",
	AuthUnreachable:     "Judge unreachable during authentication",
	TokenExtractFailed:  "Failed to extract anti-forgery token",
	LoginFormChanged:    "Login page layout not recognized",

	// Session
	SessionExpired:    "Session has expired",
	SessionRevoked:    "Session was revoked by the judge",
	AccountUnknown:    "No account configured for this judge",
	JudgeUnsupported:  "Judge is not supported",
	StaleForgeryToken: "Anti-forgery token is stale",

	// Submission upload
	UploadRejected:       "Judge rejected the submission upload",
	ProblemUnknown:       "Judge does not know this problem",
	LanguageNotSupported: "Language not accepted by this judge",
	ArtifactInvalid:      "Solution artifact is invalid",
	ArtifactTooLarge:     "Solution artifact is too large",

	// Polling - transient
	PollTransient:   "Transient poll failure",
	PollRateLimited: "Judge rate limited the poll",
	PollBadGateway:  "Judge returned a gateway error",

	// Polling - permanent
	PollPermanent:     "Permanent poll failure",
	SubmissionUnknown: "Judge does not know this submission",
	SubmissionDropped: "Judge dropped the submission",

	// Tracker termination
	PollTimeout:       "Polling exceeded the maximum wait",
	PollBudgetExpired: "Too many consecutive poll failures",

	// Harness
	SpawnFailed:        "Failed to spawn solution process",
	SolutionNotFound:   "Solution artifact not found",
	CommandLineInvalid: "Invalid solution command line",
	TestCaseInvalid:    "Invalid test case",
	TestDirUnreadable:  "Test case directory unreadable",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// IsAuth reports whether the code indicates an authentication or session
// problem, which callers answer by invalidating the session.
func (c ErrorCode) IsAuth() bool {
	return c >= 11000 && c < 12000
}

// IsTransient reports whether the code may succeed on retry.
func (c ErrorCode) IsTransient() bool {
	return c >= 13000 && c < 13100
}

// IsPermanent reports whether the code must never be retried.
func (c ErrorCode) IsPermanent() bool {
	return c >= 13100 && c < 13200
}
