// Package report serializes engine outcomes as one JSON record per line
// for the CLI/display layer.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/js-808/cc-cli/internal/harness"
	"github.com/js-808/cc-cli/internal/judge/tracker"
	"github.com/js-808/cc-cli/internal/judge/verdict"
)

// SubmissionRecord is the canonical verdict record for one remote
// submission.
type SubmissionRecord struct {
	SubmissionID string              `json:"submission_id"`
	Judge        string              `json:"judge"`
	Problem      string              `json:"problem"`
	Language     string              `json:"language"`
	State        string              `json:"state"`
	Verdict      verdict.Verdict     `json:"verdict,omitempty"`
	FailReason   string              `json:"fail_reason,omitempty"`
	Diag         verdict.Diagnostics `json:"diag,omitempty"`
	SubmittedAt  time.Time           `json:"submitted_at"`
	FinishedAt   time.Time           `json:"finished_at,omitempty"`
}

// TestRunRecord is one local test-case outcome.
type TestRunRecord struct {
	RunID      string `json:"run_id"`
	Case       string `json:"case"`
	Class      string `json:"class"`
	ExitCode   int    `json:"exit_code"`
	WallTimeMs int64  `json:"wall_time_ms"`
	CPUTimeMs  int64  `json:"cpu_time_ms,omitempty"`
	MemoryKB   int64  `json:"memory_kb,omitempty"`
	Output     string `json:"output,omitempty"`
	Truncated  bool   `json:"output_truncated,omitempty"`
	Diff       string `json:"diff,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// FromSubmission builds the record for a tracked submission.
func FromSubmission(sub *tracker.Submission) SubmissionRecord {
	return SubmissionRecord{
		SubmissionID: sub.ID,
		Judge:        sub.Problem.Judge,
		Problem:      sub.Problem.Code,
		Language:     string(sub.Language),
		State:        string(sub.State),
		Verdict:      sub.Verdict,
		FailReason:   sub.FailReason,
		Diag:         sub.Diag,
		SubmittedAt:  sub.SubmittedAt,
		FinishedAt:   sub.FinishedAt,
	}
}

// FromResult builds the record for one harness result. Actual output is
// included only for cases without expected output, where the output is
// the whole point of the run.
func FromResult(runID string, res harness.Result) TestRunRecord {
	rec := TestRunRecord{
		RunID:      runID,
		Case:       res.Case,
		Class:      string(res.Class),
		ExitCode:   res.ExitCode,
		WallTimeMs: res.WallTime.Milliseconds(),
		CPUTimeMs:  res.CPUTimeMs,
		MemoryKB:   res.MemoryKB,
		Truncated:  res.Truncated,
		Diff:       res.Diff,
		Stderr:     res.Stderr,
	}
	if res.Class == harness.ClassReported {
		rec.Output = string(res.Stdout)
	}
	return rec
}

// Write emits one record as a single JSON line.
func Write(w io.Writer, record interface{}) error {
	return json.NewEncoder(w).Encode(record)
}
