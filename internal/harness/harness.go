// Package harness runs a candidate solution against local test cases
// with resource limits, no network, and structured per-case results.
package harness

import (
	"bytes"
	"context"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErr "github.com/js-808/cc-cli/pkg/errors"
	"github.com/js-808/cc-cli/pkg/utils/logger"
)

const stderrMaxBytes = 64 * 1024

// Limits bounds one test-case execution.
type Limits struct {
	Time     time.Duration
	MemoryMB int64
	OutputKB int64
}

func (l Limits) defaults() Limits {
	if l.Time <= 0 {
		l.Time = 10 * time.Second
	}
	if l.OutputKB <= 0 {
		l.OutputKB = 1024
	}
	return l
}

// Classification is the local verdict for one test-case run.
type Classification string

const (
	ClassPass     Classification = "Pass"
	ClassFail     Classification = "Fail"
	ClassError    Classification = "Error"
	ClassTimedOut Classification = "TimedOut"
	// ClassReported marks a user-authored case without expected output:
	// it ran and only the actual output is reported.
	ClassReported Classification = "Reported"
)

// Result is one immutable test-case outcome.
type Result struct {
	Case      string
	Class     Classification
	ExitCode  int
	Stdout    []byte
	Truncated bool
	Stderr    string
	Diff      string
	WallTime  time.Duration
	CPUTimeMs int64
	MemoryKB  int64
}

// Runner executes one solution command against test cases sequentially,
// producing results in input order. A Runner is not restartable; a fresh
// Run re-executes everything.
type Runner struct {
	argv   []string
	mode   CompareMode
	limits Limits
	runID  string
}

// NewRunner splits the solution command line into argv. Interpreted
// solutions arrive as full command strings ("python3 main.py").
func NewRunner(command string, mode CompareMode, limits Limits) (*Runner, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CommandLineInvalid, "split solution command failed")
	}
	if len(argv) == 0 {
		return nil, appErr.New(appErr.CommandLineInvalid)
	}
	if !mode.Valid() {
		mode = CompareExact
	}
	return &Runner{
		argv:   argv,
		mode:   mode,
		limits: limits.defaults(),
		runID:  uuid.NewString(),
	}, nil
}

// RunID identifies this harness invocation in report records.
func (r *Runner) RunID() string { return r.runID }

// Run executes every case in order. One bad case never aborts the batch;
// only cancellation stops early, returning the results produced so far.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, 0, len(cases))
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.runCase(ctx, tc)
		results = append(results, res)
		logger.Debug(ctx, "test case finished",
			zap.String("case", tc.Name),
			zap.String("class", string(res.Class)),
			zap.Duration("wall", res.WallTime))
	}
	return results, nil
}

func (r *Runner) runCase(ctx context.Context, tc Case) Result {
	res := Result{Case: tc.Name}

	cmd := exec.Command(r.argv[0], r.argv[1:]...)
	cmd.Stdin = bytes.NewReader(tc.Input)
	stdout := newCappedBuffer(r.limits.OutputKB * 1024)
	stderr := newCappedBuffer(stderrMaxBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = sysProcAttr()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		res.Class = ClassError
		res.ExitCode = -1
		res.Stderr = err.Error()
		return res
	}
	applyMemoryLimit(cmd.Process.Pid, r.limits.MemoryMB)

	// The child is killed with its whole process group so a hung case
	// cannot outlive its slot or leak pipes into later cases.
	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(r.limits.Time)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			killGroup(cmd.Process.Pid)
		case <-timer.C:
			timedOut.Store(true)
			killGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res.WallTime = time.Since(start)
	res.ExitCode = exitCode(waitErr, cmd)
	res.Stdout = stdout.Bytes()
	res.Truncated = stdout.Truncated()
	res.Stderr = string(stderr.Bytes())
	res.CPUTimeMs = cpuTimeMs(cmd.ProcessState)
	res.MemoryKB = memoryPeakKB(cmd.ProcessState)

	switch {
	case timedOut.Load():
		res.Class = ClassTimedOut
	case waitErr != nil || res.ExitCode != 0:
		res.Class = ClassError
	case !tc.HasExpected:
		res.Class = ClassReported
	case Equal(r.mode, tc.Expected, res.Stdout):
		res.Class = ClassPass
	default:
		res.Class = ClassFail
		res.Diff = Diff(tc.Name, tc.Expected, res.Stdout)
	}
	return res
}

func exitCode(waitErr error, cmd *exec.Cmd) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	return -1
}

// cappedBuffer keeps the first max bytes and discards the rest, so a
// runaway solution cannot exhaust memory through its output pipe.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	remaining := c.max - int64(c.buf.Len())
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		c.truncated = true
		c.buf.Write(p[:remaining])
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) Bytes() []byte   { return c.buf.Bytes() }
func (c *cappedBuffer) Truncated() bool { return c.truncated }
