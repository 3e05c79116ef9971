package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/js-808/cc-cli/internal/cli/config"
	"github.com/js-808/cc-cli/internal/harness"
	"github.com/js-808/cc-cli/internal/judge"
	"github.com/js-808/cc-cli/internal/judge/kattis"
	"github.com/js-808/cc-cli/internal/judge/session"
	"github.com/js-808/cc-cli/internal/judge/tracker"
	"github.com/js-808/cc-cli/internal/judge/uhunt"
	"github.com/js-808/cc-cli/internal/judge/verdict"
	"github.com/js-808/cc-cli/internal/report"
	"github.com/js-808/cc-cli/pkg/utils/logger"
)

const defaultConfigPath = "configs/cc.yaml"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Credentials come from the environment; .env is optional.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "test":
		err = runTest(ctx, os.Args[2:])
	case "submit":
		err = runSubmit(ctx, os.Args[2:])
	case "status":
		err = runStatus(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cc %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cc <test|submit|status> [flags]")
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	}); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runTest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to config file")
	dir := fs.String("dir", "test_cases", "Test case directory")
	command := fs.String("run", "", "Solution command line (e.g. './a.out' or 'python3 main.py')")
	compare := fs.String("compare", "", "Comparison mode: exact or trailing-ws")
	timeLimit := fs.Duration("time", 0, "Per-case wall clock limit")
	_ = fs.Parse(args)

	if *command == "" {
		return fmt.Errorf("-run is required")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	mode := harness.CompareMode(cfg.Compare)
	if *compare != "" {
		mode = harness.CompareMode(*compare)
		if !mode.Valid() {
			return fmt.Errorf("unknown compare mode %q", *compare)
		}
	}
	limits := harness.Limits{
		Time:     cfg.Limits.Time,
		MemoryMB: cfg.Limits.MemoryMB,
		OutputKB: cfg.Limits.OutputKB,
	}
	if *timeLimit > 0 {
		limits.Time = *timeLimit
	}

	cases, err := harness.LoadDir(*dir)
	if err != nil {
		return err
	}
	runner, err := harness.NewRunner(*command, mode, limits)
	if err != nil {
		return err
	}
	ctx = logger.WithRunID(ctx, runner.RunID())
	results, runErr := runner.Run(ctx, cases)
	for _, res := range results {
		if err := report.Write(os.Stdout, report.FromResult(runner.RunID(), res)); err != nil {
			return err
		}
	}
	return runErr
}

func runSubmit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to config file")
	judgeName := fs.String("judge", "", "Judge name (kattis, uva)")
	problem := fs.String("problem", "", "Judge-internal problem code")
	file := fs.String("file", "", "Solution source file")
	lang := fs.String("lang", "", "Submission language as the judge names it")
	noTrack := fs.Bool("no-track", false, "Submit without waiting for the verdict")
	_ = fs.Parse(args)

	if *judgeName == "" || *problem == "" || *file == "" || *lang == "" {
		return fmt.Errorf("-judge, -problem, -file and -lang are required")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	mgr, err := buildManager(cfg)
	if err != nil {
		return err
	}
	client, err := mgr.Client(*judgeName)
	if err != nil {
		return err
	}
	account := cfg.Judges[*judgeName].Account
	ctx = logger.WithJudge(ctx, *judgeName)

	problemID := judge.ProblemID{Judge: *judgeName, Code: *problem}
	artifact := judge.SourceArtifact{Path: *file, Language: judge.Language(*lang)}

	var submissionID string
	err = mgr.WithSession(ctx, *judgeName, account, func(sess *judge.Session) error {
		id, submitErr := client.Submit(ctx, sess, problemID, artifact)
		if submitErr != nil {
			return submitErr
		}
		submissionID = id
		return nil
	})
	if err != nil {
		return err
	}

	sub := &tracker.Submission{
		ID:          submissionID,
		Problem:     problemID,
		Language:    artifact.Language,
		State:       tracker.StatePendingAccept,
		SubmittedAt: time.Now(),
	}
	ctx = logger.WithSubmissionID(ctx, submissionID)
	if *noTrack {
		return report.Write(os.Stdout, report.FromSubmission(sub))
	}

	tr := tracker.New(trackerConfig(cfg), pollFunc(mgr, client, account), normalizer(cfg, *judgeName))
	if err := tr.Track(ctx, sub); err != nil {
		// Cancellation is not a verdict; report the last observed state.
		_ = report.Write(os.Stdout, report.FromSubmission(sub))
		return err
	}
	return report.Write(os.Stdout, report.FromSubmission(sub))
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to config file")
	judgeName := fs.String("judge", "", "Judge name (kattis, uva)")
	id := fs.String("id", "", "Judge-assigned submission id")
	_ = fs.Parse(args)

	if *judgeName == "" || *id == "" {
		return fmt.Errorf("-judge and -id are required")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	mgr, err := buildManager(cfg)
	if err != nil {
		return err
	}
	client, err := mgr.Client(*judgeName)
	if err != nil {
		return err
	}
	account := cfg.Judges[*judgeName].Account
	ctx = logger.WithJudge(logger.WithSubmissionID(ctx, *id), *judgeName)

	raw, err := pollFunc(mgr, client, account)(ctx, *id)
	if err != nil {
		return err
	}
	n := normalizer(cfg, *judgeName).Normalize(raw)
	sub := &tracker.Submission{
		ID:      *id,
		Problem: judge.ProblemID{Judge: *judgeName},
		State:   tracker.StateQueued,
	}
	if n.Terminal {
		sub.State = tracker.StateTerminal
		sub.Verdict = n.Verdict
		sub.Diag = n.Diag
	} else if n.Stage == verdict.StageRunning {
		sub.State = tracker.StateRunning
	}
	return report.Write(os.Stdout, report.FromSubmission(sub))
}

func buildManager(cfg config.Config) (*session.Manager, error) {
	clients := []judge.Client{
		kattis.New(kattis.Config{
			BaseURL:    cfg.Judges["kattis"].BaseURL,
			Timeout:    cfg.Timeout,
			SessionTTL: cfg.Judges["kattis"].SessionTTL,
		}),
		uhunt.New(uhunt.Config{
			BaseURL: cfg.Judges["uva"].BaseURL,
			Timeout: cfg.Timeout,
		}),
	}
	creds := func(judgeName, account string) (judge.Credential, error) {
		return config.Credential(cfg, judgeName, account)
	}
	return session.NewManager(clients, creds), nil
}

// pollFunc routes every poll through the session manager so one session
// never carries overlapping requests.
func pollFunc(mgr *session.Manager, client judge.Client, account string) tracker.PollFunc {
	return func(ctx context.Context, submissionID string) (judge.RawStatus, error) {
		var raw judge.RawStatus
		err := mgr.WithSession(ctx, client.Name(), account, func(sess *judge.Session) error {
			var fetchErr error
			raw, fetchErr = client.FetchStatus(ctx, sess, submissionID)
			return fetchErr
		})
		return raw, err
	}
}

func trackerConfig(cfg config.Config) tracker.Config {
	return tracker.Config{
		InitialInterval: cfg.Polling.Initial,
		MaxInterval:     cfg.Polling.MaxInterval,
		MaxWait:         cfg.Polling.MaxWait,
		MaxTransient:    cfg.Polling.MaxTransient,
	}
}

func normalizer(cfg config.Config, judgeName string) *verdict.Table {
	table := verdict.ForJudge(judgeName)
	for status, v := range cfg.Judges[judgeName].StatusOverrides {
		table.Override(status, verdict.Verdict(v))
	}
	return table
}
