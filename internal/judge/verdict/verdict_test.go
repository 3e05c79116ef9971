package verdict_test

import (
	"testing"

	"github.com/js-808/cc-cli/internal/judge"
	"github.com/js-808/cc-cli/internal/judge/verdict"
)

func TestKattisNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   string
		terminal bool
		stage    verdict.Stage
		verdict  verdict.Verdict
	}{
		{name: "new", status: "New", stage: verdict.StageQueued},
		{name: "compiling", status: "Compiling", stage: verdict.StageRunning},
		{name: "running", status: "Running", stage: verdict.StageRunning},
		{name: "accepted", status: "Accepted", terminal: true, verdict: verdict.VerdictAC},
		{name: "wrong-answer", status: "Wrong Answer", terminal: true, verdict: verdict.VerdictWA},
		{name: "tle", status: "Time Limit Exceeded", terminal: true, verdict: verdict.VerdictTLE},
		{name: "mle", status: "Memory Limit Exceeded", terminal: true, verdict: verdict.VerdictMLE},
		{name: "rte", status: "Run Time Error", terminal: true, verdict: verdict.VerdictRE},
		{name: "ce", status: "Compile Error", terminal: true, verdict: verdict.VerdictCE},
		{name: "case-insensitive", status: "ACCEPTED", terminal: true, verdict: verdict.VerdictAC},
		{name: "padded", status: "  Accepted  ", terminal: true, verdict: verdict.VerdictAC},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := judge.RawStatus{Judge: "kattis", Fields: map[string]string{"status": tt.status}}
			n := verdict.Kattis().Normalize(raw)
			if n.Terminal != tt.terminal {
				t.Fatalf("terminal: expected %v, got %v", tt.terminal, n.Terminal)
			}
			if !tt.terminal && n.Stage != tt.stage {
				t.Fatalf("stage: expected %s, got %s", tt.stage, n.Stage)
			}
			if tt.terminal && n.Verdict != tt.verdict {
				t.Fatalf("verdict: expected %s, got %s", tt.verdict, n.Verdict)
			}
		})
	}
}

func TestUVANormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		code     string
		terminal bool
		verdict  verdict.Verdict
	}{
		{name: "in-queue", code: "20"},
		{name: "unjudged", code: "0"},
		{name: "ac", code: "90", terminal: true, verdict: verdict.VerdictAC},
		{name: "pe", code: "80", terminal: true, verdict: verdict.VerdictPE},
		{name: "wa", code: "70", terminal: true, verdict: verdict.VerdictWA},
		{name: "mle", code: "60", terminal: true, verdict: verdict.VerdictMLE},
		{name: "tle", code: "50", terminal: true, verdict: verdict.VerdictTLE},
		{name: "re", code: "40", terminal: true, verdict: verdict.VerdictRE},
		{name: "ce", code: "30", terminal: true, verdict: verdict.VerdictCE},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := judge.RawStatus{Judge: "uva", Fields: map[string]string{"ver": tt.code}}
			n := verdict.UVA().Normalize(raw)
			if n.Terminal != tt.terminal {
				t.Fatalf("terminal: expected %v, got %v", tt.terminal, n.Terminal)
			}
			if tt.terminal && n.Verdict != tt.verdict {
				t.Fatalf("verdict: expected %s, got %s", tt.verdict, n.Verdict)
			}
		})
	}
}

func TestNormalizeUnknownStatus(t *testing.T) {
	t.Parallel()
	raw := judge.RawStatus{
		Judge:   "kattis",
		Payload: []byte("<td>Judging intensifies</td>"),
		Fields:  map[string]string{"status": "Judging intensifies"},
	}
	n := verdict.Kattis().Normalize(raw)
	if !n.Terminal {
		t.Fatal("unrecognized status must degrade to a terminal Unknown")
	}
	if n.Verdict != verdict.VerdictUnknown {
		t.Fatalf("expected Unknown, got %s", n.Verdict)
	}
	if string(n.Raw.Payload) != "<td>Judging intensifies</td>" {
		t.Fatal("raw payload must be preserved for diagnostics")
	}
}

func TestNormalizeDiagnostics(t *testing.T) {
	t.Parallel()
	raw := judge.RawStatus{Judge: "uva", Fields: map[string]string{
		"ver":       "70",
		"cpu_ms":    "120",
		"memory_kb": "2048",
	}}
	n := verdict.UVA().Normalize(raw)
	if n.Diag.TimeMs != 120 {
		t.Fatalf("expected 120ms, got %d", n.Diag.TimeMs)
	}
	if n.Diag.MemoryKB != 2048 {
		t.Fatalf("expected 2048KB, got %d", n.Diag.MemoryKB)
	}
}

func TestTableOverride(t *testing.T) {
	t.Parallel()
	table := verdict.Kattis()
	table.Override("Output Limit Exceeded", verdict.VerdictRE)
	raw := judge.RawStatus{Fields: map[string]string{"status": "Output Limit Exceeded"}}
	n := table.Normalize(raw)
	if !n.Terminal || n.Verdict != verdict.VerdictRE {
		t.Fatalf("override not applied: terminal=%v verdict=%s", n.Terminal, n.Verdict)
	}
}

func TestForJudgeUnknownJudge(t *testing.T) {
	t.Parallel()
	n := verdict.ForJudge("codeforces").Normalize(judge.RawStatus{Fields: map[string]string{"status": "OK"}})
	if n.Verdict != verdict.VerdictUnknown {
		t.Fatalf("expected Unknown for unmapped judge, got %s", n.Verdict)
	}
}
