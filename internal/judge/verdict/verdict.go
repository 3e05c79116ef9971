// Package verdict maps judge-specific status payloads into one canonical
// verdict model.
package verdict

import (
	"strconv"
	"strings"

	"github.com/js-808/cc-cli/internal/judge"
)

// Verdict is the canonical outcome of a judged submission.
type Verdict string

const (
	VerdictAC      Verdict = "AC"
	VerdictWA      Verdict = "WA"
	VerdictTLE     Verdict = "TLE"
	VerdictMLE     Verdict = "MLE"
	VerdictRE      Verdict = "RE"
	VerdictCE      Verdict = "CE"
	VerdictPE      Verdict = "PE"
	VerdictUnknown Verdict = "Unknown"
)

// Stage is a non-terminal position in the judge's pipeline.
type Stage string

const (
	StageQueued  Stage = "Queued"
	StageRunning Stage = "Running"
)

// Diagnostics carries optional per-verdict detail where the judge
// supplies it.
type Diagnostics struct {
	TimeMs      int64  `json:"time_ms,omitempty"`
	MemoryKB    int64  `json:"memory_kb,omitempty"`
	FailedTest  int    `json:"failed_test,omitempty"`
	CompilerLog string `json:"compiler_log,omitempty"`
}

// Normalized is the canonical interpretation of one raw status payload.
// When Terminal is false only Stage is meaningful; otherwise Verdict.
type Normalized struct {
	Terminal bool
	Stage    Stage
	Verdict  Verdict
	Diag     Diagnostics
	Raw      judge.RawStatus
}

// Normalizer converts raw judge statuses. Implementations must be total:
// an unrecognized status degrades to VerdictUnknown with the raw payload
// preserved, never an error.
type Normalizer interface {
	Normalize(raw judge.RawStatus) Normalized
}

// entry is one row of a judge's status table.
type entry struct {
	terminal bool
	stage    Stage
	verdict  Verdict
}

// Table is a Normalizer driven by a status-string lookup table. Status
// vocabularies drift as judges change, so tables accept overrides from
// configuration on top of the built-in defaults.
type Table struct {
	statusKey string
	rows      map[string]entry
}

func (t *Table) Normalize(raw judge.RawStatus) Normalized {
	status := strings.TrimSpace(raw.Fields[t.statusKey])
	if row, ok := t.rows[strings.ToLower(status)]; ok {
		n := Normalized{
			Terminal: row.terminal,
			Stage:    row.stage,
			Verdict:  row.verdict,
			Raw:      raw,
		}
		if row.terminal {
			n.Diag = extractDiagnostics(raw)
		}
		return n
	}
	// Forward compatibility: never fail on a status we have not seen.
	return Normalized{
		Terminal: true,
		Verdict:  VerdictUnknown,
		Diag:     extractDiagnostics(raw),
		Raw:      raw,
	}
}

// Override remaps one raw status string onto a canonical verdict,
// treating it as terminal. Used for config-supplied vocabulary patches.
func (t *Table) Override(status string, v Verdict) {
	t.rows[strings.ToLower(strings.TrimSpace(status))] = entry{terminal: true, verdict: v}
}

func extractDiagnostics(raw judge.RawStatus) Diagnostics {
	var d Diagnostics
	if v := raw.Fields["cpu_ms"]; v != "" {
		d.TimeMs, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := raw.Fields["memory_kb"]; v != "" {
		d.MemoryKB, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := raw.Fields["failed_test"]; v != "" {
		d.FailedTest, _ = strconv.Atoi(v)
	}
	if v := raw.Fields["compiler_log"]; v != "" {
		d.CompilerLog = v
	}
	return d
}

// Kattis returns the normalizer for Kattis status pages.
func Kattis() *Table {
	return &Table{
		statusKey: "status",
		rows: map[string]entry{
			"new":                   {stage: StageQueued},
			"in queue":              {stage: StageQueued},
			"compiling":             {stage: StageRunning},
			"running":               {stage: StageRunning},
			"accepted":              {terminal: true, verdict: VerdictAC},
			"wrong answer":          {terminal: true, verdict: VerdictWA},
			"time limit exceeded":   {terminal: true, verdict: VerdictTLE},
			"memory limit exceeded": {terminal: true, verdict: VerdictMLE},
			"run time error":        {terminal: true, verdict: VerdictRE},
			"runtime error":         {terminal: true, verdict: VerdictRE},
			"compile error":         {terminal: true, verdict: VerdictCE},
		},
	}
}

// UVA returns the normalizer for uHunt numeric verdict codes.
func UVA() *Table {
	return &Table{
		statusKey: "ver",
		rows: map[string]entry{
			"0":  {stage: StageQueued},
			"20": {stage: StageQueued},
			"25": {stage: StageRunning},
			"30": {terminal: true, verdict: VerdictCE},
			"35": {terminal: true, verdict: VerdictRE},
			"40": {terminal: true, verdict: VerdictRE},
			"50": {terminal: true, verdict: VerdictTLE},
			"60": {terminal: true, verdict: VerdictMLE},
			"70": {terminal: true, verdict: VerdictWA},
			"80": {terminal: true, verdict: VerdictPE},
			"90": {terminal: true, verdict: VerdictAC},
		},
	}
}

// ForJudge returns the default normalizer for a judge name, falling back
// to an all-Unknown table for judges without a vocabulary.
func ForJudge(name string) *Table {
	switch name {
	case "kattis":
		return Kattis()
	case "uva", "uhunt":
		return UVA()
	default:
		return &Table{statusKey: "status", rows: map[string]entry{}}
	}
}
