package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vardhanvasista/fresalyzer/internal/config"
	"vardhanvasista/fresalyzer/internal/models"
	"vardhanvasista/fresalyzer/internal/services"
)

type fakeGemini struct {
	mu       sync.Mutex
	generate func(prompt, modelID string) (string, error)
	keys     []string
	models   []string
}

func (f *fakeGemini) Generate(_ context.Context, prompt, apiKey, modelID string) (string, error) {
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.models = append(f.models, modelID)
	f.mu.Unlock()
	return f.generate(prompt, modelID)
}

type fakeSleeper struct {
	delays []time.Duration
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

type cliRun struct {
	llm     *fakeGemini
	sleeper *fakeSleeper
	out     bytes.Buffer
	dir     string
}

func newCLIRun(t *testing.T, generate func(prompt, modelID string) (string, error)) *cliRun {
	t.Helper()
	return &cliRun{
		llm:     &fakeGemini{generate: generate},
		sleeper: &fakeSleeper{},
		dir:     t.TempDir(),
	}
}

func (r *cliRun) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(r.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (r *cliRun) execute(envKey string, args ...string) error {
	cfg := &config.Config{
		Gemini: config.GeminiConfig{APIKey: envKey, DefaultModel: "gemini-2.0-flash"},
		Batch: config.BatchConfig{
			CandidateCooldown: 60 * time.Second,
			RecruiterCooldown: 5 * time.Second,
			RetryMaxAttempts:  3,
			RetryBaseDelay:    15 * time.Second,
			RetryFinalDelay:   60 * time.Second,
		},
	}

	a := newApp(cfg, r.llm, &r.out)
	a.sleeper = r.sleeper

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(&r.out)
	cmd.SetErr(&r.out)
	return cmd.Execute()
}

func TestCandidateCommand_RanksAndExports(t *testing.T) {
	r := newCLIRun(t, func(prompt, _ string) (string, error) {
		switch {
		case strings.Contains(prompt, "JD-A"):
			return "Match Percentage: 30%", nil
		case strings.Contains(prompt, "JD-B"):
			return "Match Percentage: 75%", nil
		}
		return "Match Percentage: 50%", nil
	})

	resume := r.file(t, "me.txt", "Go developer")
	a := r.file(t, "a.txt", "JD-A")
	b := r.file(t, "b.txt", "JD-B")
	c := r.file(t, "c.txt", "JD-C")
	export := filepath.Join(r.dir, "shortlist.csv")

	err := r.execute("", "candidate", resume, a, b, c, "--api-key", "k", "--export", export, "--top", "2")
	require.NoError(t, err)

	out := r.out.String()
	assert.Contains(t, out, "Best match: b.txt (75%)")
	assert.Less(t, strings.Index(out, "b.txt"), strings.Index(out, "c.txt"))
	assert.NotContains(t, out, "a.txt ")

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Equal(t, "Candidate Name,Match Percentage\nb.txt,75\nc.txt,50\n", string(data))

	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, r.sleeper.delays)
	assert.Equal(t, []string{"k", "k", "k"}, r.llm.keys)
}

func TestRecruiterCommand_UsesCandidateNamesAndCooldownFlag(t *testing.T) {
	r := newCLIRun(t, func(prompt, _ string) (string, error) {
		if strings.Contains(prompt, "ANA") {
			return "Candidate Name: Ana Lima\nMatch Percentage: 88%", nil
		}
		return "Match Percentage: 40%", nil
	})

	jd := r.file(t, "role.txt", "Backend role")
	ana := r.file(t, "ana.txt", "ANA resume")
	bob := r.file(t, "bob.txt", "BOB resume")

	err := r.execute("env-key", "recruiter", jd, bob, ana, "--cooldown", "2s")
	require.NoError(t, err)

	out := r.out.String()
	assert.Contains(t, out, "Ana Lima (ana.txt)")
	assert.Less(t, strings.Index(out, "Ana Lima"), strings.Index(out, "bob.txt"))
	assert.Equal(t, []time.Duration{2 * time.Second}, r.sleeper.delays)
	assert.Equal(t, []string{"env-key", "env-key"}, r.llm.keys)
}

func TestRecruiterCommand_InvalidKeyStopsWithError(t *testing.T) {
	r := newCLIRun(t, func(string, string) (string, error) {
		return "", &services.LLMError{Kind: services.LLMInvalidCredentials, Message: "API key not valid"}
	})

	jd := r.file(t, "role.txt", "role")
	a := r.file(t, "a.txt", "a")
	b := r.file(t, "b.txt", "b")

	err := r.execute("", "recruiter", jd, a, b, "--api-key", "bad")
	require.ErrorIs(t, err, services.ErrBatchAborted)
	assert.Len(t, r.llm.keys, 1)
	assert.Contains(t, r.out.String(), services.LabelInvalidAPIKey)
	assert.Contains(t, r.out.String(), "Stopped early")
}

func TestQuickCommand_WritesResumeCode(t *testing.T) {
	r := newCLIRun(t, func(string, string) (string, error) {
		return "**Match Percentage**: 64%\n**Generated Resume Code**:\n```latex\n\\documentclass{article}\n```\n", nil
	})

	resume := r.file(t, "cv.txt", "resume")
	jd := r.file(t, "jd.txt", "jd")
	codeOut := filepath.Join(r.dir, "resume.tex")

	err := r.execute("", "quick", resume, jd, "--api-key", "k", "--code-out", codeOut, "--model", "models/gemini-1.5-pro")
	require.NoError(t, err)

	assert.Contains(t, r.out.String(), "Match: 64%")
	code, err := os.ReadFile(codeOut)
	require.NoError(t, err)
	assert.Equal(t, "\\documentclass{article}\n", string(code))
	assert.Equal(t, []string{"gemini-1.5-pro"}, r.llm.models)
}

func TestModelsCommand_LabelsFailures(t *testing.T) {
	r := newCLIRun(t, func(_, modelID string) (string, error) {
		switch modelID {
		case "gemini-1.5-pro":
			return "", &services.LLMError{Kind: services.LLMQuotaExceeded, Message: "429"}
		case "gemini-2.0-flash":
			return "", &services.LLMError{Kind: services.LLMOther, Message: "model is overloaded, please retry later"}
		}
		return "Match Percentage: 70%", nil
	})

	resume := r.file(t, "cv.txt", "resume")
	jd := r.file(t, "jd.txt", "jd")

	err := r.execute("", "models", resume, jd, "--api-key", "k", "--only", "gemini-1.5-pro,gemini-2.0-flash,gemini-1.5-flash-8b")
	require.NoError(t, err)

	lines := resultLines(r.out.String())
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "gemini-1.5-pro")
	assert.Contains(t, lines[0], services.LabelQuotaExceeded)
	assert.Contains(t, lines[1], "gemini-2.0-flash")
	assert.Contains(t, lines[1], "model is overloaded, please re...")
	assert.Contains(t, lines[2], "gemini-1.5-flash-8b")
	assert.Contains(t, lines[2], "70%")
	assert.Equal(t, []string{"gemini-1.5-pro", "gemini-2.0-flash", "gemini-1.5-flash-8b"}, r.llm.models)
}

func TestModelsCommand_KeepsRequestedOrder(t *testing.T) {
	scores := map[string]string{
		"gemini-1.5-pro":      "Match Percentage: 20%",
		"gemini-2.0-flash":    "Match Percentage: 90%",
		"gemini-1.5-flash-8b": "Match Percentage: 50%",
	}
	r := newCLIRun(t, func(_, modelID string) (string, error) {
		return scores[modelID], nil
	})

	resume := r.file(t, "cv.txt", "resume")
	jd := r.file(t, "jd.txt", "jd")

	err := r.execute("", "models", resume, jd, "--api-key", "k", "--only", "gemini-1.5-pro,gemini-2.0-flash,gemini-1.5-flash-8b")
	require.NoError(t, err)

	lines := resultLines(r.out.String())
	require.Len(t, lines, 3)
	assert.Regexp(t, `^ 1\. gemini-1\.5-pro\s+20%$`, lines[0])
	assert.Regexp(t, `^ 2\. gemini-2\.0-flash\s+90%$`, lines[1])
	assert.Regexp(t, `^ 3\. gemini-1\.5-flash-8b\s+50%$`, lines[2])
}

// resultLines returns the numbered rows of a printed report.
func resultLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 2 && trimmed[0] >= '0' && trimmed[0] <= '9' && strings.Contains(trimmed[:3], ".") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestListModelsCommand(t *testing.T) {
	r := newCLIRun(t, nil)

	require.NoError(t, r.execute("", "list-models"))

	lines := strings.Split(strings.TrimSpace(r.out.String()), "\n")
	require.Len(t, lines, len(models.KnownModels))
	assert.Contains(t, lines[0], "gemini-1.5-pro-latest")
	assert.Contains(t, lines[0], "92%")
}

func TestCommands_RejectBadInput(t *testing.T) {
	tests := []struct {
		name    string
		envKey  string
		args    []string
		errPart string
	}{
		{"missing key", "", []string{"quick", "a.txt", "b.txt"}, "no API key"},
		{"unknown model", "k", []string{"quick", "a.txt", "b.txt", "--model", "gpt-4"}, "unknown model"},
		{"bad format", "k", []string{"quick", "a.txt", "b.txt", "--format", "markdown"}, "unknown format"},
		{"bad export", "k", []string{"candidate", "a.txt", "b.txt", "--export", "out.pdf"}, "unsupported export format"},
		{"too few args", "k", []string{"recruiter", "jd.txt"}, "requires at least 2 arg"},
		{"missing file", "k", []string{"quick", "missing.txt", "b.txt"}, "file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newCLIRun(t, func(string, string) (string, error) { return "Match Percentage: 1%", nil })
			err := r.execute(tt.envKey, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
			assert.Empty(t, r.llm.keys)
		})
	}
}
