package doctor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annorec/internal/config"
)

func find(results []Result, name string) (Result, bool) {
	for _, r := range results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}

func TestRunChecksRecognizers(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "rec.sh")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	notExec := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(notExec, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Paths.ConfigPath = cfgPath
	cfg.Paths.ReportDir = dir
	cfg.Recognizers = []config.RecognizerConfig{
		{ID: "good", RunCommand: exe + " --fast", BaseDir: dir},
		{ID: "relative", RunCommand: "./rec.sh", BaseDir: dir},
		{ID: "plain", RunCommand: notExec},
		{ID: "missing", RunCommand: "/nonexistent/rec", Media: filepath.Join(dir, "none.wav")},
		{ID: "bundled", Bundle: filepath.Join(dir, "nope.yaml")},
		{ID: "off", RunCommand: "/nonexistent/rec", Disabled: true},
	}

	results := Run(cfg)
	expect := map[string]bool{
		"config path":      true,
		"report dir":       true,
		"good base dir":    true,
		"good command":     true,
		"relative command": true,
		"plain command":    false,
		"missing command":  false,
		"missing media":    false,
		"bundled bundle":   false,
	}
	for name, pass := range expect {
		r, ok := find(results, name)
		if !ok {
			t.Fatalf("missing check %q in %+v", name, results)
		}
		if r.Pass != pass {
			t.Fatalf("%s: pass=%v want %v (%s)", name, r.Pass, pass, r.Detail)
		}
	}
	if _, ok := find(results, "off command"); ok {
		t.Fatalf("disabled recognizers must be skipped")
	}
	if r, _ := find(results, "plain command"); !strings.Contains(r.Detail, "not executable") {
		t.Fatalf("unexpected detail %q", r.Detail)
	}
}

func TestRunWithoutRecognizers(t *testing.T) {
	cfg := &config.Config{}
	r, ok := find(Run(cfg), "recognizers")
	if !ok || r.Pass {
		t.Fatalf("expected failing recognizers check, got %+v", r)
	}
}
