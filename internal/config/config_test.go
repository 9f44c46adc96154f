package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = "/tmp/config" // avoid creation

	t.Setenv("ANNOREC_METRICS_ADDR", "1.2.3.4:9999")
	t.Setenv("ANNOREC_LOG_LEVEL", "debug")
	t.Setenv("ANNOREC_LOG_FORMAT", "json")
	t.Setenv("ANNOREC_REPORT_DIR", "/tmp/reports")

	applyEnvOverrides(cfg)

	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "1.2.3.4:9999" {
		t.Fatalf("metrics override failed: %+v", cfg.Metrics)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
	if cfg.Paths.ReportDir != "/tmp/reports" {
		t.Fatalf("report dir override failed: %q", cfg.Paths.ReportDir)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Interpreters["java"] = "/opt/annorec/jre/bin/java"
	cfg.Recognizers = []RecognizerConfig{{
		ID:         "shots",
		Dialect:    "shots",
		RunCommand: "python detect.py",
		Media:      "/data/clip.mp4",
		FPS:        29.97,
		Params:     map[string]string{"threshold": "0.4"},
	}}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rc, ok := loaded.Recognizer("shots")
	if !ok || rc.FPS != 29.97 || rc.Params["threshold"] != "0.4" {
		t.Fatalf("recognizer did not persist: %+v", rc)
	}
	if loaded.Interpreters["java"] != "/opt/annorec/jre/bin/java" {
		t.Fatalf("interpreters did not persist: %v", loaded.Interpreters)
	}
}

func TestLoadWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Paths.ConfigPath != path {
		t.Fatalf("config path %q", cfg.Paths.ConfigPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("template not written: %v", err)
	}
	if !strings.Contains(string(data), "max_parallel") {
		t.Fatalf("unexpected template:\n%s", data)
	}
}

func TestLoadRejectsInvalidRecognizers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[[recognizers]]
id = "a"

[[recognizers]]
id = "a"
run_command = "rec"
channel = 3
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"run_command or bundle", "duplicate id", "channel 3"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in %v", want, err)
		}
	}
}

func TestEnabled(t *testing.T) {
	cfg := &Config{Recognizers: []RecognizerConfig{{ID: "a"}, {ID: "b", Disabled: true}, {ID: "c"}}}
	got := cfg.Enabled()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected enabled set %+v", got)
	}
	if _, ok := cfg.Recognizer("b"); !ok {
		t.Fatalf("disabled recognizers are still addressable")
	}
}
