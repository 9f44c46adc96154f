package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"annorec/internal/bundle"
	"annorec/internal/config"
	"annorec/internal/media"
	"annorec/internal/recognizer"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkDir("report dir", cfg.Paths.ReportDir),
	}
	for name, path := range cfg.Interpreters {
		results = append(results, checkExecutable("interpreter "+name, path))
	}
	if len(cfg.Recognizers) == 0 {
		results = append(results, Result{Name: "recognizers", Pass: false, Detail: "none configured; add [[recognizers]] to the config"})
	}
	for _, rc := range cfg.Recognizers {
		if rc.Disabled {
			continue
		}
		results = append(results, checkRecognizer(cfg, rc)...)
	}
	return results
}

func checkRecognizer(cfg *config.Config, rc config.RecognizerConfig) []Result {
	prefix := rc.ID + " "
	var out []Result
	runCommand, baseDir := rc.RunCommand, rc.BaseDir
	if rc.Bundle != "" {
		b, err := bundle.Load(rc.Bundle)
		if err != nil {
			return append(out, Result{Name: prefix + "bundle", Pass: false, Detail: err.Error()})
		}
		out = append(out, Result{Name: prefix + "bundle", Pass: true, Detail: b.Path})
		if runCommand == "" {
			runCommand = b.RunCommand
		}
		if baseDir == "" {
			baseDir = b.BaseDir
		}
	}
	if baseDir != "" {
		out = append(out, checkDir(prefix+"base dir", baseDir))
	}
	out = append(out, checkRunCommand(prefix+"command", runCommand, baseDir, cfg.Interpreters))
	if rc.Media != "" {
		out = append(out, checkMedia(prefix+"media", rc.Media, rc.Channel))
	}
	return out
}

func checkRunCommand(label, runCommand, baseDir string, interpreters map[string]string) Result {
	args, err := recognizer.BuildArgs(runCommand, interpreters)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	exe := args[0]
	// relative paths are resolved against the base dir by the process
	if baseDir != "" && strings.ContainsAny(exe, `/\`) && !filepath.IsAbs(exe) {
		exe = filepath.Join(baseDir, exe)
	}
	return checkExecutable(label, exe)
}

func checkExecutable(label, cmd string) Result {
	if cmd == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	path := os.ExpandEnv(cmd)
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; point it at an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	// Else search PATH.
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func checkMedia(label, path string, channel int) Result {
	d, err := media.Descriptor(path, channel)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if media.IsWAV(path) {
		if info, err := media.ProbeWAV(path); err == nil {
			return Result{Name: label, Pass: true, Detail: fmt.Sprintf("%s (%d ch, %d Hz, %s)", path, info.Channels, info.SampleRate, info.Duration.Round(time.Millisecond))}
		}
	}
	return Result{Name: label, Pass: true, Detail: fmt.Sprintf("%s (channel %d)", d.MediaFilePath, d.Channel)}
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkDir(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	info, err := os.Stat(os.ExpandEnv(path))
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if !info.IsDir() {
		return Result{Name: label, Pass: false, Detail: "not a directory"}
	}
	return Result{Name: label, Pass: true, Detail: path}
}
