package recognizer

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	cases := map[string][]string{
		"java -jar rec.jar":            {"java", "-jar", "rec.jar"},
		`  C:\tools\rec.exe  --fast `: {`C:\tools\rec.exe`, "--fast"},
		`python "my script.py" --x 1`: {"python", "my script.py", "--x", "1"},
		`sh -c 'echo hi'`:              {"sh", "-c", "echo hi"},
	}
	for in, want := range cases {
		got, err := SplitCommand(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%q: got %q, want %q", in, got, want)
		}
	}
	if _, err := SplitCommand("   "); !errors.Is(err, ErrNoRunCommand) {
		t.Fatalf("expected ErrNoRunCommand, got %v", err)
	}
}

func stubLookPath(t *testing.T, found bool) {
	t.Helper()
	orig := lookPath
	lookPath = func(file string) (string, error) {
		if found {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestBuildArgsSubstitutesBundledInterpreter(t *testing.T) {
	dir := t.TempDir()
	bundled := filepath.Join(dir, "java")
	if err := os.WriteFile(bundled, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	interps := map[string]string{"java": bundled}

	stubLookPath(t, false)
	args, err := BuildArgs("java -jar rec.jar", interps)
	if err != nil {
		t.Fatal(err)
	}
	if args[0] != bundled {
		t.Fatalf("expected bundled interpreter, got %q", args[0])
	}

	stubLookPath(t, true)
	args, _ = BuildArgs("java -jar rec.jar", interps)
	if args[0] != "java" {
		t.Fatalf("expected bare name when resolvable, got %q", args[0])
	}
}

func TestBuildArgsKeepsNameWhenBundledMissing(t *testing.T) {
	stubLookPath(t, false)
	args, err := BuildArgs("python rec.py", map[string]string{"python": "/nonexistent/python3"})
	if err != nil {
		t.Fatal(err)
	}
	if args[0] != "python" {
		t.Fatalf("got %q", args[0])
	}
}
