// Package bundle loads recognizer bundle descriptors: the YAML file that ships
// next to a recognizer executable and declares how to run it and which
// parameters it accepts.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"annorec/internal/param"
	"annorec/internal/recognizer"

	"gopkg.in/yaml.v3"
)

// Bundle describes one installed recognizer.
type Bundle struct {
	ID           string      `yaml:"id"`
	Name         string      `yaml:"name"`
	Dialect      string      `yaml:"dialect"`
	RunCommand   string      `yaml:"run_command"`
	BaseDir      string      `yaml:"base_dir"`
	Segmentation string      `yaml:"segmentation"`
	FPS          float64     `yaml:"fps"`
	Info         string      `yaml:"info"`
	Params       []ParamSpec `yaml:"params"`

	// Path is the descriptor file the bundle was loaded from.
	Path string `yaml:"-"`
}

// ParamSpec is the declaration of one parameter.
type ParamSpec struct {
	ID    string `yaml:"id"`
	Type  string `yaml:"type"` // num, text, file
	Info  string `yaml:"info"`
	Level string `yaml:"level"` // basic, advanced

	// num
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Default   any      `yaml:"default"`
	Precision int      `yaml:"precision"`
	Int       bool     `yaml:"int"`

	// text
	Vocabulary []string `yaml:"vocabulary"`

	// file
	IO       string `yaml:"io"` // in, out
	Content  string `yaml:"content"`
	Path     string `yaml:"path"`
	Optional bool   `yaml:"optional"`
}

// Load reads a descriptor from path. A relative base_dir is resolved against
// the descriptor's directory.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	b, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", path, err)
	}
	b.Path = path
	dir := filepath.Dir(path)
	switch {
	case b.BaseDir == "":
		b.BaseDir = dir
	case !filepath.IsAbs(b.BaseDir):
		b.BaseDir = filepath.Join(dir, b.BaseDir)
	}
	return b, nil
}

// Decode parses a descriptor. Unknown keys are rejected.
func Decode(r io.Reader) (*Bundle, error) {
	b := &Bundle{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(b); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) validate() error {
	var errs []error
	if b.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(b.RunCommand) == "" {
		errs = append(errs, recognizer.ErrNoRunCommand)
	}
	if _, err := recognizer.DialectByName(b.Dialect, b.Segmentation, b.FPS); err != nil {
		errs = append(errs, err)
	}
	if b.FPS < 0 {
		errs = append(errs, fmt.Errorf("fps %g must not be negative", b.FPS))
	}
	return errors.Join(errs...)
}

// DialectFor returns the dialect the bundle speaks.
func (b *Bundle) DialectFor() (recognizer.Dialect, error) {
	return recognizer.DialectByName(b.Dialect, b.Segmentation, b.FPS)
}

// ParamList builds a fresh parameter list from the declarations. Each call
// returns independent values.
func (b *Bundle) ParamList() (param.List, error) {
	list := make(param.List, 0, len(b.Params))
	var errs []error
	for i, spec := range b.Params {
		p, err := spec.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("params[%d] %s: %w", i, spec.ID, err))
			continue
		}
		list = append(list, p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return list, nil
}

func (s ParamSpec) build() (param.Param, error) {
	if s.ID == "" {
		return nil, errors.New("id is required")
	}
	base := param.Common{ID: s.ID, Info: s.Info}
	switch strings.ToLower(s.Level) {
	case "", "basic":
	case "advanced":
		base.Level = param.Advanced
	default:
		return nil, fmt.Errorf("unknown level %q", s.Level)
	}

	switch strings.ToLower(s.Type) {
	case "num", "numeric":
		return s.buildNum(base)
	case "text":
		def := ""
		if s.Default != nil {
			def = fmt.Sprint(s.Default)
		}
		return &param.TextParam{Base: base, DefValue: def, Vocabulary: s.Vocabulary}, nil
	case "file":
		return s.buildFile(base)
	}
	return nil, fmt.Errorf("unknown type %q", s.Type)
}

func (s ParamSpec) buildNum(base param.Common) (param.Param, error) {
	if s.Min == nil || s.Max == nil {
		return nil, errors.New("min and max are required")
	}
	if *s.Min > *s.Max {
		return nil, fmt.Errorf("min %g greater than max %g", *s.Min, *s.Max)
	}
	def := *s.Min
	if s.Default != nil {
		v, ok := toFloat(s.Default)
		if !ok {
			return nil, fmt.Errorf("default %v is not a number", s.Default)
		}
		def = v
	}
	p := param.NewNumParam(base.ID, *s.Min, *s.Max, def)
	p.Base = base
	p.Precision = s.Precision
	if s.Int {
		p.Type = param.Int
	}
	return p, nil
}

func (s ParamSpec) buildFile(base param.Common) (param.Param, error) {
	p := &param.FileParam{Base: base, FilePath: s.Path, Optional: s.Optional}
	switch strings.ToLower(s.IO) {
	case "", "in":
		p.IOType = param.In
	case "out":
		p.IOType = param.Out
	default:
		return nil, fmt.Errorf("unknown io %q", s.IO)
	}
	content := s.Content
	if content == "" {
		content = "audio"
	}
	ct, err := param.ParseContentType(strings.ToLower(content))
	if err != nil {
		return nil, err
	}
	p.ContentType = ct
	return p, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
