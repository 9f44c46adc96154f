// Package param models the typed parameters passed to a recognizer run.
package param

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Level groups parameters for presentation.
type Level int

const (
	Basic Level = iota
	Advanced
)

func (l Level) String() string {
	if l == Advanced {
		return "advanced"
	}
	return "basic"
}

// NumType tells whether a numeric parameter holds integers or floats.
type NumType int

const (
	Float NumType = iota
	Int
)

// IOType is the direction of a file parameter.
type IOType int

const (
	In IOType = iota
	Out
)

// ContentType describes what a file parameter points at.
type ContentType int

const (
	Audio ContentType = iota
	Video
	Tier
	MultiTier
	CSVTier
	Timeseries
	CSVTimeseries
	Auxiliary
)

var contentNames = map[ContentType]string{
	Audio:         "audio",
	Video:         "video",
	Tier:          "tier",
	MultiTier:     "multitier",
	CSVTier:       "csv_tier",
	Timeseries:    "timeseries",
	CSVTimeseries: "csv_timeseries",
	Auxiliary:     "auxiliary",
}

func (c ContentType) String() string {
	if s, ok := contentNames[c]; ok {
		return s
	}
	return fmt.Sprintf("content(%d)", int(c))
}

// ParseContentType maps a descriptor name to a ContentType.
func ParseContentType(s string) (ContentType, error) {
	for k, v := range contentNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown content type %q", s)
}

// Unset marks a NumParam whose current value has not been chosen.
const Unset = -math.MaxFloat64

// Common holds the fields shared by every parameter variant.
type Common struct {
	ID    string
	Info  string
	Level Level
}

// Param is one of *NumParam, *TextParam or *FileParam.
type Param interface {
	Common() *Common
	clone() Param
}

// NumParam is a bounded numeric parameter.
type NumParam struct {
	Base      Common
	Min       float64
	Max       float64
	Def       float64
	Current   float64
	Precision int
	Type      NumType
}

// NewNumParam returns a NumParam with no current value.
func NewNumParam(id string, min, max, def float64) *NumParam {
	return &NumParam{Base: Common{ID: id}, Min: min, Max: max, Def: def, Current: Unset}
}

func (p *NumParam) Common() *Common { return &p.Base }

func (p *NumParam) clone() Param {
	c := *p
	return &c
}

// Value returns the current value, or the default when unset.
func (p *NumParam) Value() float64 {
	if p.Current != Unset {
		return p.Current
	}
	return p.Def
}

// TextParam is a free text parameter, optionally limited to a vocabulary.
type TextParam struct {
	Base       Common
	DefValue   string
	CurValue   *string
	Vocabulary []string
}

func (p *TextParam) Common() *Common { return &p.Base }

func (p *TextParam) clone() Param {
	c := *p
	if p.CurValue != nil {
		v := *p.CurValue
		c.CurValue = &v
	}
	c.Vocabulary = slices.Clone(p.Vocabulary)
	return &c
}

// Value returns the current value, or the default when none was set.
func (p *TextParam) Value() string {
	if p.CurValue != nil {
		return *p.CurValue
	}
	return p.DefValue
}

// FileParam points at an input or output file of the recognizer.
type FileParam struct {
	Base        Common
	IOType      IOType
	ContentType ContentType
	FilePath    string
	Optional    bool
}

func (p *FileParam) Common() *Common { return &p.Base }

func (p *FileParam) clone() Param {
	c := *p
	return &c
}

// List is the ordered parameter set of one recognizer configuration.
type List []Param

// Clone deep-copies the list so a recognizer can mutate it freely.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, 0, len(l))
	for _, p := range l {
		out = append(out, p.clone())
	}
	return out
}

// Lookup returns the parameter with the given id.
func (l List) Lookup(id string) (Param, bool) {
	if id == "" {
		return nil, false
	}
	for _, p := range l {
		if p.Common().ID == id {
			return p, true
		}
	}
	return nil, false
}

// Value returns the effective value of a parameter: float64 for numeric,
// string for text and file parameters. Unknown ids yield nil.
func (l List) Value(id string) any {
	p, ok := l.Lookup(id)
	if !ok {
		return nil
	}
	switch v := p.(type) {
	case *NumParam:
		return v.Value()
	case *TextParam:
		return v.Value()
	case *FileParam:
		return v.FilePath
	}
	return nil
}

// SetText sets a text value or a file path. Ids of other kinds are ignored.
func (l List) SetText(id, value string) {
	p, ok := l.Lookup(id)
	if !ok {
		return
	}
	switch v := p.(type) {
	case *TextParam:
		v.CurValue = &value
	case *FileParam:
		v.FilePath = value
	}
}

// SetNum sets the current value of a numeric parameter.
func (l List) SetNum(id string, value float64) {
	if p, ok := l.Lookup(id); ok {
		if n, ok := p.(*NumParam); ok {
			n.Current = value
		}
	}
}

// Set assigns a value given as text, parsing it for numeric parameters.
// Unlike SetText and SetNum it reports unknown ids and unparsable numbers.
func (l List) Set(id, value string) error {
	p, ok := l.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown parameter %q", id)
	}
	if _, isNum := p.(*NumParam); isNum {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return &ValidationError{ID: id, Reason: fmt.Sprintf("%q is not a number", value)}
		}
		l.SetNum(id, f)
		return nil
	}
	l.SetText(id, value)
	return nil
}

// CanCombineMultipleFiles reports whether the list takes more than one
// audio or video input.
func (l List) CanCombineMultipleFiles() bool {
	media := 0
	for _, p := range l {
		fp, ok := p.(*FileParam)
		if !ok || fp.IOType != In {
			continue
		}
		if fp.ContentType == Audio || fp.ContentType == Video {
			media++
		}
	}
	return media > 1
}

// ValidationError describes one invalid parameter.
type ValidationError struct {
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("param %s: %s", e.ID, e.Reason)
}

// Validate checks ranges, vocabularies and required input files.
func (l List) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(l))
	for _, p := range l {
		id := p.Common().ID
		if id == "" {
			errs = append(errs, &ValidationError{ID: "?", Reason: "missing id"})
			continue
		}
		if seen[id] {
			errs = append(errs, &ValidationError{ID: id, Reason: "duplicate id"})
		}
		seen[id] = true
		switch v := p.(type) {
		case *NumParam:
			val := v.Value()
			if val < v.Min || val > v.Max {
				errs = append(errs, &ValidationError{ID: id, Reason: fmt.Sprintf("value %g outside [%g, %g]", val, v.Min, v.Max)})
			}
		case *TextParam:
			if len(v.Vocabulary) > 0 && v.Value() != "" && !slices.Contains(v.Vocabulary, v.Value()) {
				errs = append(errs, &ValidationError{ID: id, Reason: fmt.Sprintf("value %q not in vocabulary", v.Value())})
			}
		case *FileParam:
			if v.IOType == In && !v.Optional && v.FilePath == "" {
				errs = append(errs, &ValidationError{ID: id, Reason: "required input file not set"})
			}
		}
	}
	return errors.Join(errs...)
}
