package run

import (
	"fmt"
	"maps"
	"slices"

	"annorec/internal/bundle"
	"annorec/internal/config"
	"annorec/internal/param"
	"annorec/internal/recognizer"
)

// Job is a configured recognizer resolved against its bundle, ready to start.
type Job struct {
	ID      string
	Name    string
	Dialect recognizer.Dialect
	Options recognizer.Options
}

// Resolve merges a recognizer entry with its bundle descriptor. Entry fields
// override the bundle; params are applied on a fresh list.
func Resolve(cfg *config.Config, rc config.RecognizerConfig) (*Job, error) {
	dialect, segName, fps := rc.Dialect, rc.Segmentation, rc.FPS
	runCommand, baseDir, name := rc.RunCommand, rc.BaseDir, rc.Name
	var params param.List

	if rc.Bundle != "" {
		b, err := bundle.Load(rc.Bundle)
		if err != nil {
			return nil, fmt.Errorf("recognizer %s: %w", rc.ID, err)
		}
		if params, err = b.ParamList(); err != nil {
			return nil, fmt.Errorf("recognizer %s: %w", rc.ID, err)
		}
		dialect = firstNonEmpty(dialect, b.Dialect)
		segName = firstNonEmpty(segName, b.Segmentation)
		runCommand = firstNonEmpty(runCommand, b.RunCommand)
		baseDir = firstNonEmpty(baseDir, b.BaseDir)
		name = firstNonEmpty(name, b.Name)
		if fps == 0 {
			fps = b.FPS
		}
	}

	d, err := recognizer.DialectByName(dialect, segName, fps)
	if err != nil {
		return nil, fmt.Errorf("recognizer %s: %w", rc.ID, err)
	}
	if err := applyOverrides(params, rc.Params); err != nil {
		return nil, fmt.Errorf("recognizer %s: %w", rc.ID, err)
	}
	if rc.Media != "" {
		setMediaInput(params, rc.Media)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("recognizer %s: %w", rc.ID, err)
	}

	return &Job{
		ID:      rc.ID,
		Name:    firstNonEmpty(name, rc.ID),
		Dialect: d,
		Options: recognizer.Options{
			ID:               rc.ID,
			RunCommand:       runCommand,
			BaseDir:          baseDir,
			Params:           params,
			MediaPath:        rc.Media,
			Channel:          rc.Channel,
			OutDir:           rc.OutDir,
			Interpreters:     cfg.Interpreters,
			SegmentationName: rc.Segmentation,
		},
	}, nil
}

// applyOverrides sets configured values in id order so errors are stable.
func applyOverrides(params param.List, values map[string]string) error {
	for _, id := range slices.Sorted(maps.Keys(values)) {
		if err := params.Set(id, values[id]); err != nil {
			return err
		}
	}
	return nil
}

// setMediaInput fills the first unset audio or video input with path.
func setMediaInput(params param.List, path string) {
	for _, p := range params {
		fp, ok := p.(*param.FileParam)
		if !ok || fp.IOType != param.In || fp.FilePath != "" {
			continue
		}
		if fp.ContentType == param.Audio || fp.ContentType == param.Video {
			fp.FilePath = path
			return
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
