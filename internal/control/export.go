package control

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"annorec/internal/segment"
)

// Export is the JSON document written for each delivered segmentation.
type Export struct {
	Recognizer   string               `json:"recognizer"`
	CreatedAt    time.Time            `json:"created_at"`
	Segmentation segment.Segmentation `json:"segmentation"`
}

var unsafeName = strings.NewReplacer("/", "_", `\`, "_", ":", "_", " ", "_")

// WriteSegmentation exports seg into dir and returns the file path.
func WriteSegmentation(dir, recognizerID string, seg *segment.Segmentation, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s-%s.json", unsafeName.Replace(recognizerID), unsafeName.Replace(seg.Name), now.Format("20060102-150405"))
	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(Export{Recognizer: recognizerID, CreatedAt: now, Segmentation: *seg}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSegmentation loads an exported segmentation.
func ReadSegmentation(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &exp, nil
}
