package control

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"annorec/internal/segment"
)

// Host prints recognizer callbacks to the terminal and exports delivered
// segmentations as JSON into the report directory.
type Host struct {
	id        string
	out       io.Writer
	errOut    io.Writer
	reportDir string
	quiet     bool
	now       func() time.Time

	mu       sync.Mutex
	lastPct  int
	exported string
	errs     []string
}

// NewHost creates a host for one recognizer. With quiet set, report lines
// are not echoed.
func NewHost(id string, out, errOut io.Writer, reportDir string, quiet bool) *Host {
	return &Host{
		id:        id,
		out:       out,
		errOut:    errOut,
		reportDir: reportDir,
		quiet:     quiet,
		now:       time.Now,
		lastPct:   -2,
	}
}

func (h *Host) SetProgress(p float32) {
	h.SetProgressMessage(p, "")
}

func (h *Host) SetProgressMessage(p float32, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pct := -1
	if p >= 0 {
		pct = int(p * 100)
	}
	if pct == h.lastPct && msg == "" {
		return
	}
	h.lastPct = pct
	switch {
	case pct < 0:
		fmt.Fprintf(h.out, "[%s] working...\n", h.id)
	case msg != "":
		fmt.Fprintf(h.out, "[%s] %3d%% %s\n", h.id, pct, msg)
	default:
		fmt.Fprintf(h.out, "[%s] %3d%%\n", h.id, pct)
	}
}

func (h *Host) AppendToReport(text string) {
	if h.quiet {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(h.out, "[%s] | %s\n", h.id, line)
	}
}

func (h *Host) ErrorOccurred(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, msg)
	fmt.Fprintf(h.errOut, "[%s] error: %s\n", h.id, msg)
}

func (h *Host) AddSegmentation(seg *segment.Segmentation) {
	path, err := WriteSegmentation(h.reportDir, h.id, seg, h.now())
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		fmt.Fprintf(h.errOut, "[%s] export %s: %v\n", h.id, seg.Name, err)
		return
	}
	h.exported = path
	fmt.Fprintf(h.out, "[%s] %d segments in %q -> %s\n", h.id, len(seg.Segments), seg.Name, path)
}

// Exported is the path of the last exported segmentation.
func (h *Host) Exported() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exported
}

// Errors returns the error messages reported so far.
func (h *Host) Errors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.errs...)
}
