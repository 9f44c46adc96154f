package recognizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"annorec/internal/param"
	"annorec/internal/segment"
)

// Options configures one recognizer session.
type Options struct {
	// ID is the short recognizer identifier sent in the invocation context.
	ID         string
	RunCommand string
	// BaseDir is the working directory of the process.
	BaseDir string
	Params  param.List
	// MediaPath is the input media; dialects may derive it from Params.
	MediaPath string
	// Channel of MediaPath, defaults to 1.
	Channel int
	// OutDir is passed to dialects that write artifacts.
	OutDir string
	// Interpreters maps bare interpreter names to bundled executables.
	Interpreters map[string]string
	// SegmentationName overrides the dialect's segmentation name.
	SegmentationName string
}

// Invocation is what a dialect prepares before the process is spawned.
type Invocation struct {
	Args      []string
	Stdin     []byte
	MediaPath string
	// Preamble lines go to the host report before any output is read.
	Preamble []string
}

// Dialect is the line protocol spoken by a family of recognizers.
// Implementations are stateless; per-run state lives in Session.
type Dialect interface {
	Name() string
	SegmentationName() string
	Prepare(opts Options, now time.Time) (*Invocation, error)
	Classify(line string) Event
	EndOfStream(exitCode int) Event
}

// Standard speaks the RESULT/PROGRESS protocol and receives its parameters
// as an XML envelope on standard input.
type Standard struct {
	// Segmentations defaults to "segments".
	Segmentations string
}

func (Standard) Name() string { return "standard" }

func (d Standard) SegmentationName() string {
	if d.Segmentations != "" {
		return d.Segmentations
	}
	return "segments"
}

func (Standard) Prepare(opts Options, now time.Time) (*Invocation, error) {
	args, err := BuildArgs(opts.RunCommand, opts.Interpreters)
	if err != nil {
		return nil, err
	}
	media := opts.MediaPath
	if media == "" {
		media = firstMediaInput(opts.Params)
	}
	return &Invocation{
		Args:      args,
		Stdin:     Envelope(opts.ID, now, opts.Params),
		MediaPath: media,
	}, nil
}

func (Standard) Classify(line string) Event {
	switch {
	case line == lineDone:
		return Event{Kind: EventDone}
	case line == lineFailed:
		return Event{Kind: EventFailed, Message: "Recognizer failed."}
	case strings.HasPrefix(line, prefixInfo):
		if ev, ok := parseProgress(line[len(prefixInfo):]); ok {
			return ev
		}
		return Event{Kind: EventText}
	case strings.HasPrefix(line, prefixProg):
		if ev, ok := parseProgress(line[len(prefixProg):]); ok {
			return ev
		}
		return Event{Kind: EventText}
	}
	if ev, ok := terminalCode(line); ok {
		return withTerminalMessage(ev, "")
	}
	return Event{Kind: EventText}
}

func (Standard) EndOfStream(int) Event {
	return Event{Kind: EventEndOfStream, Message: "Recognizer stopped; unexpected end of transmission."}
}

// DefaultFPS is used by Shots when no usable frame rate is configured.
const DefaultFPS = 25.0

// Shots speaks the shot boundary detection protocol: arguments go on the
// command line and shots are reported as frame index pairs.
type Shots struct {
	FPS float64
}

func (Shots) Name() string             { return "shots" }
func (Shots) SegmentationName() string { return "shots" }

func (d Shots) fps() float64 {
	if d.FPS > 0 {
		return d.FPS
	}
	return DefaultFPS
}

func (d Shots) Prepare(opts Options, now time.Time) (*Invocation, error) {
	video := opts.MediaPath
	if video == "" {
		if v, ok := opts.Params.Value("--in_video").(string); ok {
			video = v
		}
	}
	if video == "" {
		return nil, ErrNoInput
	}
	args, err := BuildArgs(opts.RunCommand, opts.Interpreters)
	if err != nil {
		return nil, err
	}
	args = append(args, "--in_video", video, "--print_shot_info")
	outDir := opts.OutDir
	if outDir == "" {
		if v, ok := opts.Params.Value("--out_dir").(string); ok {
			outDir = v
		}
	}
	if outDir != "" {
		args = append(args, "--out_dir", outDir)
	}
	return &Invocation{
		Args:      args,
		MediaPath: video,
		Preamble: []string{
			now.Format(time.RFC1123),
			"Starting process with command:",
			strings.Join(args, " "),
		},
	}, nil
}

const shotsPrefix = "shots:"

func (d Shots) Classify(line string) Event {
	if strings.HasPrefix(line, shotsPrefix) {
		return Event{Kind: EventSegments, Segments: ParseShots(line[len(shotsPrefix):], d.fps())}
	}
	if ev, ok := terminalCode(line); ok {
		return withTerminalMessage(ev, " (there may be partial results)")
	}
	return Event{Kind: EventText}
}

func (Shots) EndOfStream(exitCode int) Event {
	if exitCode == 0 {
		return Event{Kind: EventSuccessCode, Message: "Recognizer terminated successfully (exit code: 0)"}
	}
	return Event{
		Kind:    EventEndOfStream,
		Message: fmt.Sprintf("Recognizer stopped unexpectedly with exit code: %d (there may be partial results)", exitCode),
	}
}

// ParseShots converts "[a:b],[c:d]," frame pairs into millisecond segments.
// Malformed pairs are skipped.
func ParseShots(s string, fps float64) []segment.Segment {
	var out []segment.Segment
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "[") || !strings.HasSuffix(part, "]") {
			continue
		}
		a, b, ok := strings.Cut(part[1:len(part)-1], ":")
		if !ok {
			continue
		}
		start, err1 := strconv.Atoi(strings.TrimSpace(a))
		end, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, segment.NewSegment(FrameToMillis(start, fps), FrameToMillis(end, fps), ""))
	}
	return out
}

// FrameToMillis returns frame*1000/fps truncated to whole milliseconds.
func FrameToMillis(frame int, fps float64) int64 {
	return int64(float64(frame) * 1000 / fps)
}

func withTerminalMessage(ev Event, suffix string) Event {
	switch ev.Kind {
	case EventEOT, EventFailureCode:
		ev.Message = "Recognizer failed, end of transmission" + suffix + "."
	case EventSuccessCode:
		ev.Message = "Recognizer terminated successfully."
	}
	return ev
}

func firstMediaInput(params param.List) string {
	for _, p := range params {
		fp, ok := p.(*param.FileParam)
		if !ok || fp.IOType != param.In || fp.FilePath == "" {
			continue
		}
		if fp.ContentType == param.Audio || fp.ContentType == param.Video {
			return NormalizeFilePath(fp.FilePath)
		}
	}
	return ""
}

// DialectByName returns the dialect registered under name ("standard" when
// empty). segmentations overrides the standard segmentation name; fps is
// only used by the shots dialect.
func DialectByName(name, segmentations string, fps float64) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard":
		return Standard{Segmentations: segmentations}, nil
	case "shots":
		return Shots{FPS: fps}, nil
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}
