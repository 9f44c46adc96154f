package recognizer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"annorec/internal/logging"
	"annorec/internal/metrics"
	"annorec/internal/segment"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Outcome is how a session ended.
type Outcome int

const (
	Pending Outcome = iota
	Succeeded
	Failed
	Stopped
	LaunchFailed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	case LaunchFailed:
		return "launch_failed"
	}
	return "pending"
}

// maxReadFailures bounds consecutive read errors before the output is
// treated as closed.
const maxReadFailures = 16

// Session owns one run of an external recognizer process.
type Session struct {
	dialect  Dialect
	opts     Options
	host     Host
	dispatch Dispatcher
	logger   *logrus.Logger
	metrics  *metrics.Metrics

	running atomic.Bool

	mu        sync.Mutex
	id        string
	log       *logrus.Entry
	cmd       *exec.Cmd
	out       *os.File
	startTime time.Time
	mediaPath string
	outcome   Outcome
	done      chan struct{}
	exitCode  int

	// owned by the reader goroutine; Start resets them before spawning it
	segments     []segment.Segment
	finalized    bool
	lastProgress float32
}

// NewSession prepares a session; nothing runs until Start. A nil dispatcher
// means Inline; nil metrics disables instrumentation.
func NewSession(d Dialect, opts Options, host Host, dispatch Dispatcher, logger *logrus.Logger, m *metrics.Metrics) *Session {
	if dispatch == nil {
		dispatch = Inline
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Channel == 0 {
		opts.Channel = 1
	}
	done := make(chan struct{})
	close(done)
	s := &Session{
		dialect:  d,
		opts:     opts,
		host:     host,
		dispatch: dispatch,
		logger:   logger,
		metrics:  m,
		done:     done,
	}
	s.log = logger.WithFields(logrus.Fields{"recognizer": opts.ID, "dialect": d.Name()})
	return s
}

// ID returns the identifier of the current or last run.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Running reports whether the process is still being supervised.
func (s *Session) Running() bool { return s.running.Load() }

// Done is closed when the reader goroutine of the current run has exited.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Wait blocks until the reader exits or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome reports how the last run ended.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// StartTime is the start of the last run, truncated to whole seconds.
func (s *Session) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

// IsFresh reports whether path was modified during the last run.
func (s *Session) IsFresh(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return !info.ModTime().Before(s.StartTime()), nil
}

// Start spawns the process and the reader goroutine and returns without
// waiting for output. Launch failures are reported to the host and returned;
// everything after a successful spawn is reported to the host only.
// A session can be started again once Done of the previous run is closed.
func (s *Session) Start() error {
	if s.running.Load() {
		return ErrAlreadyRunning
	}
	now := time.Now()

	s.mu.Lock()
	select {
	case <-s.done:
	default:
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.id = uuid.NewString()
	s.log = s.logger.WithFields(logrus.Fields{"recognizer": s.opts.ID, "dialect": s.dialect.Name(), "session": s.id})
	s.outcome = Pending
	s.mu.Unlock()
	s.segments = nil
	s.finalized = false

	if strings.TrimSpace(s.opts.RunCommand) == "" {
		return s.launchFailed("No run command found", ErrNoRunCommand)
	}
	inv, err := s.dialect.Prepare(s.opts, now)
	if err != nil {
		if errors.Is(err, ErrNoInput) {
			return s.launchFailed("No video input has been specified", err)
		}
		return s.launchFailed("Could not run the recognizer: "+err.Error(), err)
	}

	s.lastProgress = -1
	s.progress(-1)

	pr, pw, err := os.Pipe()
	if err != nil {
		return s.launchFailed("Could not run the recognizer: "+err.Error(), err)
	}
	cmd := exec.Command(inv.Args[0], inv.Args[1:]...)
	cmd.Dir = s.opts.BaseDir
	setProcessGroup(cmd)
	cmd.Stdout = pw
	cmd.Stderr = pw
	var stdin io.WriteCloser
	if inv.Stdin != nil {
		if stdin, err = cmd.StdinPipe(); err != nil {
			_ = pr.Close()
			_ = pw.Close()
			return s.launchFailed("Could not run the recognizer: "+err.Error(), err)
		}
	}
	s.log.WithField("dir", s.opts.BaseDir).Infof("starting recognizer: %s", strings.Join(inv.Args, " "))
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return s.launchFailed("Could not run the recognizer: "+err.Error(), err)
	}
	_ = pw.Close()

	done := make(chan struct{})
	exited := make(chan struct{})
	s.mu.Lock()
	s.cmd = cmd
	s.out = pr
	s.startTime = now.Truncate(time.Second)
	s.mediaPath = inv.MediaPath
	s.done = done
	s.exitCode = 0
	s.mu.Unlock()
	s.running.Store(true)
	s.metrics.SessionStarted(context.Background(), s.opts.ID, s.dialect.Name())

	for _, line := range inv.Preamble {
		s.report(line)
	}

	go s.read(pr, done, exited)

	if stdin != nil {
		if _, err := stdin.Write(inv.Stdin); err != nil {
			s.log.Warnf("write parameters: %v", err)
		}
		if err := stdin.Close(); err != nil {
			s.log.Debugf("close process input: %v", err)
		}
	}
	go s.reap(cmd, exited)
	return nil
}

// Stop kills the recognizer and everything it forked. The reader then
// delivers whatever was parsed so far and closes Done. Stop never waits for
// the reader; calling it when not running is a no-op.
func (s *Session) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.mu.Lock()
	cmd, out, log := s.cmd, s.out, s.log
	s.mu.Unlock()
	log.Info("stopping recognizer")
	if cmd != nil && cmd.Process != nil {
		if err := killProcess(cmd); err != nil {
			log.Warnf("kill recognizer: %v", err)
		}
	}
	// unblocks the reader if something outside the process group still
	// holds the write end
	if out != nil {
		_ = out.Close()
	}
}

func (s *Session) launchFailed(msg string, err error) error {
	s.log.Error(msg)
	s.report(msg)
	s.errorOccurred(msg)
	s.mu.Lock()
	s.outcome = LaunchFailed
	s.mu.Unlock()
	s.metrics.SessionEnded(context.Background(), s.opts.ID, s.dialect.Name(), LaunchFailed.String(), 0)
	return fmt.Errorf("start %s: %w", s.opts.ID, err)
}

func (s *Session) reap(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	code := 0
	if err != nil {
		code = -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		}
	}
	s.mu.Lock()
	s.exitCode = code
	s.mu.Unlock()
	s.log.Debugf("recognizer exited with code %d", code)
	close(exited)
}

func (s *Session) read(pr *os.File, done, exited chan struct{}) {
	defer close(done)
	defer pr.Close()
	defer func() {
		if !s.finalized {
			s.finish(Stopped)
		}
	}()

	r := bufio.NewReader(pr)
	failures := 0
	for s.running.Load() {
		line, err := r.ReadString('\n')
		if err == nil || line != "" {
			line = strings.TrimRight(line, "\r\n")
			if s.handleLine(line) {
				return
			}
		}
		if err == nil {
			failures = 0
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
			s.endOfStream(exited)
			return
		}
		failures++
		s.log.Infof("reading recognizer output: %v", err)
		if failures >= maxReadFailures {
			s.endOfStream(exited)
			return
		}
	}
}

// handleLine reports the line and acts on its classification. It returns
// true once the session has reached a terminal state.
func (s *Session) handleLine(line string) bool {
	s.report(line)
	ev := s.dialect.Classify(line)
	s.metrics.LineRead(context.Background(), s.opts.ID, ev.Kind.String())
	if !s.running.Load() {
		return true
	}
	return s.handle(ev)
}

func (s *Session) endOfStream(exited chan struct{}) {
	if !s.running.Load() {
		return
	}
	<-exited
	s.mu.Lock()
	code := s.exitCode
	s.mu.Unlock()
	s.handle(s.dialect.EndOfStream(code))
}

func (s *Session) handle(ev Event) bool {
	if !ev.Terminal() {
		switch ev.Kind {
		case EventProgress:
			s.progressMessage(ev.Progress, ev.Message)
		case EventSegments:
			s.segments = append(s.segments, ev.Segments...)
		}
		return false
	}

	if !s.running.CompareAndSwap(true, false) {
		return true
	}
	if ev.Failure() {
		msg := ev.Message
		if msg == "" {
			msg = "Recognizer failed."
		}
		s.log.Warn(msg)
		s.errorOccurred(msg)
		if ev.Kind != EventFailed {
			s.report(msg)
		}
		s.finish(Failed)
		return true
	}
	if ev.Kind == EventDone {
		s.log.Info("recognizer done")
		s.finish(Succeeded)
		s.progress(1)
		return true
	}
	s.log.Info(ev.Message)
	if ev.Message != "" {
		s.report(ev.Message)
	}
	s.progress(1)
	s.finish(Succeeded)
	return true
}

// finish delivers the accumulated segments exactly once per run. Only the
// reader goroutine calls it.
func (s *Session) finish(outcome Outcome) {
	if s.finalized {
		return
	}
	s.finalized = true
	segs := s.segments
	s.segments = nil
	s.mu.Lock()
	s.outcome = outcome
	media := s.mediaPath
	started := s.startTime
	s.mu.Unlock()

	name := s.opts.SegmentationName
	if name == "" {
		name = s.dialect.SegmentationName()
	}
	seg := segment.NewWithChannel(name, segs, media, s.opts.Channel)
	s.log.WithField("segments", len(segs)).Infof("recognizer finished: %s", outcome)
	s.metrics.SegmentsDelivered(context.Background(), s.opts.ID, len(segs))
	s.metrics.SessionEnded(context.Background(), s.opts.ID, s.dialect.Name(), outcome.String(), time.Since(started))
	s.dispatch.Dispatch(func() { s.host.AddSegmentation(seg) })
}

// progress and progressMessage keep reported values non-decreasing.
func (s *Session) progress(p float32) {
	if p < s.lastProgress {
		p = s.lastProgress
	}
	s.lastProgress = p
	s.dispatch.Dispatch(func() { s.host.SetProgress(p) })
}

func (s *Session) progressMessage(p float32, msg string) {
	if msg == "" {
		s.progress(p)
		return
	}
	if p < s.lastProgress {
		p = s.lastProgress
	}
	s.lastProgress = p
	s.dispatch.Dispatch(func() { s.host.SetProgressMessage(p, msg) })
}

func (s *Session) report(line string) {
	text := line + "\n"
	s.dispatch.Dispatch(func() { s.host.AppendToReport(text) })
}

func (s *Session) errorOccurred(msg string) {
	s.dispatch.Dispatch(func() { s.host.ErrorOccurred(msg) })
}
