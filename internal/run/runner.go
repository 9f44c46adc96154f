package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"annorec/internal/config"
	"annorec/internal/metrics"
	"annorec/internal/param"
	"annorec/internal/recognizer"
	"annorec/internal/segment"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// stopGrace bounds how long a stopped session may take to release its output.
const stopGrace = 5 * time.Second

// HostFactory returns the host that receives one job's callbacks.
type HostFactory func(job *Job) recognizer.Host

// Result is what one job produced.
type Result struct {
	ID           string
	Outcome      recognizer.Outcome
	Segmentation *segment.Segmentation
	// Fresh lists output files written during the run.
	Fresh     []string
	StartTime time.Time
	// Err is set when the recognizer could not be launched.
	Err error
}

// Runner starts jobs concurrently and waits for them.
type Runner struct {
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
	newHost HostFactory
}

// NewRunner creates a Runner; m may be nil.
func NewRunner(cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics, newHost HostFactory) *Runner {
	return &Runner{cfg: cfg, logger: logger, metrics: m, newHost: newHost}
}

// Run starts every job, at most cfg.Run.MaxParallel at a time, and returns
// one result per job in input order. Cancelling ctx stops running sessions;
// their partial results are still returned alongside ctx's error.
func (r *Runner) Run(ctx context.Context, jobs []*Job) ([]Result, error) {
	queue := recognizer.NewEventQueue(r.cfg.Run.EventQueue)
	results := make([]Result, len(jobs))
	collectors := make([]*collector, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.Run.MaxParallel > 0 {
		g.SetLimit(r.cfg.Run.MaxParallel)
	}
	for i, job := range jobs {
		col := newCollector(r.newHost(job), r.logger.WithField("recognizer", job.ID))
		collectors[i] = col
		g.Go(func() error {
			var err error
			results[i], err = r.runJob(gctx, job, col, queue)
			return err
		})
	}
	err := g.Wait()
	// host callbacks, including deliveries, run on the queue
	queue.Close()

	for i := range results {
		results[i].ID = jobs[i].ID
		results[i].Segmentation = collectors[i].segmentation()
	}
	return results, err
}

// runJob returns the job's result and, when ctx ended the run, ctx's error.
// Launch failures only go into the result so other jobs keep running.
func (r *Runner) runJob(ctx context.Context, job *Job, host recognizer.Host, queue recognizer.Dispatcher) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Outcome: recognizer.Pending}, err
	}
	s := recognizer.NewSession(job.Dialect, job.Options, host, queue, r.logger, r.metrics)
	if err := s.Start(); err != nil {
		return Result{Outcome: s.Outcome(), Err: err}, nil
	}
	var err error
	select {
	case <-s.Done():
	case <-ctx.Done():
		s.Stop()
		waitCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
		if werr := s.Wait(waitCtx); werr != nil {
			r.logger.WithField("recognizer", job.ID).Warnf("output still open after stop: %v", werr)
		}
		cancel()
		err = ctx.Err()
	}
	return Result{
		Outcome:   s.Outcome(),
		StartTime: s.StartTime(),
		Fresh:     freshOutputs(s, job.Options.Params),
	}, err
}

// freshOutputs lists OUT file params written during the session's run.
func freshOutputs(s *recognizer.Session, params param.List) []string {
	var out []string
	for _, p := range params {
		fp, ok := p.(*param.FileParam)
		if !ok || fp.IOType != param.Out || fp.FilePath == "" {
			continue
		}
		if fresh, err := s.IsFresh(recognizer.NormalizeFilePath(fp.FilePath)); err == nil && fresh {
			out = append(out, fp.FilePath)
		}
	}
	return out
}

// Serve runs jobs until they finish or SIGINT/SIGTERM arrives, exposing
// metrics while they run when configured.
func Serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger, jobs []*Job, newHost HostFactory) ([]Result, error) {
	if len(jobs) == 0 {
		return nil, errors.New("no recognizers to run")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		shutdown, err := metrics.InitProvider()
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Debugf("metrics shutdown: %v", err)
			}
		}()
		m = metrics.Default()
		go metrics.Serve(ctx, cfg.Metrics.Addr, logger)
	}

	// Handle signals
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case s := <-sigCh:
			logger.Infof("received signal %s, stopping recognizers", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	results, err := NewRunner(cfg, logger, m, newHost).Run(ctx, jobs)
	cancel()
	wg.Wait()
	return results, err
}

// ResolveAll resolves every enabled recognizer, or only those named in ids.
func ResolveAll(cfg *config.Config, ids []string) ([]*Job, error) {
	var entries []config.RecognizerConfig
	if len(ids) == 0 {
		entries = cfg.Enabled()
	} else {
		for _, id := range ids {
			rc, ok := cfg.Recognizer(id)
			if !ok {
				return nil, fmt.Errorf("unknown recognizer %q", id)
			}
			entries = append(entries, *rc)
		}
	}
	jobs := make([]*Job, 0, len(entries))
	var errs []error
	for _, rc := range entries {
		job, err := Resolve(cfg, rc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Join(errs...)
}
