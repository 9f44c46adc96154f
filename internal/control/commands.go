package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"annorec/internal/bundle"
	"annorec/internal/config"
	"annorec/internal/doctor"
	"annorec/internal/logging"
	"annorec/internal/param"
	"annorec/internal/recognizer"
	"annorec/internal/run"
	"annorec/internal/segment"

	"github.com/spf13/cobra"
)

// Summary is the per-recognizer outcome printed after a run.
type Summary struct {
	ID       string   `json:"id"`
	Outcome  string   `json:"outcome"`
	Segments int      `json:"segments"`
	Export   string   `json:"export,omitempty"`
	Fresh    []string `json:"fresh_outputs,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// NewRunCmd runs configured recognizers.
func NewRunCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [recognizer-id...]",
		Short: "Run configured recognizers (all enabled ones by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadForRun(cmd, *cfgPath)
			if err != nil {
				return err
			}
			jobs, err := run.ResolveAll(cfg, args)
			if err != nil {
				return err
			}
			return runJobs(cmd, cfg, jobs)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// NewShotsCmd runs a shot boundary detector on one video.
func NewShotsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shots <video>",
		Short: "Detect shot boundaries in a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadForRun(cmd, *cfgPath)
			if err != nil {
				return err
			}
			job := &run.Job{ID: "shots", Name: "shots"}
			opts := recognizer.Options{ID: "shots", MediaPath: args[0], Interpreters: cfg.Interpreters}
			fps := 0.0
			for _, rc := range cfg.Enabled() {
				if strings.EqualFold(rc.Dialect, "shots") {
					job.ID, opts.ID = rc.ID, rc.ID
					opts.RunCommand, opts.BaseDir, opts.OutDir, fps = rc.RunCommand, rc.BaseDir, rc.OutDir, rc.FPS
					break
				}
			}
			if v, _ := cmd.Flags().GetString("command"); v != "" {
				opts.RunCommand = v
			}
			if v, _ := cmd.Flags().GetString("base-dir"); v != "" {
				opts.BaseDir = v
			}
			if v, _ := cmd.Flags().GetString("out-dir"); v != "" {
				opts.OutDir = v
			}
			if cmd.Flags().Changed("fps") {
				fps, _ = cmd.Flags().GetFloat64("fps")
			}
			if opts.RunCommand == "" {
				return fmt.Errorf("%w: pass --command or configure a recognizer with dialect \"shots\"", recognizer.ErrNoRunCommand)
			}
			job.Dialect = recognizer.Shots{FPS: fps}
			job.Options = opts
			return runJobs(cmd, cfg, []*run.Job{job})
		},
	}
	cmd.Flags().String("command", "", "detector run command")
	cmd.Flags().String("base-dir", "", "working directory of the detector")
	cmd.Flags().String("out-dir", "", "directory for detector artifacts")
	cmd.Flags().Float64("fps", recognizer.DefaultFPS, "frames per second of the video")
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("metrics-addr", "", "enable metrics at address (e.g., 127.0.0.1:9318) for this run")
	cmd.Flags().BoolP("quiet", "q", false, "do not echo recognizer output")
	cmd.Flags().Bool("json", false, "print the summary as JSON")
}

func loadForRun(cmd *cobra.Command, cfgPath string) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
		cfg.Metrics.Enabled = true
	}
	return cfg, nil
}

func runJobs(cmd *cobra.Command, cfg *config.Config, jobs []*run.Job) error {
	logger, err := logging.Configure(cfg)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	jsonOut, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	progressOut := out
	if jsonOut {
		progressOut = cmd.ErrOrStderr()
	}

	hosts := map[string]*Host{}
	results, runErr := run.Serve(cmd.Context(), cfg, logger, jobs, func(job *run.Job) recognizer.Host {
		h := NewHost(job.ID, progressOut, cmd.ErrOrStderr(), cfg.Paths.ReportDir, quiet)
		hosts[job.ID] = h
		return h
	})
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	summaries := summarize(results, hosts)
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summaries); err != nil {
			return err
		}
	} else {
		printSummaries(out, summaries)
	}

	failed := 0
	for _, s := range summaries {
		if s.Outcome != recognizer.Succeeded.String() {
			failed++
		}
	}
	if runErr != nil {
		return fmt.Errorf("interrupted: %w", runErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d recognizers did not succeed", failed, len(summaries))
	}
	return nil
}

func summarize(results []run.Result, hosts map[string]*Host) []Summary {
	out := make([]Summary, 0, len(results))
	for _, r := range results {
		s := Summary{ID: r.ID, Outcome: r.Outcome.String(), Fresh: r.Fresh}
		if r.Segmentation != nil {
			s.Segments = len(r.Segmentation.Segments)
		}
		if h, ok := hosts[r.ID]; ok {
			s.Export = h.Exported()
			s.Errors = h.Errors()
		}
		out = append(out, s)
	}
	return out
}

func printSummaries(w io.Writer, summaries []Summary) {
	for _, s := range summaries {
		fmt.Fprintf(w, "%-16s %-14s %5d segments", s.ID, s.Outcome, s.Segments)
		if s.Export != "" {
			fmt.Fprintf(w, "  %s", s.Export)
		}
		fmt.Fprintln(w)
		for _, f := range s.Fresh {
			fmt.Fprintf(w, "%-16s output %s\n", "", f)
		}
	}
}

// NewParamsCmd shows a recognizer's parameters and their effective values.
func NewParamsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params <recognizer-id|bundle.yaml>",
		Short: "Show recognizer parameters and effective values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams(*cfgPath, args[0])
			if err != nil {
				return err
			}
			sets, _ := cmd.Flags().GetStringArray("set")
			for _, kv := range sets {
				id, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--set %q: expected id=value", kv)
				}
				if err := params.Set(id, value); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			printParams(out, params)
			if params.CanCombineMultipleFiles() {
				fmt.Fprintln(out, "accepts multiple media files")
			}
			if err := params.Validate(); err != nil {
				fmt.Fprintf(out, "invalid:\n%v\n", err)
				return errors.New("parameters are not valid")
			}
			return nil
		},
	}
	cmd.Flags().StringArray("set", nil, "override a value (id=value), repeatable")
	return cmd
}

func loadParams(cfgPath, target string) (param.List, error) {
	if strings.HasSuffix(target, ".yaml") || strings.HasSuffix(target, ".yml") {
		b, err := bundle.Load(target)
		if err != nil {
			return nil, err
		}
		return b.ParamList()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	rc, ok := cfg.Recognizer(target)
	if !ok {
		return nil, fmt.Errorf("unknown recognizer %q", target)
	}
	if rc.Bundle == "" {
		return nil, nil
	}
	b, err := bundle.Load(rc.Bundle)
	if err != nil {
		return nil, err
	}
	params, err := b.ParamList()
	if err != nil {
		return nil, err
	}
	for id, v := range rc.Params {
		if err := params.Set(id, v); err != nil {
			return nil, err
		}
	}
	return params, nil
}

func printParams(w io.Writer, params param.List) {
	fmt.Fprintf(w, "%-20s %-6s %-9s %-24s %s\n", "ID", "TYPE", "LEVEL", "VALUE", "DETAIL")
	for _, p := range params {
		c := p.Common()
		var kind, detail string
		switch v := p.(type) {
		case *param.NumParam:
			kind = "num"
			detail = fmt.Sprintf("[%g, %g] default %g", v.Min, v.Max, v.Def)
			if v.Type == param.Int {
				kind = "int"
			}
		case *param.TextParam:
			kind = "text"
			if len(v.Vocabulary) > 0 {
				detail = "one of " + strings.Join(v.Vocabulary, ", ")
			}
		case *param.FileParam:
			kind = "file"
			dir := "in"
			if v.IOType == param.Out {
				dir = "out"
			}
			detail = dir + " " + v.ContentType.String()
			if v.Optional {
				detail += " (optional)"
			}
		}
		if c.Info != "" {
			detail = strings.TrimSpace(detail + "  " + c.Info)
		}
		fmt.Fprintf(w, "%-20s %-6s %-9s %-24v %s\n", c.ID, kind, c.Level, params.Value(c.ID), detail)
	}
}

// NewBoundariesCmd queries boundaries of an exported segmentation.
func NewBoundariesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boundaries <segmentation.json> [time-ms...]",
		Short: "Query segment boundaries around times",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := ReadSegmentation(args[0])
			if err != nil {
				return err
			}
			idx := segment.NewIndexFor(&exp.Segmentation)
			out := cmd.OutOrStdout()
			if list, _ := cmd.Flags().GetBool("list"); list {
				for _, b := range idx.Boundaries() {
					fmt.Fprintf(out, "%10d  %s\n", b.Time, b.Label)
				}
			}
			for _, arg := range args[1:] {
				t, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("time %q: %w", arg, err)
				}
				fmt.Fprintf(out, "%d: before %d, after %s\n", t, idx.BoundaryTimeBefore(t), formatTime(idx.BoundaryTimeAfter(t)))
			}
			if between, _ := cmd.Flags().GetString("between"); between != "" {
				a, b, ok := strings.Cut(between, ":")
				begin, err1 := strconv.ParseInt(a, 10, 64)
				end, err2 := strconv.ParseInt(b, 10, 64)
				if !ok || err1 != nil || err2 != nil {
					return fmt.Errorf("--between %q: expected begin:end in ms", between)
				}
				if bd, found := idx.BoundaryBetween(begin, end); found {
					fmt.Fprintf(out, "between %d and %d: %d %s\n", begin, end, bd.Time, bd.Label)
				} else {
					fmt.Fprintf(out, "between %d and %d: none\n", begin, end)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("list", false, "list all boundaries")
	cmd.Flags().String("between", "", "report a boundary strictly inside begin:end (ms)")
	return cmd
}

func formatTime(t int64) string {
	if t == segment.Infinite {
		return "none"
	}
	return strconv.FormatInt(t, 10)
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check recognizers, bundles, media and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg)
			exitCode := 0
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					exitCode = 1
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-4s %s\n", r.Name, status, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log",
		Short: "Show the last log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			return tailFile(cmd.OutOrStdout(), cfg.Paths.LogPath, n)
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(w io.Writer, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Fprintln(w, l)
		}
	}
	return nil
}
