package main

import (
	"fmt"
	"os"

	"annorec/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "annorec",
		Short: "Annorec: run external media recognizers and collect their segmentations",
		Long: `Annorec starts external recognizers (speech segmenters, shot detectors, ...), feeds them
their parameters, follows their progress and exports the segments they report as JSON.

Key commands:
  run [id...]               Run configured recognizers concurrently
  shots <video>             Detect shot boundaries in one video
  params <id|bundle.yaml>   Show parameters and effective values
  boundaries <file> [ms..]  Query boundaries of an exported segmentation
  doctor                    Check recognizers, bundles and media
  tail-log                  Show the last log lines

Notable flags/env:
  --metrics-addr <addr>     Enable /metrics (Prometheus) while running
  Env overrides: ANNOREC_METRICS_ADDR, ANNOREC_LOG_LEVEL/FORMAT,
                 ANNOREC_REPORT_DIR`,
		Example: `  annorec run
  annorec run vad --metrics-addr 127.0.0.1:9318
  annorec shots --command "python detect.py" --fps 29.97 clip.mp4
  annorec params vad --set threshold=0.4
  annorec boundaries ~/.local/state/annorec/reports/vad-speech-20240731-142309.json 1500`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}

	root.Version = version
	root.SetVersionTemplate("Annorec v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/annorec/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(control.NewRunCmd(cfgPath))
	root.AddCommand(control.NewShotsCmd(cfgPath))
	root.AddCommand(control.NewParamsCmd(cfgPath))
	root.AddCommand(control.NewBoundariesCmd())
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))

	applyColorHelp(root)

	if err := root.Execute(); err != nil {
		return err
	}
	return nil
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			defaultHelp(cmd, args)
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sAnnorec%s: external recognizer runner %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sStarts recognizers, follows their progress, exports their segmentations.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  annorec [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  run [id...]                 run configured recognizers concurrently")
		writeln("  shots <video>               shot boundary detection on one video")
		writeln("  params <id|bundle.yaml>     parameters and effective values")
		writeln("  boundaries <file> [ms...]   boundary queries on an exported segmentation")
		writeln("  doctor                      check recognizers/bundles/media/config")
		writeln("  tail-log                    show last log lines")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  --metrics-addr <addr>   enable /metrics (Prometheus) during run/shots")
		writeln("  -q, --quiet             do not echo recognizer output")
		writeln("  -c, --config <path>     config file (default ~/.config/annorec/config.toml)")
		writeln("  Env: ANNOREC_METRICS_ADDR=host:port, ANNOREC_LOG_LEVEL=debug,")
		writeln("       ANNOREC_LOG_FORMAT=json, ANNOREC_REPORT_DIR=/path")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  annorec run")
		writeln("  annorec run vad --metrics-addr 127.0.0.1:9318")
		writeln("  annorec shots --command \"python detect.py\" --fps 29.97 clip.mp4")
		writeln("  annorec params vad --set threshold=0.4")
		writeln("  annorec boundaries reports/vad-speech-20240731-142309.json 1500 --between 1000:2000")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
