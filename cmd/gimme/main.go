package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"golang.org/x/term"

	"github.com/npratt/gimme/internal/audio"
	"github.com/npratt/gimme/internal/config"
	"github.com/npratt/gimme/internal/controller"
	"github.com/npratt/gimme/internal/events"
	"github.com/npratt/gimme/internal/exercise"
	"github.com/npratt/gimme/internal/scroll"
	"github.com/npratt/gimme/internal/shutdown"
	"github.com/npratt/gimme/internal/theory"
	"github.com/npratt/gimme/internal/tui"
)

var version = "dev"

// tuiBufferSize gives the screen room to fall behind during a slow redraw
// without the router dropping beats.
const tuiBufferSize = 500

func main() {
	logLevel := &slog.LevelVar{}
	logger := newJSONLogger(os.Stderr, logLevel)

	v := viper.New()
	v.SetEnvPrefix("GIMME")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := newRootCmd(v, logger, logLevel).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around v.
func newRootCmd(v *viper.Viper, logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gimme",
		Short: "Triad inversion practice metronome",
		Long: `gimme is a practice metronome for guitar triad inversions.

Each beat of a measure follows a pattern of inversions (root, 1st, 2nd,
random or rest) for a randomly chosen major triad. The chord changes every
few measures and the upcoming labels scroll past a fixed "now" post.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
				logger.Debug("verbose logging enabled")
			}
		},
	}

	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .gimme/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Log file path used while the TUI is running")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gimme %s\n", version)
		},
	}

	rootCmd.AddCommand(
		versionCmd,
		newPracticeCmd(v, logger, logLevel),
		newTriadCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newPracticeCmd(v *viper.Viper, logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	practiceCmd := &cobra.Command{
		Use:   "practice",
		Short: "Start a practice session",
		Long: `Start a practice session.

With a terminal attached the interactive screen is shown (space to play or
pause, +/- to change tempo, q to quit). Otherwise one line per beat is
written to stdout until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tuiEnabled := v.GetBool(FlagTUI)
			if !cmd.Flags().Changed(FlagTUI) {
				tuiEnabled = term.IsTerminal(int(os.Stdout.Fd()))
			}

			cfg, err := config.LoadConfig(v)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := applyFlags(cmd.Flags(), v, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			runLogger := logger
			if tuiEnabled {
				tuiLog, err := SetupTUILogger(cfg.Paths.Log, logLevel, cfg.LogRotation)
				if err != nil {
					return err
				}
				defer func() { _ = tuiLog.Close() }()
				runLogger = tuiLog.Logger
				slog.SetDefault(runLogger)
			}

			return runPractice(cmd, v, cfg, runLogger, tuiEnabled)
		},
	}

	practiceCmd.Flags().Int(FlagBPM, 0, "Tempo in beats per minute (10-200)")
	practiceCmd.Flags().String(FlagPattern, "", `Inversion per beat, e.g. "root,1st,2nd,rest"`)
	practiceCmd.Flags().Int(FlagMeasuresPerChord, 0, "Played measures per attempt at a chord (1-16)")
	practiceCmd.Flags().Int(FlagRestMeasures, 0, "Rest measures before every new chord (0-4)")
	practiceCmd.Flags().Int(FlagAttempts, 0, "Attempts per chord, separated by one rest measure (1-8)")
	practiceCmd.Flags().Int(FlagLeadIn, 0, "Rest measures before the first chord (0-4)")
	practiceCmd.Flags().Bool(FlagMuted, false, "Start with the click muted")
	practiceCmd.Flags().String(FlagAudio, "", "Click backend: speaker, midi or none")
	practiceCmd.Flags().String(FlagMIDIPort, "", "MIDI output port name (substring match)")
	practiceCmd.Flags().Uint64(FlagSeed, 0, "Random seed for reproducible exercises (0 = random)")
	practiceCmd.Flags().Bool(FlagTUI, false, "Force the terminal UI on or off")

	practiceCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	return practiceCmd
}

// runPractice wires the router, audio device and controller, then runs the
// TUI or the headless beat printer until the user quits or a signal arrives.
func runPractice(cmd *cobra.Command, v *viper.Viper, cfg *config.Config, logger *slog.Logger, tuiEnabled bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	router := events.NewRouter(events.DefaultBufferSize)
	router.SetLogger(logger)
	defer router.Close()

	sinkCtx, sinkCancel := context.WithCancel(ctx)
	defer sinkCancel()
	logSink := events.NewLogSink(logger)
	if err := logSink.Start(sinkCtx, router.Subscribe()); err != nil {
		return fmt.Errorf("start log sink: %w", err)
	}
	defer func() { _ = logSink.Stop() }()

	device, err := audio.Open(audio.Options{
		Backend:    cfg.Audio.Backend,
		SampleRate: cfg.Audio.SampleRate,
		MIDIPort:   cfg.Audio.MIDIPort,
	}, logger)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}

	ctrl, err := controller.New(cfg, device, router, logger)
	if err != nil {
		_ = device.Close()
		return err
	}

	if path := config.ActivePath(v); path != "" {
		err := config.Watch(v, path, logger, func(next *config.Config) {
			if err := applyFlags(cmd.Flags(), v, next); err != nil {
				logger.Warn("ignoring reloaded config", "error", err)
				return
			}
			ctrl.ApplyConfig(next)
		})
		if err != nil {
			logger.Warn("config watch unavailable", "path", path, "error", err)
		}
	}

	logger.Info("gimme starting",
		"version", version,
		"bpm", cfg.Metronome.BPM,
		"pattern", cfg.Exercise.Pattern.String(),
		"audio", cfg.Audio.Backend,
		"tui", tuiEnabled,
	)

	runner := shutdown.New(logger, shutdown.DefaultTimeout)
	runner.OnShutdown("audio", func(context.Context) error { return device.Close() })
	runner.OnShutdown("controller", func(context.Context) error {
		ctrl.Reset()
		stats := ctrl.Stats()
		logger.Info("practice finished", "sessions", stats.Sessions, "beats", stats.Beats, "measures", stats.Measures)
		return nil
	})

	if tuiEnabled {
		tuiEvents := router.SubscribeBuffered(tuiBufferSize)
		defer router.Unsubscribe(tuiEvents)

		app := tui.New(ctrl, tuiEvents,
			tui.WithLayout(scroll.Layout{
				UnitsPerBeat:  float64(cfg.Display.UnitsPerBeat),
				NowPostOffset: float64(cfg.Display.NowPost),
			}),
			tui.WithFrameRate(cfg.Display.FrameRate),
			tui.WithPauseOnBlur(cfg.Display.PauseOnBlur),
			tui.WithOnQuit(ctrl.Reset),
		)
		return runner.Run(ctx, app.Run)
	}

	out := cmd.OutOrStdout()
	return runner.Run(ctx, func(runCtx context.Context) error {
		return ctrl.Run(runCtx, out)
	})
}

// applyFlags copies explicitly set practice flags over cfg so they win over
// config files, including on reload.
func applyFlags(flags *pflag.FlagSet, v *viper.Viper, cfg *config.Config) error {
	if flags.Changed(FlagLogFile) {
		cfg.Paths.Log = v.GetString(FlagLogFile)
	}
	if flags.Changed(FlagBPM) {
		cfg.Metronome.BPM = v.GetInt(FlagBPM)
	}
	if flags.Changed(FlagPattern) {
		pattern, err := exercise.ParsePattern(v.GetString(FlagPattern))
		if err != nil {
			return fmt.Errorf("--%s: %w", FlagPattern, err)
		}
		cfg.Exercise.Pattern = pattern
	}
	if flags.Changed(FlagMeasuresPerChord) {
		cfg.Exercise.MeasuresPerChord = v.GetInt(FlagMeasuresPerChord)
	}
	if flags.Changed(FlagRestMeasures) {
		cfg.Exercise.RestMeasures = v.GetInt(FlagRestMeasures)
	}
	if flags.Changed(FlagAttempts) {
		cfg.Exercise.Attempts = v.GetInt(FlagAttempts)
	}
	if flags.Changed(FlagLeadIn) {
		cfg.Exercise.LeadIn = v.GetInt(FlagLeadIn)
	}
	if flags.Changed(FlagMuted) {
		cfg.Metronome.Muted = v.GetBool(FlagMuted)
	}
	if flags.Changed(FlagAudio) {
		cfg.Audio.Backend = v.GetString(FlagAudio)
	}
	if flags.Changed(FlagMIDIPort) {
		cfg.Audio.MIDIPort = v.GetString(FlagMIDIPort)
	}
	if flags.Changed(FlagSeed) {
		cfg.Exercise.Seed = v.GetUint64(FlagSeed)
	}
	return nil
}

func newTriadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "triad <root>",
		Short: "Show the inversions of a major triad",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := theory.ParseRoot(args[0])
			if err != nil {
				return err
			}
			triad, err := theory.NewTriad(root, theory.Major)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tones := triad.Tones()
			fmt.Fprintf(out, "%s %s (%s %s %s)\n", triad.Root, triad.Quality, tones[0], tones[1], tones[2])
			for _, inv := range []theory.Inversion{theory.RootPosition, theory.FirstInversion, theory.SecondInversion} {
				fmt.Fprintf(out, "  %-4s %s\n", inv, triad.Label(inv))
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write a config file with the default settings.

By default the file is created at .gimme/config.yaml in the current
directory. Use --global for ~/.config/gimme/config.yaml or --path for any
other location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString(FlagPath)
			global, _ := cmd.Flags().GetBool(FlagGlobal)
			force, _ := cmd.Flags().GetBool(FlagForce)

			switch {
			case path != "":
			case global:
				path = config.GlobalPath()
				if path == "" {
					return errors.New("cannot determine global config directory")
				}
			default:
				path = filepath.Join(config.ProjectConfigDir, config.ProjectConfigFile)
			}

			if err := config.Write(path, config.Default(), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().String(FlagPath, "", "Write the config file to this path")
	initCmd.Flags().Bool(FlagGlobal, false, "Write the global config file")
	initCmd.Flags().Bool(FlagForce, false, "Overwrite an existing file")

	configCmd.AddCommand(initCmd)
	return configCmd
}
