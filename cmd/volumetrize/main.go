package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/volumetrize/internal/adapters/gate"
	"github.com/bft-labs/volumetrize/internal/cliconfig"
	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/strategy"
	"github.com/bft-labs/volumetrize/pkg/log"
	"github.com/bft-labs/volumetrize/pkg/state"
	"github.com/bft-labs/volumetrize/pkg/volumetrize"
	"github.com/bft-labs/volumetrize/plugins/configwatcher"
)

const longHelp = `Calibrate and train multi-frame volumetric captures.

A project is a directory of frame_<NNN>/images captured by one camera rig.
The reference frame (frame_000) is calibrated first with a full run of the
tool; its camera poses are then copied into every other selected frame,
which only needs a cheaper triangulation. A failing reference stops the
batch, a failing frame does not.

Configure via --config file ($HOME/.volumetrize/config.toml), VOLUMETRIZE_*
environment variables or flags, in increasing order of precedence.`

var exampleUsage = strings.TrimSpace(`
  volumetrize calibrate /data/shoot-01 --tool colmap
  volumetrize calibrate /data/shoot-01 --start 40 --count 10 --direction reverse --yes
  volumetrize train /data/shoot-01 -o /data/shoot-01/splats --resume
  volumetrize status /data/shoot-01 --stage train
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by every subcommand.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
}

func main() {
	c := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "volumetrize",
		Short:         "Batch orchestrator for multi-frame 3D reconstruction",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.volumetrize/config.toml)")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "log format (console, json)")
	pf.StringVar(&c.cfg.FramePrefix, "frame-prefix", c.cfg.FramePrefix, "prefix of frame directories")
	pf.StringVar(&c.cfg.StateDir, "state-dir", c.cfg.StateDir, "directory for status files (default: <project>/.volumetrize)")
	pf.StringVar(&c.cfg.ToolConfig, "tool-config", c.cfg.ToolConfig, "tool parameter file (default: <project>/_config.yaml)")

	root.AddCommand(
		c.calibrateCmd(),
		c.trainCmd(),
		c.framesCmd(),
		c.planCmd(),
		c.statusCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "volumetrize: %v\n", describeError(err))
		os.Exit(1)
	}
}

func (c *cli) addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&c.cfg.Start, "start", c.cfg.Start, "index of the first frame to process")
	cmd.Flags().IntVar(&c.cfg.Count, "count", c.cfg.Count, "number of frames to process (0: all)")
	cmd.Flags().StringVar(&c.cfg.Direction, "direction", c.cfg.Direction, "walk direction from start (forward, reverse)")
	cmd.Flags().BoolVar(&c.cfg.Test, "test", c.cfg.Test, "process only the reference frame")
}

func (c *cli) addRunFlags(cmd *cobra.Command) {
	c.addPlanFlags(cmd)
	cmd.Flags().BoolVarP(&c.cfg.Yes, "yes", "y", c.cfg.Yes, "start without asking for confirmation")
	cmd.Flags().BoolVar(&c.cfg.Resume, "resume", c.cfg.Resume, "skip frames a previous run finished")
}

func (c *cli) calibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate <project>",
		Short: "Calibrate the reference frame and propagate its cameras",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args)
		},
	}
	c.addRunFlags(cmd)
	cmd.Flags().StringVar(&c.cfg.Tool, "tool", c.cfg.Tool, "calibration tool (colmap, realityscan)")
	cmd.Flags().BoolVar(&c.cfg.Clean, "clean", c.cfg.Clean, "remove each frame's tool workspace before processing it")
	cmd.Flags().StringVar(&c.cfg.ColmapExe, "colmap-exe", c.cfg.ColmapExe, "COLMAP executable")
	cmd.Flags().StringVar(&c.cfg.RealityScanExe, "rs-exe", c.cfg.RealityScanExe, "RealityScan executable")
	cmd.Flags().StringVar(&c.cfg.RealityScanExportDir, "rs-export-dir", c.cfg.RealityScanExportDir, "RealityScan registration export directory")
	cmd.Flags().StringVar(&c.cfg.RealityScanProfile, "rs-profile", c.cfg.RealityScanProfile, "RealityScan export profile")
	return cmd
}

func (c *cli) trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <project>",
		Short: "Train a splat for every calibrated frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args)
		},
	}
	c.addRunFlags(cmd)
	cmd.Flags().StringVarP(&c.cfg.OutputDir, "output", "o", c.cfg.OutputDir, "directory for trained .ply files")
	cmd.Flags().StringVar(&c.cfg.PostshotExe, "postshot-exe", c.cfg.PostshotExe, "Postshot CLI executable")
	cmd.Flags().StringVar(&c.cfg.ExportBucket, "export-bucket", c.cfg.ExportBucket, "blob bucket URL trained files are copied to (file://, mem://)")
	cmd.Flags().StringVar(&c.cfg.ExportPrefix, "export-prefix", c.cfg.ExportPrefix, "key prefix inside the export bucket")
	return cmd
}

func (c *cli) framesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frames <project>",
		Short: "List the frames of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := c.inspect(cmd, args)
			if err != nil {
				return err
			}
			frames, err := v.Frames(cmd.Context())
			if err != nil {
				return err
			}
			renderFrames(os.Stdout, frames)
			return nil
		},
	}
}

func (c *cli) planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <project>",
		Short: "Print the frames a batch would process, in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := c.inspect(cmd, args)
			if err != nil {
				return err
			}
			frames, order, err := v.Plan(cmd.Context())
			if err != nil {
				return err
			}
			renderPlan(os.Stdout, frames, order)
			return nil
		},
	}
	c.addPlanFlags(cmd)
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "status <project>",
		Short: "Show the progress recorded by earlier runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stage != domain.StageCalibrate && stage != domain.StageTrain {
				return &domain.ConfigurationError{Field: "stage", Reason: fmt.Sprintf("unknown stage %q", stage)}
			}
			if err := c.load(cmd, args); err != nil {
				return err
			}
			dir := c.cfg.StateDir
			if dir == "" {
				dir = filepath.Join(c.cfg.Project, volumetrize.DefaultStateDirName)
			}
			st, err := state.NewFileRepository(dir, stage).Load(cmd.Context())
			if err != nil {
				return err
			}
			renderStatus(os.Stdout, st)
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", domain.StageCalibrate, "stage to show (calibrate, train)")
	return cmd
}

// load applies the config file and the environment under the flags.
func (c *cli) load(cmd *cobra.Command, args []string) error {
	c.cfg.Project = args[0]

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}
	return cliconfig.ApplyEnvConfig(&c.cfg, changed)
}

func (c *cli) logger() (volumetrize.Logger, error) {
	logger, err := log.New(log.Options{
		Level:  c.cfg.LogLevel,
		Format: c.cfg.LogFormat,
		Out:    os.Stderr,
	})
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "log-level", Reason: err.Error()}
	}
	return logger, nil
}

// inspect builds an instance for read-only commands. Executables are not
// resolved since nothing runs.
func (c *cli) inspect(cmd *cobra.Command, args []string) (*volumetrize.Volumetrize, volumetrize.Logger, error) {
	if err := c.load(cmd, args); err != nil {
		return nil, nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, nil, err
	}
	lib := c.cfg.Library()
	lib.Tool = strategy.ToolColmap
	v, err := volumetrize.New(lib, volumetrize.WithLogger(logger))
	return v, logger, err
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	if err := c.load(cmd, args); err != nil {
		return err
	}
	switch {
	case cmd.Name() == "train":
		c.cfg.Tool = strategy.ToolPostshot
	case c.cfg.Tool == strategy.ToolPostshot:
		return &domain.ConfigurationError{Field: "tool", Reason: "postshot trains, use the train command"}
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	logger, err := c.logger()
	if err != nil {
		return err
	}

	v, err := volumetrize.New(c.cfg.Library(),
		volumetrize.WithLogger(logger),
		volumetrize.WithGate(gate.NewPrompt(os.Stdin, os.Stderr, c.cfg.Yes)),
		configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
	)
	if err != nil {
		return fmt.Errorf("create volumetrize: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := v.Run(ctx)
	if len(sum.Results) > 0 {
		renderSummary(os.Stdout, sum)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted", log.String("state", v.StatePath()))
		}
		return err
	}

	if failed := sum.Failed(); len(failed) > 0 {
		logger.Warn("batch finished with failed frames", log.Int("failed", len(failed)))
	}
	return nil
}

// describeError adds a hint for errors an operator can act on.
func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrDeclined):
		return "aborted: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "interrupted; rerun with --resume to continue"
	default:
		return err.Error()
	}
}
