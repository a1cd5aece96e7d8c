// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmcdonald/savekeep/internal/adapters/maclaunchd"
	"github.com/jmcdonald/savekeep/internal/adapters/tuisvc"
	"github.com/jmcdonald/savekeep/internal/backup"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/logging"
	"github.com/jmcdonald/savekeep/internal/ports"
	"github.com/jmcdonald/savekeep/internal/recovery"
	"github.com/jmcdonald/savekeep/internal/tui"
)

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	BackupSvc   *backup.Service
	RecoverySvc *recovery.Service
	LaunchdSvc  ports.LaunchdService
	TUISvc      ports.TUIService
	RunTUI      func(svc ports.TUIService) error
	Executable  func() (string, error)

	configPath string
	logLevel   string
	logger     hclog.Logger

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(int) {},
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// Run executes the CLI with the configured arguments and exits non-zero on
// failure.
func (c *CLI) Run(ctx context.Context) {
	if err := c.Execute(ctx); err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
	}
}

// Execute runs the command named by Args and returns its error.
func (c *CLI) Execute(ctx context.Context) error {
	root := c.rootCommand()
	args := c.Args
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *CLI) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "savekeep",
		Short:         "Versioned backups of game save folders",
		Long:          "savekeep keeps timestamped copies of game save folders and restores them on demand.",
		Version:       c.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUI()
		},
	}
	root.SetOut(c.Out)
	root.SetErr(c.Err)
	root.SetVersionTemplate("savekeep v{{.Version}}\n")

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.savekeep/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")

	root.AddCommand(
		c.uiCommand(),
		c.runCommand(),
		c.backupCommand(),
		c.restoreCommand(),
		c.verifyCommand(),
		c.listCommand(),
		c.pruneCommand(),
		c.addCommand(),
		c.removeCommand(),
		c.resolveCommand(),
		c.diffCommand(),
		c.watchCommand(),
		c.installCommand(),
		c.uninstallCommand(),
		c.statusCommand(),
		c.initCommand(),
		c.versionCommand(),
	)
	return root
}

// loadConfig reads the config and sets up the logger. The --log-level flag
// wins over log.level.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.logger == nil {
		level := c.logLevel
		if level == "" {
			level = cfg.Log.Level
		}
		c.logger = logging.New(level, c.Err)
	}
	return cfg, nil
}

func (c *CLI) saveConfig(cfg *config.Config) error {
	if err := cfg.Save(c.configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

func (c *CLI) log() hclog.Logger {
	if c.logger == nil {
		c.logger = logging.New(c.logLevel, c.Err)
	}
	return c.logger
}

// Helper methods to get the service or default
func (c *CLI) backupSvc() *backup.Service {
	if c.BackupSvc == nil {
		c.BackupSvc = backup.NewDefaultService(c.log().Named("backup"))
	}
	return c.BackupSvc
}

func (c *CLI) recoverySvc() *recovery.Service {
	if c.RecoverySvc == nil {
		c.RecoverySvc = recovery.NewService(c.backupSvc(), c.log().Named("recovery"))
	}
	return c.RecoverySvc
}

func (c *CLI) launchdSvc() ports.LaunchdService {
	if c.LaunchdSvc == nil {
		c.LaunchdSvc = maclaunchd.New()
	}
	return c.LaunchdSvc
}

func (c *CLI) tuiSvc() ports.TUIService {
	if c.TUISvc == nil {
		c.TUISvc = tuisvc.NewWithDeps(c.configPath, c.backupSvc(), c.recoverySvc(), c.log().Named("tui"))
	}
	return c.TUISvc
}

func (c *CLI) runTUI(svc ports.TUIService) error {
	if c.RunTUI != nil {
		return c.RunTUI(svc)
	}
	return tui.Run(svc)
}

func (c *CLI) executable() (string, error) {
	if c.Executable != nil {
		return c.Executable()
	}
	return os.Executable()
}

// printResults prints one line per backup result followed by the summary
// line, and returns the joined failures.
func (c *CLI) printResults(results []backup.BackupResult) error {
	fmt.Fprintln(c.Out)
	for _, r := range results {
		switch {
		case r.Error != nil:
			fmt.Fprintf(c.Out, "  %s %s: %v\n", c.red("x"), r.Item, r.Error)
		case r.Skipped:
			fmt.Fprintf(c.Out, "  %s %s %s\n", c.gray("-"), c.gray(r.Item), c.gray("("+r.Reason+")"))
		default:
			fmt.Fprintf(c.Out, "  %s %s %s %s %s %d files\n",
				c.green("*"),
				r.Item,
				c.cyan(r.Version),
				c.yellow(backup.FormatSize(r.Size)),
				c.gray(r.Reason),
				r.FileCount)
			for _, w := range r.Warnings {
				fmt.Fprintf(c.Out, "      %s skipped %s: %v\n", c.yellow("!"), w.Path, w.Err)
			}
			if len(r.Pruned) > 0 {
				fmt.Fprintf(c.Out, "      %s pruned %d old versions\n", c.gray("-"), len(r.Pruned))
			}
		}
	}

	sum, err := backup.Summarize(results)
	fmt.Fprintln(c.Out)
	fmt.Fprintf(c.Out, "Done: %s backed up, %s skipped",
		c.green(fmt.Sprintf("%d", sum.BackedUp)),
		c.gray(fmt.Sprintf("%d", sum.Skipped)))
	if sum.Failed > 0 {
		fmt.Fprintf(c.Out, ", %s errors", c.red(fmt.Sprintf("%d", sum.Failed)))
	}
	fmt.Fprintln(c.Out)
	if err != nil {
		c.log().Debug("backup failures", "error", err)
		return fmt.Errorf("%w: %d of %d", errBackupFailed, sum.Failed, len(results))
	}
	return nil
}

// errBackupFailed is returned when a batch had failures that were already
// printed.
var errBackupFailed = errors.New("some backups failed")
