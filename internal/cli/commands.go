package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcdonald/savekeep/internal/backup"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/recovery"
	"github.com/jmcdonald/savekeep/internal/watch"
)

func (c *CLI) uiCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ui",
		Aliases: []string{"tui"},
		Short:   "Launch interactive TUI",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUI()
		},
	}
}

// runUI backs up changed items when backup.auto_on_startup is set, then
// starts the TUI.
func (c *CLI) runUI() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Backup.AutoOnStartup && len(cfg.Items) > 0 {
		if err := c.autoBackup(cfg); err != nil {
			// The TUI shows failed items too.
			c.log().Warn("startup backup incomplete", "error", err)
		}
	}
	return c.runTUI(c.tuiSvc())
}

func (c *CLI) autoBackup(cfg *config.Config) error {
	fmt.Fprintf(c.Out, "%s Checking %d save folders...\n", c.cyan("=>"), len(cfg.Items))
	results := c.backupSvc().RunBackup(cfg)
	if err := c.saveConfig(cfg); err != nil {
		return err
	}
	return c.printResults(results)
}

func (c *CLI) runCommand() *cobra.Command {
	var auto bool
	cmd := &cobra.Command{
		Use:   "run [item]",
		Short: "Back up all changed items (or one item)",
		Long: `Back up every item whose save folder changed since its last backup.
Items whose save folder is missing are skipped. With --auto nothing happens
unless backup.auto_on_startup is enabled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return c.backupOne(cfg, args[0], false)
			}
			if auto && !cfg.Backup.AutoOnStartup {
				fmt.Fprintln(c.Out, "Automatic backup is disabled (backup.auto_on_startup).")
				return nil
			}
			return c.autoBackup(cfg)
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "only run when backup.auto_on_startup is enabled")
	return cmd
}

func (c *CLI) backupCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "backup <item>",
		Short: "Back up one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.backupOne(cfg, args[0], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "back up even if nothing changed")
	return cmd
}

func (c *CLI) backupOne(cfg *config.Config, ref string, force bool) error {
	item, err := cfg.FindItem(ref)
	if err != nil {
		return err
	}
	result := c.backupSvc().BackupItem(cfg, item, force)
	if err := c.saveConfig(cfg); err != nil {
		return err
	}
	return c.printResults([]backup.BackupResult{result})
}

func (c *CLI) restoreCommand() *cobra.Command {
	var opts recovery.RecoverOptions
	cmd := &cobra.Command{
		Use:   "restore <item>",
		Short: "Restore an item's save folder from a backup",
		Long: `Replace the contents of an item's save folder with a backup version.
The latest version is used unless --version is given. The current saves are
backed up first unless --no-safety is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts.Item = args[0]

			if opts.NoSafety {
				fmt.Fprintf(c.Out, "%s Restoring %s without a safety snapshot...\n", c.yellow("!"), opts.Item)
			} else {
				fmt.Fprintf(c.Out, "Restoring %s...\n", opts.Item)
			}

			res, err := c.recoverySvc().Recover(cfg, opts)
			if err != nil {
				return fmt.Errorf("recovery failed: %w", err)
			}
			if err := c.saveConfig(cfg); err != nil {
				return err
			}

			if res.SafetySnapshot != "" {
				fmt.Fprintf(c.Out, "  %s previous saves kept as %s\n", c.gray("-"), c.cyan(res.SafetySnapshot))
			}
			for _, s := range res.Restored.Skipped {
				fmt.Fprintf(c.Out, "  %s skipped %s: %v\n", c.yellow("!"), s.Path, s.Err)
			}
			fmt.Fprintf(c.Out, "%s Restored %s to %s (%d files)\n",
				c.green("*"), res.Item, c.cyan(res.Version), res.Restored.Files)
			fmt.Fprintf(c.Out, "  %s\n", c.gray(res.Target))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Version, "version", "", "version to restore (default latest)")
	cmd.Flags().BoolVar(&opts.NoSafety, "no-safety", false, "do not back up the current saves first")
	return cmd
}

func (c *CLI) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <item> [version]",
		Short: "Check that a backup version is readable and not empty",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			item, err := cfg.FindItem(args[0])
			if err != nil {
				return err
			}
			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			v, fp, err := c.recoverySvc().Verify(cfg, item, version)
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Fprintf(c.Out, "%s %s %s verified: %d files, %s\n",
				c.green("*"), item.Name, c.cyan(v.Name), fp.Files, backup.FormatSize(fp.Bytes))
			return nil
		},
	}
}

func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [item]",
		Short: "List items, or the backup versions of one item",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return c.listItems(cfg)
			}
			return c.listVersions(cfg, args[0])
		},
	}
}

func (c *CLI) listItems(cfg *config.Config) error {
	if len(cfg.Items) == 0 {
		fmt.Fprintln(c.Out, "No items. Add one with: savekeep add <name> <path>")
		return nil
	}
	svc := c.backupSvc()
	fmt.Fprintf(c.Out, "  %-8s %-24s %8s  %-12s %s\n", "ID", "NAME", "VERSIONS", "LAST BACKUP", "SAVE PATH")
	fmt.Fprintf(c.Out, "  %-8s %-24s %8s  %-12s %s\n", "--", "----", "--------", "-----------", "---------")
	for i := range cfg.Items {
		item := &cfg.Items[i]
		versions, err := svc.ListVersions(cfg, item)
		if err != nil {
			c.log().Warn("listing versions", "item", item.Name, "error", err)
		}
		last := c.gray("-")
		if !item.LastBackup.IsZero() {
			last = item.LastBackup.Local().Format("Jan 2 15:04")
		}
		path := item.SavePath
		if _, err := svc.ResolveSource(item); err != nil {
			path += " " + c.red("(missing)")
		}
		fmt.Fprintf(c.Out, "  %-8s %-24s %8d  %-12s %s\n",
			shortID(item.ID), item.Name, len(versions), last, path)
	}
	return nil
}

func (c *CLI) listVersions(cfg *config.Config, ref string) error {
	item, err := cfg.FindItem(ref)
	if err != nil {
		return err
	}
	svc := c.backupSvc()
	versions, err := svc.ListVersions(cfg, item)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintf(c.Out, "No backups found for %s\n", item.Name)
		return nil
	}

	fmt.Fprintf(c.Out, "Backups for %s:\n\n", c.cyan(item.Name))
	fmt.Fprintf(c.Out, "  %-20s %10s %8s  %s\n", "VERSION", "SIZE", "FILES", "CREATED")
	fmt.Fprintf(c.Out, "  %-20s %10s %8s  %s\n", "-------", "----", "-----", "-------")
	for _, v := range versions {
		size, files := "-", "-"
		if fp, err := svc.Engine().ComputeFingerprint(v.Path); err == nil {
			size = backup.FormatSize(fp.Bytes)
			files = fmt.Sprintf("%d", fp.Files)
		}
		fmt.Fprintf(c.Out, "  %-20s %10s %8s  %s\n",
			v.Name, size, files, v.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (c *CLI) pruneCommand() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune <item>",
		Short: "Delete old backup versions of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			item, err := cfg.FindItem(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = cfg.Retention.KeepLast
			}
			if keep < 0 {
				return errors.New("--keep must not be negative")
			}
			res, err := c.backupSvc().Prune(cfg, item, keep)
			if err != nil {
				return err
			}
			for _, name := range res.Deleted {
				fmt.Fprintf(c.Out, "  %s %s\n", c.yellow("-"), name)
			}
			for _, f := range res.Failed {
				fmt.Fprintf(c.Out, "  %s %s: %v\n", c.red("x"), f.Path, f.Err)
			}
			fmt.Fprintf(c.Out, "Pruned %s: %d deleted, %d kept\n", item.Name, len(res.Deleted), len(res.Kept))
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "number of versions to keep (default retention.keep_last)")
	return cmd
}

func (c *CLI) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Track a save folder",
		Long: `Track a save folder under a name. The path may use %SAVEDGAMES%,
%DOCUMENTS%, %APPDATA%, %LOCALAPPDATA%, %USERPROFILE% and environment
variables. A plain path is stored relative to the best matching one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			stored, dir, err := c.backupSvc().NormalizeSavePath(args[1])
			if err != nil {
				return err
			}
			item, err := cfg.AddItem(args[0], stored)
			if err != nil {
				return err
			}
			if err := c.saveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(c.Out, "%s Added %s (%s)\n", c.green("*"), item.Name, c.gray(shortID(item.ID)))
			fmt.Fprintf(c.Out, "  Path:   %s\n", item.SavePath)
			fmt.Fprintf(c.Out, "  Folder: %s\n", dir)
			return nil
		},
	}
}

func (c *CLI) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item>",
		Short: "Stop tracking an item (its backups are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			item, err := cfg.RemoveItem(args[0])
			if err != nil {
				return err
			}
			if err := c.saveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(c.Out, "%s Removed %s\n", c.yellow("-"), item.Name)
			fmt.Fprintf(c.Out, "  Backups are still in %s\n", c.gray(c.backupSvc().BackupRoot(cfg)))
			return nil
		},
	}
}

func (c *CLI) resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path-or-template>",
		Short: "Show how a save path expands and how it would be stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := c.backupSvc().Resolver()
			expanded := r.Expand(args[0])
			fmt.Fprintf(c.Out, "Expanded: %s\n", expanded)
			fmt.Fprintf(c.Out, "Template: %s\n", r.ToBestTemplate(expanded))
			return nil
		},
	}
}

func (c *CLI) diffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <item> <version> [version]",
		Short: "List files that differ between two versions",
		Long: `List added, modified and deleted files between two versions of an item.
The second version defaults to "live", the current save folder.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			item, err := cfg.FindItem(args[0])
			if err != nil {
				return err
			}
			v2 := backup.LiveVersion
			if len(args) == 3 {
				v2 = args[2]
			}
			d, err := c.backupSvc().Compare(cfg, item, args[1], v2)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Out, "%s vs %s\n\n", c.cyan(d.Version1), c.cyan(d.Version2))
			if d.Empty() {
				fmt.Fprintln(c.Out, "No differences")
				return nil
			}
			for _, ch := range d.Changes {
				mark := c.yellow(string(ch.Status))
				switch ch.Status {
				case 'A':
					mark = c.green(string(ch.Status))
				case 'D':
					mark = c.red(string(ch.Status))
				}
				fmt.Fprintf(c.Out, "  %s %s\n", mark, ch.Path)
			}
			fmt.Fprintf(c.Out, "\nModified: %d   Added: %d   Deleted: %d\n", d.Modified, d.Added, d.Deleted)
			return nil
		},
	}
}

func (c *CLI) watchCommand() *cobra.Command {
	var quiet time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Back up save folders as soon as they change",
		Long: `Watch every item's save folder and back it up once it has been
quiet for the given period. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.watch(cmd.Context(), cfg, quiet)
		},
	}
	cmd.Flags().DurationVar(&quiet, "quiet", watch.DefaultQuietPeriod, "time without changes before a backup")
	return cmd
}

func (c *CLI) watch(ctx context.Context, cfg *config.Config, quiet time.Duration) error {
	svc := c.backupSvc()
	targets := make([]watch.Target, 0, len(cfg.Items))
	for i := range cfg.Items {
		item := &cfg.Items[i]
		dir, err := svc.ResolveSource(item)
		if err != nil {
			fmt.Fprintf(c.Out, "  %s %s %s\n", c.gray("-"), c.gray(item.Name), c.gray("("+err.Error()+")"))
		}
		targets = append(targets, watch.Target{ID: item.ID, Dir: dir})
	}

	handler := func(_ context.Context, id string) {
		item, err := cfg.FindItem(id)
		if err != nil {
			return
		}
		result := svc.BackupItem(cfg, item, false)
		if err := c.saveConfig(cfg); err != nil {
			c.log().Error("saving config", "error", err)
		}
		_ = c.printResults([]backup.BackupResult{result})
	}

	w, err := watch.New(svc.FileSystem(), targets, handler,
		watch.WithQuietPeriod(quiet),
		watch.WithExclude(svc.BackupRoot(cfg)),
		watch.WithLogger(c.log().Named("watch")))
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	fmt.Fprintf(c.Out, "%s Watching %d save folders (quiet period %s). Press Ctrl+C to stop.\n",
		c.cyan("=>"), len(targets), quiet)
	return w.Run(ctx)
}

func (c *CLI) installCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install a login agent that backs up changed items at login (macOS)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := c.launchdSvc()
			exe, err := c.executable()
			if err != nil {
				return fmt.Errorf("locating executable: %w", err)
			}
			configPath := c.configPath
			if configPath != "" {
				if configPath, err = filepath.Abs(configPath); err != nil {
					return err
				}
			}
			if err := svc.Install(exe, configPath); err != nil {
				return fmt.Errorf("installing login agent: %w", err)
			}
			fmt.Fprintf(c.Out, "%s Installed login agent (runs savekeep run --auto at login)\n", c.green("*"))
			fmt.Fprintf(c.Out, "  Plist: %s\n", svc.PlistPath())
			fmt.Fprintf(c.Out, "  Log:   %s\n", svc.LogPath())
			return nil
		},
	}
}

func (c *CLI) uninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the login agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := c.launchdSvc()
			if !svc.IsInstalled() {
				return errors.New("login agent not installed")
			}
			if err := svc.Uninstall(); err != nil {
				return fmt.Errorf("uninstalling login agent: %w", err)
			}
			fmt.Fprintf(c.Out, "%s Uninstalled login agent\n", c.yellow("-"))
			return nil
		},
	}
}

func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and login agent status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			path := c.configPath
			if path == "" {
				if path, err = config.ConfigPath(); err != nil {
					return err
				}
			}

			auto := c.gray("off")
			if cfg.Backup.AutoOnStartup {
				auto = c.green("on")
			}
			fmt.Fprintln(c.Out, "savekeep status:")
			fmt.Fprintf(c.Out, "  Config:    %s\n", path)
			fmt.Fprintf(c.Out, "  Backups:   %s\n", c.backupSvc().BackupRoot(cfg))
			fmt.Fprintf(c.Out, "  Items:     %d\n", len(cfg.Items))
			fmt.Fprintf(c.Out, "  Keep last: %d\n", cfg.Retention.KeepLast)
			fmt.Fprintf(c.Out, "  Auto:      %s\n", auto)

			switch status := c.launchdSvc().Status(); status {
			case "loaded":
				fmt.Fprintf(c.Out, "  Agent:     %s\n", c.green("installed & loaded"))
			case "not installed":
				fmt.Fprintf(c.Out, "  Agent:     %s\n", c.gray("not installed"))
			default:
				fmt.Fprintf(c.Out, "  Agent:     %s\n", c.yellow("installed ("+status+")"))
			}
			return nil
		},
	}
}

func (c *CLI) initCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				var err error
				if path, err = config.ConfigPath(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			cfg, err := config.DefaultConfig()
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(c.Out, "Created config at %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.Out, "savekeep v%s\n", c.Version)
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
