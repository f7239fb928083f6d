package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"savekeep/internal/app"
	"savekeep/internal/config"
	"savekeep/internal/keep"
	"savekeep/internal/tui"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when none exists.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config, applies the global flags and creates a Coordinator.
// The caller must defer Close(). command identifies the CLI command being run
// and args its main argument.
func newApp(cmd *cobra.Command, command, args string) (*app.Coordinator, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if source, _ := cmd.Flags().GetString("source"); source != "" {
		cfg.Source = source
		cfg.RestoreTarget = ""
	}
	if dir, _ := cmd.Flags().GetString("backup-dir"); dir != "" {
		cfg.BackupDir = dir
	}

	var logOut = cmd.ErrOrStderr()
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		logOut = nil
	}

	c, err := app.NewCoordinator(cfg, command, args, logOut)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return c, nil
}

// signalContext is cancelled on SIGINT or SIGTERM, or when the command's
// own context ends.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "savekeep",
		Short:        "Timestamped backups of a single save file",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("source", "s", "", "Save file to back up (overrides config)")
	root.PersistentFlags().StringP("backup-dir", "d", "", "Backup folder (overrides config)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Also print log lines to stderr")

	root.AddCommand(
		newConfigCmd(),
		newBackupCmd(),
		newWatchCmd(),
		newRestoreCmd(),
		newCleanupCmd(),
		newListCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newSealCmd(),
		newUICmd(),
	)
	return root
}

// config command
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	configInitCmd := &cobra.Command{
		Use:   "init [SOURCE]",
		Short: "Initialize configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := app.GetDefaults()
			if err != nil {
				return fmt.Errorf("failed to get defaults: %w", err)
			}

			cfg := config.NewConfig(defaults["base_dir"])
			if len(args) > 0 {
				source, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("resolving path: %w", err)
				}
				cfg.Source = source
				cfg.RestoreTarget = source
				cfg.BackupDir = app.DefaultBackupDir(source)
			}

			if err := config.Init(defaults["config_path"], cfg); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration initialized at %s\n", defaults["config_path"])
			fmt.Fprintf(out, "Base Dir: %s\n", defaults["base_dir"])
			if cfg.Source != "" {
				fmt.Fprintf(out, "Source:   %s\n", cfg.Source)
			}
			return nil
		},
	}

	configListCmd := &cobra.Command{
		Use:   "list",
		Short: "View configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration from %s:\n\n", path)
			fmt.Fprintf(out, "Source:         %s\n", cfg.Source)
			fmt.Fprintf(out, "Backup Dir:     %s\n", cfg.BackupDir)
			fmt.Fprintf(out, "Restore Target: %s\n", cfg.RestoreTarget)
			fmt.Fprintf(out, "Watch:          %t\n", cfg.Watch)
			fmt.Fprintf(out, "Base Dir:       %s\n", cfg.BaseDir)
			fmt.Fprintf(out, "Log Dir:        %s\n", cfg.LogDir)
			fmt.Fprintf(out, "Journal:        %s %s\n", cfg.Journal.Type, cfg.Journal.DataDir)
			fmt.Fprintf(out, "Seal Keys:      %s\n", filepath.Dir(cfg.Seal.PublicKeyPath))
			return nil
		},
	}

	configCmd.AddCommand(configInitCmd, configListCmd)
	return configCmd
}

// backup command
func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [SOURCE]",
		Short: "Back up the save file now",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newApp(cmd, "backup", firstArg(args))
			if err != nil {
				return err
			}
			defer c.Close()

			if len(args) > 0 {
				c.SetSource(args[0])
			}

			dest, err := c.BackupNow()
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s\n", dest)
			return nil
		},
	}
}

// watch command
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [SOURCE]",
		Short: "Back up the save file whenever it changes",
		Long:  "Polls the save file every two seconds and backs it up on every change until interrupted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newApp(cmd, "watch", firstArg(args))
			if err != nil {
				return err
			}
			defer c.Close()

			if len(args) > 0 {
				c.SetSource(args[0])
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			events := c.Subscribe()
			if _, err := c.StartWatch(); err != nil {
				return fmt.Errorf("watch failed: %w", err)
			}

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					c.StopWatch()
					// Drain what the stop produced.
					for {
						select {
						case e := <-events:
							fmt.Fprintln(out, e.LogLine())
						default:
							return nil
						}
					}
				case e, ok := <-events:
					if !ok {
						return nil
					}
					fmt.Fprintln(out, e.LogLine())
				}
			}
		},
	}
}

// restore command
func newRestoreCmd() *cobra.Command {
	restoreCmd := &cobra.Command{
		Use:   "restore BACKUP [TARGET]",
		Short: "Overwrite the save file with a backup",
		Long: "Copies BACKUP over TARGET. Without TARGET, the save file the backup was taken from is used " +
			"when it exists next to the backup folder, otherwise the configured restore target.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")

			c, err := newApp(cmd, "restore", args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			backup, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			var target string
			switch {
			case len(args) > 1:
				target, err = filepath.Abs(args[1])
				if err != nil {
					return fmt.Errorf("resolving path: %w", err)
				}
			default:
				if t, ok := c.Keeper().SuggestTarget(backup); ok {
					target = t
				} else {
					target = c.Session().RestoreTarget
				}
			}
			if target == "" {
				return fmt.Errorf("no restore target: pass TARGET or set restore_target in the config")
			}

			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Overwrite %s with %s?", target, filepath.Base(backup)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Restore cancelled.")
					return nil
				}
			}

			if _, err := c.Restore(backup, target, passphrasePrompt(cmd)); err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored: %s\n", target)
			return nil
		},
	}
	restoreCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return restoreCmd
}

// cleanup command
func newCleanupCmd() *cobra.Command {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup [DIR]",
		Short: "Delete every file in the backup folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")

			c, err := newApp(cmd, "cleanup", firstArg(args))
			if err != nil {
				return err
			}
			defer c.Close()

			if len(args) > 0 {
				c.SetBackupDir(args[0])
			}

			var promptErr error
			n, err := c.Cleanup(func(dir string, count int) bool {
				if yes {
					return true
				}
				ok, err := confirm(cmd, fmt.Sprintf("Delete all %d file(s) in %s?", count, dir))
				promptErr = err
				return ok
			})
			if promptErr != nil {
				return promptErr
			}

			out := cmd.OutOrStdout()
			switch {
			case errors.Is(err, keep.ErrDeclined):
				fmt.Fprintln(out, "Clean up cancelled.")
				return nil
			case err != nil:
				return fmt.Errorf("cleanup failed: %w", err)
			case n == 0:
				fmt.Fprintln(out, "Backup folder is already empty.")
			default:
				fmt.Fprintf(out, "Cleaned up %d file(s) in backup folder.\n", n)
			}
			return nil
		},
	}
	cleanupCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cleanupCmd
}

// list command
func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list [DIR]",
		Short: "List backups, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, _ := cmd.Flags().GetBool("follow")

			c, err := newApp(cmd, "list", firstArg(args))
			if err != nil {
				return err
			}
			defer c.Close()

			if len(args) > 0 {
				c.SetBackupDir(args[0])
			}

			records, err := c.Backups()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 && !follow {
				fmt.Fprintln(out, "No backups.")
				return nil
			}
			for _, r := range records {
				fmt.Fprintln(out, formatRecord(r))
			}

			if !follow {
				return nil
			}
			ctx, stop := signalContext(cmd)
			defer stop()
			return c.FollowBackups(ctx, func(r *keep.BackupRecord) {
				fmt.Fprintln(out, formatRecord(r))
			})
		},
	}
	listCmd.Flags().BoolP("follow", "f", false, "Keep running and print new backups as they appear")
	return listCmd
}

func formatRecord(r *keep.BackupRecord) string {
	sealed := ""
	if r.Sealed {
		sealed = "  [sealed]"
	}
	return fmt.Sprintf("%s  %10d  %s%s", r.Taken.Format("2006-01-02 15:04:05"), r.Size, r.Name(), sealed)
}

// status command
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [SOURCE]",
		Short: "Show whether the save file has changed since its last backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newApp(cmd, "status", firstArg(args))
			if err != nil {
				return err
			}
			defer c.Close()

			if len(args) > 0 {
				c.SetSource(args[0])
			}

			st, err := c.Status()
			if err != nil {
				return err
			}

			s := c.Session()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source:     %s\n", st.Source)
			fmt.Fprintf(out, "Backup Dir: %s\n", s.BackupDir)
			if !st.Exists {
				fmt.Fprintln(out, "State:      source missing")
			} else {
				fmt.Fprintf(out, "Modified:   %s  (%d bytes)\n", st.Signature.ModTime.Format("2006-01-02 15:04:05"), st.Signature.Size)
			}
			fmt.Fprintf(out, "Backups:    %d\n", st.BackupCount)
			if st.Latest != nil {
				fmt.Fprintf(out, "Latest:     %s\n", st.Latest.Name())
			}
			switch {
			case !st.Exists:
			case st.IsBackedUp:
				fmt.Fprintln(out, "State:      backed up")
			default:
				fmt.Fprintln(out, "State:      changed since last backup")
			}
			return nil
		},
	}
}

// history command
func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View the operation journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			c, err := newApp(cmd, "history", "")
			if err != nil {
				return err
			}
			defer c.Close()

			entries, err := c.History(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No operations recorded.")
				return nil
			}

			for _, e := range entries {
				fmt.Fprintf(out, "#%d  %-12s  %s  %-7s  %s\n",
					e.ID,
					e.Kind,
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					e.Status,
					e.Detail,
				)
			}
			return nil
		},
	}
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")
	return historyCmd
}

// seal command
func newSealCmd() *cobra.Command {
	sealCmd := &cobra.Command{
		Use:   "seal BACKUP",
		Short: "Write an encrypted copy of a backup",
		Long:  "Encrypts BACKUP to BACKUP.age with the public key. No passphrase is needed to seal.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newApp(cmd, "seal", args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			dest, err := c.Seal(args[0])
			if err != nil {
				return fmt.Errorf("seal failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sealed: %s\n", dest)
			return nil
		},
	}

	sealInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate the seal key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newApp(cmd, "seal-init", "")
			if err != nil {
				return err
			}
			defer c.Close()

			pass, err := newPassphrase(cmd)
			if err != nil {
				return err
			}
			if err := c.SetupSeal(pass); err != nil {
				return fmt.Errorf("seal setup failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Seal keys created.")
			return nil
		},
	}

	sealCmd.AddCommand(sealInitCmd)
	return sealCmd
}

// ui command
func newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [SOURCE]",
		Short: "Interactive terminal interface",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newApp(cmd, "ui", firstArg(args))
			if err != nil {
				return err
			}
			defer c.Close()

			// Subscribe before starting the watch so its events reach the log panel.
			m := tui.New(c)

			// A failed auto-watch is reported in the UI; it is not fatal.
			switch {
			case len(args) > 0:
				c.ChooseSource(args[0])
			case c.WatchEnabled() && c.Session().Source != "":
				c.StartWatch()
			}
			return tui.Run(m)
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
