package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dbPath     string
	debugLog   bool

	importDryRun bool
	shareCopy    bool
	pngSide      string
	clearYes     bool
)

var rootCmd = &cobra.Command{
	Use:   "flowsheet",
	Short: "Debate flowsheet with linked arguments in the terminal",
	Long: `flowsheet keeps a debate flow in two sections, affirmative and negative,
each a row of speech columns holding argument blocks. Drag from a block's
handle to another block to link them; right click a link to remove it.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the current flowsheet to a .dfsf snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		now := time.Now()
		name := s.config.GetSavePath(ExportFileName(now))
		if len(args) == 1 {
			name = args[0]
		}
		data, err := EncodeSnapshot(s.fs.Snapshot(s.settings, now))
		if err != nil {
			return err
		}
		if err := os.WriteFile(name, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", name)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the current flowsheet with a snapshot (the old one is backed up)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, summary, err := ReadSnapshotFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", filepath.Base(args[0]), summary)
		if importDryRun {
			return nil
		}
		return applyImport(cmd, snap)
	},
}

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Print a link that carries the whole flowsheet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		link, err := EncodeShareLink(s.config.ShareBaseURL, s.fs.Snapshot(s.settings, time.Now()))
		if err != nil {
			return err
		}
		if shareCopy {
			if err := writeClipboardText(link); err != nil {
				return fmt.Errorf("copying link: %w", err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

var openLinkCmd = &cobra.Command{
	Use:   "open-link <link>",
	Short: "Import the flowsheet carried by a share link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, summary, err := DecodeShareLink(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "link: %s\n", summary)
		return applyImport(cmd, snap)
	},
}

var pngCmd = &cobra.Command{
	Use:   "png [file]",
	Short: "Render one section with its links to a PNG image",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := parseSide(pngSide)
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		name := s.config.GetSavePath(fmt.Sprintf("flowsheet_%s_%s.png", side, time.Now().Format("2006-01-02")))
		if len(args) == 1 {
			name = args[0]
		}
		if err := ExportSectionPNG(s.fs, side, s.settings, name); err != nil {
			return fmt.Errorf("exporting png: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", name)
		return nil
	},
}

var restoreBackupCmd = &cobra.Command{
	Use:   "restore-backup",
	Short: "Bring back the flowsheet as it was before the last import",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.fs.RestoreBackup(cmd.Context())
		if err != nil {
			return err
		}
		if err := s.fs.SaveSettings(cmd.Context(), snap.Settings); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Backup restored")
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty every column and remove all links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to clear without --yes")
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		s.fs.ClearAll()
		if err := s.fs.Persist(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Flowsheet cleared")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.flowsheet/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file (overrides the config)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Log at debug level")

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Only validate and print the summary")
	shareCmd.Flags().BoolVar(&shareCopy, "copy", false, "Copy the link to the clipboard")
	pngCmd.Flags().StringVar(&pngSide, "side", "affirmative", "Section to render (affirmative or negative)")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm clearing")

	rootCmd.AddCommand(exportCmd, importCmd, shareCmd, openLinkCmd, pngCmd, restoreBackupCmd, clearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "affirmative", "aff", "a":
		return SideAffirmative, nil
	case "negative", "neg", "n":
		return SideNegative, nil
	}
	return SideAffirmative, fmt.Errorf("unknown side %q", s)
}

// session is the loaded state shared by the TUI and the subcommands.
type session struct {
	config   *Config
	logger   *zap.Logger
	records  *RecordStore
	fs       *Flowsheet
	settings Settings
}

func openSession(ctx context.Context) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	if dbPath != "" {
		config.Database = dbPath
	}
	logger, err := newLogger(config.LogFile, debugLog)
	if err != nil {
		return nil, err
	}
	records, err := OpenRecordStore(config.Database)
	if err != nil {
		logger.Sync()
		return nil, err
	}
	fs := NewFlowsheet(config.Columns, records, logger)
	if err := fs.Load(ctx); err != nil {
		records.Close()
		logger.Sync()
		return nil, fmt.Errorf("loading flowsheet: %w", err)
	}
	settings := fs.LoadSettings(ctx, config.Settings)
	fs.SetPathMode(pathModeFor(settings.Orthogonal()))
	return &session{config: config, logger: logger, records: records, fs: fs, settings: settings}, nil
}

func (s *session) Close() {
	if err := s.records.Close(); err != nil {
		s.logger.Warn("closing database", zap.Error(err))
	}
	s.logger.Sync()
}

func applyImport(cmd *cobra.Command, snap Snapshot) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.fs.Import(cmd.Context(), snap, s.settings, time.Now()); err != nil {
		return err
	}
	if err := s.fs.SaveSettings(cmd.Context(), snap.Settings); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Imported; previous flowsheet saved as backup")
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	watcher, err := NewConfigWatcher(s.config.Path(), s.logger)
	if err != nil {
		s.logger.Warn("config hot reload unavailable", zap.Error(err))
		watcher = nil
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	p := tea.NewProgram(
		newModel(ctx, s, watcher),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
