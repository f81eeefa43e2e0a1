package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/distype/internal/config"
	"github.com/hammamikhairi/distype/internal/logger"
)

// app carries what every command needs: the loaded configuration, the
// logger and the resources to release on exit.
type app struct {
	flags   globalFlags
	cfg     *config.Config
	log     *logger.Logger
	closers []func() error
}

type globalFlags struct {
	configFile string
	logFile    string
	verbose    bool
	quiet      bool
	offline    bool
	backend    string
	storePath  string
	provider   string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "distype",
		Short: "Speak typed and saved phrases",
		Long: `distype is a speech aid: type a phrase or pick a saved one and it is
spoken aloud. An online voice is used when a connection is available; if
it does not start within a moment the on-device voice speaks instead.`,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", fmt.Sprintf("config file (default %s when present)", config.DefaultFile))
	pf.StringVar(&a.flags.logFile, "log-file", "", `file to write logs to ("stderr" logs to the console)`)
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&a.flags.quiet, "quiet", "q", false, "disable all logging")
	pf.BoolVar(&a.flags.offline, "offline", false, "never use the online voice")
	pf.StringVar(&a.flags.backend, "store", "", "phrase store backend: memory, sql or doc")
	pf.StringVar(&a.flags.storePath, "store-path", "", "phrase store file")
	pf.StringVar(&a.flags.provider, "provider", "", "online voice provider: yandex, azure, google or none")

	root.AddCommand(
		newSayCmd(a),
		newCategoryCmd(a),
		newStatementCmd(a),
		newImportCmd(a),
		newBanksCmd(a),
		newMigrateCmd(a),
		newExportCmd(a),
		newFeedbackCmd(a),
		newCacheCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and opens the log.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configFile)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("store") {
		cfg.Store.Backend = a.flags.backend
	}
	if f.Changed("store-path") {
		cfg.Store.Path = a.flags.storePath
	}
	if f.Changed("provider") {
		cfg.Speech.Provider = a.flags.provider
	}
	if f.Changed("log-file") {
		cfg.LogFile = a.flags.logFile
	}
	if a.flags.offline {
		cfg.Probe.Offline = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Level()
	if a.flags.verbose {
		level = logger.LevelVerbose
	}
	if a.flags.quiet {
		level = logger.LevelOff
	}

	// Logs go to a file by default so the prompt stays clean.
	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" && cfg.LogFile != "stderr" && level != logger.LevelOff {
		if dir := filepath.Dir(cfg.LogFile); dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		lf, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.LogFile, err)
		} else {
			logOut = lf
			a.closers = append(a.closers, lf.Close)
		}
	}

	// Third-party libraries (the whisper transcriber) log through the
	// standard package; send that to the same place.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	a.cfg = cfg
	a.log = logger.New(level, logOut)
	a.log.Debug("config: store=%s path=%s provider=%s offline=%v",
		cfg.Store.Backend, cfg.Store.Path, cfg.Speech.Provider, cfg.Probe.Offline)
	return nil
}

// close releases resources in reverse order. Safe to call twice.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.log != nil {
			a.log.Warn("close: %v", err)
		}
	}
	a.closers = nil
}
