package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/editionfetch/pkg/config"
	"github.com/entrhq/editionfetch/pkg/logging"
)

const version = "0.1.0"

// options holds command-line configuration
type options struct {
	configPath      string
	envFile         string
	verbosity       string
	reportDir       string
	downloadDir     string
	headful         bool
	pendingRetries  int
	pendingInterval time.Duration
}

// app carries what every command needs once flags are parsed.
type app struct {
	opts   options
	cfg    *config.Config
	log    *logging.Logger
	runID  string
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "edition-fetch",
		Short: "Download the current edition as EPUB and upload it",
		Long: `edition-fetch logs into the e-paper site with a real browser, downloads
the EPUB of the current edition and posts it to the receiver named by
CUSTOM_URL. Without a subcommand it runs "fetch".`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runFetch,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "Path to configuration file (YAML)")
	flags.StringVar(&a.opts.envFile, "env-file", ".env", "Dotenv file with secrets (optional unless set explicitly)")
	flags.StringVar(&a.opts.verbosity, "verbosity", "", "Logging verbosity: quiet, normal, verbose or debug")
	flags.StringVar(&a.opts.reportDir, "report-dir", "", "Write run.json and summary.md into this directory")
	flags.StringVar(&a.opts.downloadDir, "download-dir", "", "Directory receiving the download (default: a fresh temporary directory)")
	flags.BoolVar(&a.opts.headful, "headful", false, "Show the browser window")
	addRetryFlags(root, &a.opts)

	root.AddCommand(a.fetchCmd(), a.downloadCmd(), a.uploadCmd())
	return root
}

func addRetryFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().IntVar(&opts.pendingRetries, "pending-retries", 0, "Retry this many times while the edition is not ready")
	cmd.Flags().DurationVar(&opts.pendingInterval, "pending-interval", 15*time.Minute, "Pause between retries of a pending edition")
}

// setup loads secrets and configuration, applies flag overrides and creates
// the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(a.opts.envFile, !cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfg, err := config.Load(a.opts.configPath, nil)
	if err != nil {
		return err
	}
	a.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level := logging.ParseLevel(cfg.Logging.Verbosity)
	if cfg.Logging.File {
		log, err := logging.NewWithFile(a.stderr, "edition-fetch", level)
		if err != nil {
			log.Warnf("logging to stderr only: %v", err)
		}
		a.log = log
	} else {
		a.log = logging.New(a.stderr, "edition-fetch", level)
	}
	a.runID = logging.RunID()
	a.log.Debugf("run %s, config %+v", a.runID, cfg.Browser)
	return nil
}

// applyFlags overrides configuration values with explicitly set flags.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		cfg.Logging.Verbosity = a.opts.verbosity
	}
	if flags.Changed("headful") {
		cfg.Browser.Headless = !a.opts.headful
	}
	if flags.Changed("download-dir") {
		cfg.Download.Dir = a.opts.downloadDir
	}
}
