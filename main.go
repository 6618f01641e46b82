package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cliOptions struct {
	configFile          string
	source              string
	destination         string
	containerName       string
	uploadingPrefix     string
	backupDirectoryName string
	logLevel            string
	maxRequest          int
	maxUpload           int
	maxUploadSize       int64
	dryRun              bool
	progress            bool
	versioning          bool
	purgeUploadingFiles bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "mirrorsync",
		Short:         "Mirror local directories into an object storage container",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, false)
		},
	}
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scenarios on their configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, true)
		},
	}
	rootCmd.AddCommand(daemonCmd)

	bindFlags(rootCmd, opts)

	return rootCmd
}

func bindFlags(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Configuration file path")
	flags.StringVar(&opts.source, "source", "", "Local directory to sync")
	flags.StringVar(&opts.destination, "destination", "", "Remote directory to sync into")
	flags.StringVar(&opts.containerName, "container-name", "", "Container to sync into")
	flags.StringVar(&opts.uploadingPrefix, "uploading-prefix", "", "Name prefix of in-progress segments")
	flags.StringVar(&opts.backupDirectoryName, "backup-directory-name", "", "Name of the per-directory backup folder")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.IntVar(&opts.maxRequest, "max-request", 0, "Concurrent metadata requests")
	flags.IntVar(&opts.maxUpload, "max-upload", 0, "Concurrent segment uploads")
	flags.Int64Var(&opts.maxUploadSize, "max-upload-size", 0, "Segment size in bytes")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Log mutating calls without sending them")
	flags.BoolVar(&opts.progress, "progress", false, "Report transfer rates")
	flags.BoolVar(&opts.versioning, "versioning", false, "Move replaced entries into backup directories")
	flags.BoolVar(&opts.purgeUploadingFiles, "purge-uploading-files", false, "Delete segments left by interrupted uploads")
}

// applyFlags lets explicitly set flags win over the config file.
func applyFlags(cmd *cobra.Command, opts *cliOptions, appConfig *AppConfig) {
	flags := cmd.Flags()
	if flags.Changed("container-name") {
		appConfig.Container = opts.containerName
	}
	if flags.Changed("uploading-prefix") {
		appConfig.UploadingPrefix = opts.uploadingPrefix
	}
	if flags.Changed("backup-directory-name") {
		appConfig.BackupDirectoryName = opts.backupDirectoryName
	}
	if flags.Changed("log-level") {
		appConfig.LogLevel = opts.logLevel
	}
	if flags.Changed("max-request") {
		appConfig.MaxRequest = opts.maxRequest
	}
	if flags.Changed("max-upload") {
		appConfig.MaxUpload = opts.maxUpload
	}
	if flags.Changed("max-upload-size") {
		appConfig.MaxUploadSize = opts.maxUploadSize
	}
	if flags.Changed("dry-run") {
		appConfig.DryRun = opts.dryRun
	}
	if flags.Changed("progress") {
		appConfig.Progress = opts.progress
	}
	if flags.Changed("versioning") {
		appConfig.Versioning = opts.versioning
	}
	if flags.Changed("purge-uploading-files") {
		appConfig.PurgeUploadingFiles = opts.purgeUploadingFiles
	}
	if opts.source != "" {
		appConfig.Sync = []SyncConfig{{Source: opts.source, Destination: opts.destination}}
	}
}

func configureLogging(level string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if level == "" {
		level = "info"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(parsed)
	return nil
}

func run(cmd *cobra.Command, opts *cliOptions, daemon bool) error {
	appConfig, configErr := LoadConfig(opts.configFile)
	if configErr != nil {
		log.Error(configErr)
		return configErr
	}
	applyFlags(cmd, opts, &appConfig)

	if logErr := configureLogging(appConfig.LogLevel); logErr != nil {
		log.Error(fmt.Sprintf("Invalid log level: %s", logErr))
		return logErr
	}
	if validateErr := appConfig.Validate(); validateErr != nil {
		log.Error(fmt.Sprintf("Invalid configuration: %s", validateErr))
		return validateErr
	}

	log.Info("Starting with config:")
	for _, line := range appConfig.ConfigStringArray() {
		log.Info(line)
	}

	transport, transportErr := appConfig.TransportFromConfig()
	if transportErr != nil {
		log.Error(transportErr)
		return transportErr
	}
	store := NewStore(transport, appConfig.StoreOptions())
	defer store.Close()

	var notifier Notifier
	if appConfig.Notify.Topic != "" {
		snsNotifier, notifierErr := NewSNSNotifier(appConfig)
		if notifierErr != nil {
			log.Error(fmt.Sprintf("Error creating notifier: %s", notifierErr))
			return notifierErr
		}
		notifier = snsNotifier
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := NewSyncHandler(store, appConfig, notifier)
	if daemon {
		return RunDaemon(ctx, handler, appConfig.Sync)
	}

	syncErr := handler.Sync(ctx)
	if syncErr != nil {
		log.Error(syncErr)
	}
	return syncErr
}
