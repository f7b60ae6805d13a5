package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simplesurance/prkeeper/internal/bookkeeper"
	"github.com/simplesurance/prkeeper/internal/cfg"
	"github.com/simplesurance/prkeeper/internal/githubclt"
	"github.com/simplesurance/prkeeper/internal/logfields"
	"github.com/simplesurance/prkeeper/internal/marker"
	"github.com/simplesurance/prkeeper/internal/mergeability"
	"github.com/simplesurance/prkeeper/internal/pullfilter"
	"github.com/simplesurance/prkeeper/internal/retryer"
)

const appName = "prkeeper"

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught , terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)
	}
}

type arguments struct {
	Verbose     *bool
	ConfigFile  *string
	ShowVersion *bool
	GithubToken *string
	GithubRepo  *string
	DryRun      *bool
	MetricsFile *string
	Pull        *int
	Section     *string
	SectionText *string
}

var args arguments

func mustParseCommandlineParams() {
	args = arguments{
		Verbose: pflag.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			"",
			"path to an optional prkeeper configuration file",
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
		GithubToken: pflag.String(
			"github-access-token",
			"",
			"GitHub API access token",
		),
		GithubRepo: pflag.String(
			"github-repo",
			cfg.DefGithubRepository,
			"GitHub repository in the format owner/name",
		),
		DryRun: pflag.Bool(
			"dry-run",
			false,
			"log changes instead of applying them",
		),
		MetricsFile: pflag.String(
			"metrics-file",
			"",
			"write prometheus metrics in the textfile format to the file after the run",
		),
		Pull: pflag.Int(
			"pull",
			0,
			"pull request number, update a metadata section of the pull request instead of running a bookkeeping pass",
		),
		Section: pflag.String(
			"section",
			"",
			fmt.Sprintf("metadata section to update, one of: %v", marker.SectionNames()),
		),
		SectionText: pflag.String(
			"section-text",
			"",
			"text of the metadata section, if unset the current text is printed",
		),
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]\nLabel pull requests that need a rebase and maintain their metadata comments.\n", appName)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
	}
	pflag.Usage = flag.Usage

	pflag.Parse()
}

func mustParseCfg() *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	var config *cfg.Config

	if *args.ConfigFile == "" {
		config = cfg.Default()
	} else {
		file, err := os.Open(*args.ConfigFile)
		exitOnErr("could not open configuration files", err)
		defer file.Close()

		config, err = cfg.Load(file)
		if err != nil {
			exitOnErr(fmt.Sprintf("could not load configuration file: %s", *args.ConfigFile), err)
		}
	}

	// command line parameters that were set explicitly override the
	// values of the config file
	if pflag.CommandLine.Changed("github-access-token") {
		config.GithubAPIToken = *args.GithubToken
	}
	if pflag.CommandLine.Changed("github-repo") {
		config.GithubRepository = *args.GithubRepo
	}
	if pflag.CommandLine.Changed("dry-run") {
		config.DryRun = *args.DryRun
	}
	if pflag.CommandLine.Changed("metrics-file") {
		config.MetricsFile = *args.MetricsFile
	}

	exitOnErr("invalid configuration", config.Validate())

	return config
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	var logLevel zapcore.Level
	if *args.Verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s \n", config.LogLevel, err)
			os.Exit(2)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.Register(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	})
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func writeMetrics(path string) {
	if path == "" {
		return
	}

	err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
	if err != nil {
		logger.Warn(
			"writing metrics file failed",
			logfields.Event("metrics_file_write_failed"),
			zap.String("metrics_file", path),
			zap.Error(err),
		)
		return
	}

	logger.Debug(
		"metrics written",
		logfields.Event("metrics_file_written"),
		zap.String("metrics_file", path),
	)
}

func updateSection(ctx context.Context, bk *bookkeeper.Bookkeeper) error {
	if *args.Pull <= 0 {
		return fmt.Errorf("--pull must be a positive pull request number, is: %d", *args.Pull)
	}

	section, err := marker.ParseID(*args.Section)
	if err != nil {
		return err
	}

	if !section.IsSection() {
		return fmt.Errorf("%q is not a metadata section, supported: %v", *args.Section, marker.SectionNames())
	}

	if !pflag.CommandLine.Changed("section-text") {
		text, found, err := bk.SectionText(ctx, *args.Pull, section)
		if err != nil {
			return err
		}

		if !found {
			return fmt.Errorf("pull request #%d has no %s section", *args.Pull, section)
		}

		fmt.Println(text)
		return nil
	}

	_, err = bk.UpdateMetadataComment(ctx, *args.Pull, section, *args.SectionText)
	return err
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	config := mustParseCfg()

	mustInitLogger(config)

	owner, repo, err := config.Repository()
	exitOnErr("invalid repository", err)

	pollInterval, err := config.PollIntervalDuration()
	exitOnErr("invalid poll interval", err)

	filter, err := pullfilter.New(config.PullFilterQuery)
	exitOnErr("invalid pull_filter_query", err)

	logger.Info(
		"loaded cfg",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("github_api_token", hide(config.GithubAPIToken)),
		zap.String("github_repository", config.GithubRepository),
		logfields.DryRun(config.DryRun),
		zap.String("needs_rebase_label", config.NeedsRebaseLabel),
		zap.String("needs_rebase_comment", config.NeedsRebaseComment),
		zap.String("pull_filter_query", config.PullFilterQuery),
		zap.Int("max_poll_iterations", *config.MaxPollIterations),
		zap.Duration("poll_interval", pollInterval),
		zap.String("log_format", config.LogFormat),
		zap.String("log_time_key", config.LogTimeKey),
		zap.String("log_level", config.LogLevel),
		zap.String("metrics_file", config.MetricsFile),
	)

	if config.GithubAPIToken == "" {
		logger.Warn(
			"no github api token configured, requests are unauthenticated and mutations will fail",
			logfields.Event("github_token_missing"),
		)
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	goodbye.Register(func(_ context.Context, sig os.Signal) {
		logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
		cancelFn()
	})

	githubClient := githubclt.New(config.GithubAPIToken)

	bk := bookkeeper.New(
		githubClient,
		retryer.New(),
		owner, repo,
		bookkeeper.WithDryRun(config.DryRun),
		bookkeeper.WithNeedsRebaseLabel(config.NeedsRebaseLabel),
		bookkeeper.WithNeedsRebaseComment(config.NeedsRebaseComment),
		bookkeeper.WithPullFilter(filter),
		bookkeeper.WithPollerOptions(
			mergeability.WithMaxIterations(*config.MaxPollIterations),
			mergeability.WithInterval(pollInterval),
		),
	)

	if pflag.CommandLine.Changed("section") || pflag.CommandLine.Changed("pull") {
		err = updateSection(ctx, bk)
	} else {
		err = bk.Run(ctx)
	}

	writeMetrics(config.MetricsFile)

	if err != nil {
		var unresolvedErr *mergeability.UnresolvedError
		if errors.As(err, &unresolvedErr) {
			logger.Error(
				"github did not compute the mergeability of all pull requests in time",
				logfields.Event("mergeability_unresolved"),
				zap.Ints("github.pull_requests", unresolvedErr.PullRequests),
				zap.Int("iterations", unresolvedErr.Iterations),
			)
		} else {
			logger.Error("run failed", logfields.Event("run_failed"), zap.Error(err))
		}

		goodbye.Exit(context.Background(), 1)
	}

	goodbye.Exit(context.Background(), 0)
}
