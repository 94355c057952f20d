package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vending_client/internal/config"
	"vending_client/internal/logging"
	"vending_client/internal/metrics"
	"vending_client/internal/tui"
	"vending_client/internal/vending"
	"vending_client/internal/viewmodel"

	"go.uber.org/zap"
)

type Runner struct {
	options Options
	logger  *zap.Logger
	metrics *metrics.ClientMetrics
	logFile *os.File
	stdout  io.Writer
	stderr  io.Writer
}

func NewRunner(cfg config.Config, logger *zap.Logger, m *metrics.ClientMetrics, logFile *os.File) *Runner {
	logger = logger.Named("cli")
	opts := Options{
		BaseURL:      cfg.BackendBaseURL,
		Currency:     cfg.Currency,
		MetricsAddr:  cfg.MetricsAddr,
		Timeout:      cfg.Timeout,
		PollInterval: cfg.PollInterval,
		LogFile:      cfg.LogFile,
		Debug:        cfg.Debug,
	}

	return &Runner{
		options: opts,
		logger:  logger,
		metrics: m,
		logFile: logFile,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

func (r *Runner) Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return r.run(ctx, os.Args[1:])
}

func (r *Runner) run(ctx context.Context, args []string) error {
	opts := r.options
	if err := parseFlags(&opts, args, r.stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := r.logger
	if opts.Command == "" {
		logger = logging.FileOnly(r.logger, r.logFile, opts.Debug)
	}

	client := newVendingClientFromOptions(&opts, logger, r.metrics)
	vm := viewmodel.New(client, logger, r.metrics)

	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(opts.MetricsAddr, r.metrics, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if opts.Command == "" {
		return runTUI(ctx, &opts, logger, vm, client.BaseURL())
	}
	return runCommand(ctx, &opts, logger, vm, client.BaseURL(), r.stdout)
}

func parseFlags(opts *Options, args []string, stderr io.Writer) error {
	var timeoutSeconds int

	fs := flag.NewFlagSet("vending-client", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] [command [args]]\n\n", fs.Name())
		fmt.Fprintln(stderr, "Without a command the interactive terminal UI starts.")
		fmt.Fprintln(stderr, "\nCommands:")
		for _, c := range commandList() {
			fmt.Fprintf(stderr, "  %-22s %s\n", c.usage, c.help)
		}
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.BaseURL, "base-url", opts.BaseURL, "Backend base URL (BACKEND_BASE_URL)")
	fs.StringVar(&opts.Currency, "currency", opts.Currency, "Currency shown next to amounts (CURRENCY)")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr, "Serve Prometheus metrics on this address, e.g. :9090 (METRICS_ADDR)")
	fs.BoolVar(&opts.JSON, "json", false, "Output JSON format")
	fs.BoolVar(&opts.Debug, "debug", opts.Debug, "Enable debug logging")
	fs.StringVar(&opts.LogFile, "log-file", opts.LogFile, "Log file path")
	fs.IntVar(&timeoutSeconds, "timeout", int(opts.Timeout.Seconds()), "Timeout in seconds")
	fs.DurationVar(&opts.PollInterval, "poll-interval", opts.PollInterval, "Transaction polling interval")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("parse flags: %w", err)
	}

	if timeoutSeconds > 0 {
		opts.Timeout = time.Duration(timeoutSeconds) * time.Second
	}

	rest := fs.Args()
	if len(rest) > 0 {
		opts.Command = strings.ToLower(strings.TrimSpace(rest[0]))
		opts.Args = rest[1:]
	}
	if opts.Command == "help" {
		fs.Usage()
		return flag.ErrHelp
	}
	return nil
}

func newVendingClientFromOptions(opts *Options, logger *zap.Logger, m *metrics.ClientMetrics) *vending.Client {
	cfg := config.Config{
		BackendBaseURL: opts.BaseURL,
		Timeout:        opts.Timeout,
	}
	return vending.NewClient(cfg, logger, m)
}

func runTUI(ctx context.Context, opts *Options, logger *zap.Logger, vm *viewmodel.ViewModel, baseURL string) error {
	pollCtx, stopPolling := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		viewmodel.NewPoller(vm, opts.PollInterval, logger).Run(pollCtx)
	}()
	defer func() {
		stopPolling()
		<-done
	}()

	logger.Info("terminal ui started",
		zap.String("base_url", baseURL),
		zap.Duration("poll_interval", opts.PollInterval),
	)
	return tui.Run(ctx, vm, opts.Currency, logger)
}
