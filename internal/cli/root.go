package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vietddude/armctl/internal/control"
	"github.com/vietddude/armctl/internal/core/config"
	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/storage"
	"github.com/vietddude/armctl/internal/metrics"
)

const defaultConfigPath = "armctl.yaml"

var errNoCommand = errors.New("no command given")

// options are the global flags.
type options struct {
	cfgPath         string
	baseURL         string
	timeout         float64 // seconds
	retries         int
	limitsFile      string
	metricsTextfile string
	verbose         bool
	init            bool
}

// app is the state shared by every command of one invocation.
type app struct {
	opts   options
	cfg    *config.AppConfig
	out    *printer
	logger *slog.Logger
	logOut io.Closer
}

// Execute runs the CLI and exits the process with its status code.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the CLI with args and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{out: newPrinter(stdout, stderr)}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.flushMetrics()
	if a.logOut != nil {
		_ = a.logOut.Close()
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNoCommand):
		_ = root.Help()
	default:
		a.out.Fail(err)
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "armctl",
		Short: "Command an SO-101 arm through its Phosphobot controller",
		Long: `armctl sends init and absolute-move commands to a Phosphobot controller.
Every pose is checked against a safety envelope before it is sent, and
transient network failures are retried with exponential backoff.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.opts.init {
				return errNoCommand
			}
			return a.withSession(cmd.Context(), func(ctx context.Context, s *control.Session) error {
				return a.initialize(ctx, s)
			})
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.opts.cfgPath, "config", defaultConfigPath, "config file, optional unless given explicitly")
	f.StringVar(&a.opts.baseURL, "base-url", "", "controller base URL (overrides config and "+config.EnvBaseURL+")")
	f.Float64Var(&a.opts.timeout, "timeout", control.DefaultTimeout.Seconds(), "per-attempt timeout in seconds")
	f.IntVar(&a.opts.retries, "retries", control.DefaultMaxRetries, "retries after the first attempt")
	f.StringVar(&a.opts.limitsFile, "limits-file", "", "YAML or JSON safety envelope")
	f.StringVar(&a.opts.metricsTextfile, "metrics-textfile", "", "write metrics in node-exporter textfile format on exit")
	f.BoolVarP(&a.opts.verbose, "verbose", "v", false, "enable debug logging")
	f.BoolVar(&a.opts.init, "init", false, "initialize the arm before the command")

	root.AddCommand(
		a.initCmd(),
		a.moveCmd(),
		a.runCmd(),
		a.historyCmd(),
		a.limitsCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	var err error
	if cmd.Flags().Changed("config") {
		a.cfg, err = config.Load(a.opts.cfgPath)
	} else {
		a.cfg, err = config.LoadOptional(a.opts.cfgPath)
	}
	if err != nil {
		return &domain.Error{Kind: domain.KindConfiguration, Message: "load config", Err: err}
	}

	if cmd.Flags().Changed("timeout") {
		a.cfg.Controller.Timeout = time.Duration(a.opts.timeout * float64(time.Second))
	}
	if cmd.Flags().Changed("retries") {
		a.cfg.Controller.MaxRetries = &a.opts.retries
	}
	if a.opts.limitsFile != "" {
		a.cfg.LimitsFile = a.opts.limitsFile
	}
	if a.opts.metricsTextfile != "" {
		a.cfg.Metrics.Textfile = a.opts.metricsTextfile
	}

	a.logOut = setupLogging(a.cfg.Logging, a.opts.verbose)
	a.logger = slog.Default()
	return nil
}

// limits returns the envelope from the limits file, or the defaults.
func (a *app) limits() (domain.Limits, error) {
	if a.cfg.LimitsFile == "" {
		return domain.DefaultLimits(), nil
	}
	return config.LoadLimitsFile(a.cfg.LimitsFile)
}

func (a *app) sessionConfig(journal storage.JournalRepository) (control.Config, error) {
	limits, err := a.limits()
	if err != nil {
		return control.Config{}, err
	}

	cc := a.cfg.Controller
	cfg := control.DefaultConfig(config.ResolveBaseURL(a.opts.baseURL, a.cfg))
	cfg.Timeout = cc.Timeout
	cfg.MaxRetries = *cc.MaxRetries
	cfg.Retry.BaseDelay = cc.BaseDelay
	if cc.MaxDelay > 0 {
		cfg.Retry.MaxDelay = cc.MaxDelay
	}
	cfg.Retry.Jitter = cc.Jitter
	cfg.Limits = &limits
	cfg.Journal = journal
	cfg.Logger = a.logger
	return cfg, nil
}

// withSession opens the journal and a Session around fn. The session owns
// the journal once it is open.
func (a *app) withSession(ctx context.Context, fn func(ctx context.Context, s *control.Session) error) error {
	journal, err := control.OpenJournal(ctx, a.cfg.Journal, a.logger)
	if err != nil {
		return &domain.Error{Kind: domain.KindConfiguration, Message: "open journal", Err: err}
	}

	cfg, err := a.sessionConfig(journal)
	if err != nil {
		_ = journal.Close()
		return err
	}

	opened := false
	err = control.WithSession(ctx, cfg, func(ctx context.Context, s *control.Session) error {
		opened = true
		return fn(ctx, s)
	})
	if !opened {
		_ = journal.Close()
	}
	return err
}

func (a *app) initialize(ctx context.Context, s *control.Session) error {
	resp, err := s.Initialize(ctx)
	if err != nil {
		return err
	}
	return a.out.OK("arm initialized", resp)
}

func (a *app) flushMetrics() {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.out.Warn(fmt.Sprintf("write metrics textfile: %v", err))
	}
}
