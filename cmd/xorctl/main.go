package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pietroferretti/ctftools/internal/analysis"
	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/codec"
	"github.com/pietroferretti/ctftools/internal/config"
	"github.com/pietroferretti/ctftools/internal/logging"
	"github.com/spf13/cobra"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks errors caused by bad invocations; they exit with 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}
	root := a.rootCommand()
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	a.close()
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
	var uerr usageError
	if errors.As(err, &uerr) {
		return exitUsage
	}
	return exitFailure
}

// app holds the resolved configuration and shared services of one
// invocation.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath     string
	encoding       string
	outputEncoding string
	combiner       string
	workers        int
	logLevel       string
	logFormat      string
	auditLog       string

	cfg    config.Config
	logger *slog.Logger
	audit  *logging.AuditLogger
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "xorctl",
		Short: "Break repeating-key XOR style ciphers",
		Long: "xorctl estimates the key length of repeating-key ciphertexts, prunes key bytes\n" +
			"against a plaintext alphabet, ranks candidate keys and drives interactive crib dragging.",
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown command %q", args[0])
			}
			_ = cmd.Help()
			return usagef("a command is required")
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (.toml or .yml) replacing the default lookup")
	flags.StringVarP(&a.encoding, "encoding", "e", "raw", "input encoding: raw, hex, base64, base64url, binary or auto")
	flags.StringVar(&a.outputEncoding, "output-encoding", "raw", "encoding of byte output")
	flags.StringVarP(&a.combiner, "combiner", "c", "", "byte combiner: xor, add, sub (default from config)")
	flags.IntVar(&a.workers, "workers", 0, "goroutines per analysis stage (default from config)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&a.auditLog, "audit-log", "", "append JSON audit events to this file")

	root.AddCommand(
		a.keylenCommand(),
		a.candidatesCommand(),
		a.crackCommand(),
		a.cribdragCommand(),
		a.embeddedCommand(),
		a.transformCommand("encrypt"),
		a.transformCommand("decrypt"),
		a.serveCommand(),
		a.configCommand(),
		a.combinersCommand(),
		a.charsetsCommand(),
		a.encodingsCommand(),
	)
	return root
}

// setup resolves configuration, applies flag overrides and builds the
// loggers. Flags win over configuration files and environment.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var (
		cfg config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("combiner") {
		cfg.Analysis.Combiner = a.combiner
	}
	if flags.Changed("workers") {
		cfg.Analysis.Workers = a.workers
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if flags.Changed("audit-log") {
		cfg.Logging.AuditLog = a.auditLog
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err: err}
	}
	if !strings.EqualFold(strings.TrimSpace(a.encoding), codec.Auto) {
		if _, err := codec.Get(a.encoding); err != nil {
			return usageError{err: err}
		}
	}
	if _, err := codec.Get(a.outputEncoding); err != nil {
		return usageError{err: err}
	}
	a.cfg = cfg

	a.logger, err = logging.NewLogger(a.errOut, logging.LoggerOptions{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return usageError{err: err}
	}

	if cfg.Logging.AuditLog != "" {
		a.audit, err = logging.NewAuditLogger("xorctl", logging.WithoutStdout(), logging.WithFile(cfg.Logging.AuditLog))
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
	} else {
		a.audit = logging.Discard()
	}
	return nil
}

func (a *app) close() {
	if a.audit == nil {
		return
	}
	if err := a.audit.Close(); err != nil && a.logger != nil {
		a.logger.Warn("close audit log", "error", err)
	}
}

// options returns the analysis options described by the configuration.
func (a *app) options() (analysis.Options, error) {
	charset, err := analysis.LookupCharset(a.cfg.Analysis.Charset)
	if err != nil {
		return analysis.Options{}, usageError{err: err}
	}
	combiner, err := a.combinerValue()
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{
		MaxComparisons: a.cfg.Analysis.MaxComparisons,
		TopN:           a.cfg.Analysis.TopN,
		Charset:        charset,
		Combiner:       combiner,
		Workers:        a.cfg.Analysis.Workers,
		Logger:         a.logger,
	}, nil
}

func (a *app) combinerValue() (cipher.Combiner, error) {
	c, err := cipher.LookupCombiner(a.cfg.Analysis.Combiner)
	if err != nil {
		return nil, usageError{err: err}
	}
	return c, nil
}

func (a *app) emit(event logging.AuditEvent) {
	if err := a.audit.Emit(event); err != nil {
		a.logger.Warn("emit audit event", "event", event.EventType, "error", err)
	}
}
