// Package config provides CLI configuration and application logic for renketsu.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/mazrean/renketsu/internal/facts"
	"github.com/mazrean/renketsu/internal/renketsu"
	"github.com/mazrean/renketsu/internal/report"
	"github.com/mazrean/renketsu/internal/tracing"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI is the root command configuration with subcommands.
type CLI struct {
	out      io.Writer        `kong:"-"`
	LogLevel string           `kong:"short='l',help='Log level',enum='debug,info,warn,error',default='info'"`
	Config   string           `kong:"short='c',help='Settings file (default: ./renketsu.yaml)',type='path'"`
	Format   string           `kong:"short='f',help='Output format',enum='yaml,json',default='yaml'"`
	Scan     ScanCmd          `kong:"cmd,help='Print the registry built from the service units'"`
	Validate ValidateCmd      `kong:"cmd,help='Check that every dependency resolves and the graph is acyclic'"`
	Plan     PlanCmd          `kong:"cmd,help='Print the construction order'"`
	Resolve  ResolveCmd       `kong:"cmd,help='Resolve a contract or key against the registry'"`
	Version  kong.VersionFlag `kong:"short='v',help='Show version and exit.'"`
	Trace    bool             `kong:"help='Export OpenTelemetry spans to stderr'"`
}

// Inputs selects where service units come from.
type Inputs struct {
	Facts []string `kong:"short='i',type='existingfile',help='Fact files (YAML or JSON)'"`
	Go    []string `kong:"name='go',help='Go package patterns to analyze'"`
	Dir   string   `kong:"short='C',type='existingdir',default='.',help='Directory Go package patterns are resolved in'"`
}

// ScanCmd prints the registry.
type ScanCmd struct {
	Inputs `kong:"embed"`
}

// Run executes the scan command.
func (c *ScanCmd) Run(cli *CLI) error {
	return cli.withEngine(c.Inputs, func(ctx context.Context, s *session) error {
		return s.writer.Snapshot(s.engine.Registry(), s.engine.Edges(), s.engine.Warnings())
	})
}

// ValidateCmd prints the validation report and fails when the graph is
// invalid.
type ValidateCmd struct {
	Inputs `kong:"embed"`
}

// Run executes the validate command.
func (c *ValidateCmd) Run(cli *CLI) error {
	return cli.withEngine(c.Inputs, func(ctx context.Context, s *session) error {
		validation := s.engine.Validate(ctx)
		if err := s.writer.Validation(validation); err != nil {
			return err
		}

		return validation.Err()
	})
}

// PlanCmd prints the construction plan.
type PlanCmd struct {
	Inputs `kong:"embed"`
}

// Run executes the plan command.
func (c *PlanCmd) Run(cli *CLI) error {
	return cli.withEngine(c.Inputs, func(ctx context.Context, s *session) error {
		if err := s.engine.Validate(ctx).Err(); err != nil {
			return err
		}

		nodes, err := s.engine.Plan(ctx)
		if err != nil {
			return fmt.Errorf("order units: %w", err)
		}

		return s.writer.Plan(nodes, s.engine.Warnings())
	})
}

// ResolveCmd prints how a query resolves.
type ResolveCmd struct {
	Query  string `kong:"arg,help='Contract text or key'"`
	Inputs `kong:"embed"`
}

// Run executes the resolve command.
func (c *ResolveCmd) Run(cli *CLI) error {
	return cli.withEngine(c.Inputs, func(ctx context.Context, s *session) error {
		res := s.engine.Resolve(c.Query)
		if err := s.writer.Resolution(res); err != nil {
			return err
		}

		return res.Err
	})
}

type session struct {
	engine *renketsu.Engine
	writer *report.Writer
}

// withEngine loads settings and service units, scans them and runs fn.
func (cli *CLI) withEngine(in Inputs, fn func(context.Context, *session) error) error {
	setupLogger(cli.LogLevel)

	ctx := context.Background()

	settings, err := LoadSettings(cli.Config)
	if err != nil {
		return err
	}

	opts, err := settings.EngineOptions()
	if err != nil {
		return err
	}

	provider, err := tracing.NewProvider(tracing.Config{Enabled: cli.Trace})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	format, err := report.ParseFormat(cli.Format)
	if err != nil {
		return err
	}

	units, err := loadUnits(ctx, in)
	if err != nil {
		return err
	}

	engine := renketsu.New(append(opts,
		renketsu.WithLogger(slog.Default()),
		renketsu.WithTracer(provider.Tracer()),
	)...)
	if err := engine.Scan(ctx, units); err != nil {
		return err
	}

	out := cli.out
	if out == nil {
		out = os.Stdout
	}

	return fn(ctx, &session{
		engine: engine,
		writer: report.NewWriter(out, format),
	})
}

func loadUnits(ctx context.Context, in Inputs) ([]*renketsu.ServiceUnitFact, error) {
	if len(in.Facts) == 0 && len(in.Go) == 0 {
		return nil, errors.New("no inputs specified: use --facts or --go")
	}

	slog.Info("Loading service units", "facts", in.Facts, "go", in.Go)

	units, err := facts.LoadFiles(in.Facts...)
	if err != nil {
		return nil, err
	}

	if len(in.Go) > 0 {
		goUnits, err := facts.NewGoLoader(in.Dir).Load(ctx, in.Go...)
		if err != nil {
			return nil, err
		}
		units = append(units, goUnits...)
	}

	return units, nil
}

func Run() error {
	return run(os.Args[1:], os.Stdout)
}

func run(args []string, out io.Writer, options ...kong.Option) error {
	cli := CLI{out: out}
	parser, err := kong.New(&cli, append([]kong.Option{
		kong.Name("renketsu"),
		kong.Description("Resolves service contracts and orders their construction for dependency injection"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s) released on %s", version, commit, date),
		},
	}, options...)...)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) && parseErr.Context != nil {
			_ = parseErr.Context.PrintUsage(true)
		}
		return err
	}

	return kongCtx.Run(&cli)
}

func setupLogger(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
