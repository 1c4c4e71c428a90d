// Package commands builds the tusk command line: global flags, config
// loading and one subcommand per verb.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/tusk/internal"
	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/parser"
	"github.com/starford/tusk/internal/render"
	"github.com/starford/tusk/internal/taskservice"
	pkgconfig "github.com/starford/tusk/pkg/config"
)

// New returns the root command. opts are applied after the config is
// loaded, on top of the config and logger options every command sets.
func New(opts ...internal.Option) *cli.Command {
	root := &cli.Command{
		Name:            "tusk",
		Usage:           "Date-scoped personal task tracker backed by plain JSON day files",
		HideHelpCommand: true,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// Anything that is not a verb reaches here as an argument.
			if cmd.NArg() > 0 {
				return fmt.Errorf("%w: unknown command %q", apperr.ErrInvalidArgument, cmd.Args().First())
			}
			return listAction(opts)(ctx, cmd)
		},
		Suggest:         true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "$XDG_CONFIG_HOME/tusk/config.yaml",
				Sources:     cli.EnvVars("TUSK_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory holding the vaults",
				Sources: cli.EnvVars("TUSK_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Named vault to operate on",
				Sources: cli.EnvVars("TUSK_VAULT"),
			},
			&cli.StringFlag{
				Name:    "date",
				Aliases: []string{"d"},
				Usage:   "Target day: YYYY-MM-DD, today, yesterday or tomorrow",
				Value:   "today",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Print results as JSON",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable coloured output",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			addCommand(opts),
			lsCommand(opts),
			completionCommand("done", "Mark tasks done", taskservice.MarkDone, opts),
			completionCommand("undone", "Mark tasks open again", taskservice.MarkUndone, opts),
			completionCommand("toggle", "Flip the done state of tasks", taskservice.Toggle, opts),
			rmCommand(opts),
			editCommand(opts),
			mvCommand(opts),
			migrateCommand(opts),
			reviewCommand(opts),
			exportCommand(opts),
			searchCommand(opts),
			serveCommand(opts),
			mcpCommand(opts),
		},
	}

	root.OnUsageError = usageError
	for _, sub := range root.Commands {
		sub.OnUsageError = usageError
	}
	return root
}

// usageError classifies flag parsing failures as malformed input.
func usageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
}

// env is what a subcommand action works with once config is resolved.
type env struct {
	cfg     *internal.Config
	app     *internal.App
	out     io.Writer
	errOut  io.Writer
	json    bool
	color   bool
	noColor bool
	printer *render.Printer
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tusk", "config.yaml")
}

// loadConfig reads the config file and applies the global flag overrides.
// An explicit --config must exist; the default location is optional.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	var err error
	if path := cmd.String("config"); path != "" {
		err = pkgconfig.Load(path, cfg)
	} else {
		err = pkgconfig.LoadOptional(defaultConfigPath(), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
	}

	if v := cmd.String("data-dir"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Store.Vault = v
	}
	if cmd.Bool("verbose") {
		cfg.App.LogLevel = slog.LevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: config validation failed: %v", apperr.ErrInvalidArgument, err)
	}
	return cfg, nil
}

func setup(cmd *cli.Command, opts []internal.Option) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	root := cmd.Root()
	e := &env{
		cfg:     cfg,
		out:     root.Writer,
		errOut:  root.ErrWriter,
		json:    cmd.Bool("json"),
		noColor: cmd.Bool("no-color"),
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	if e.errOut == nil {
		e.errOut = os.Stderr
	}
	if f, ok := e.out.(*os.File); ok {
		e.color = render.ColorEnabled(f, e.noColor)
	}

	logger := slog.New(slog.NewTextHandler(e.errOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	all := append([]internal.Option{internal.WithConfig(cfg), internal.WithLogger(logger)}, opts...)
	app, err := internal.Open(all...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	e.app = app
	e.printer = render.NewPrinter(e.out, e.color, app.Store.Location(), app.Store.Now())
	return e, nil
}

// day resolves the global --date flag.
func (e *env) day(cmd *cli.Command) (dates.Date, error) {
	return e.app.Store.ResolveDate(cmd.String("date"))
}

// dateRange reads --from/--to. Without either the range is the --date
// day; a lone --from runs to itself and a lone --to starts at --date.
func (e *env) dateRange(cmd *cli.Command) (dates.Range, error) {
	d, err := e.day(cmd)
	if err != nil {
		return dates.Range{}, err
	}
	from, to := d, d
	if v := cmd.String("from"); v != "" {
		if from, err = e.app.Store.ResolveDate(v); err != nil {
			return dates.Range{}, err
		}
		to = from
	}
	if v := cmd.String("to"); v != "" {
		if to, err = e.app.Store.ResolveDate(v); err != nil {
			return dates.Range{}, err
		}
	}
	return dates.NewRange(from, to)
}

// warn prints advisory parser warnings. They never change the exit status.
func (e *env) warn(warnings []parser.Warning) {
	color := false
	if f, ok := e.errOut.(*os.File); ok {
		color = render.ColorEnabled(f, e.noColor)
	}
	for _, w := range warnings {
		render.Warning(e.errOut, color, w.Error())
	}
}

// selectors collects positional indices and repeated --id values.
func selectors(cmd *cli.Command) ([]models.Selector, error) {
	var sels []models.Selector
	for _, arg := range cmd.Args().Slice() {
		sel, err := models.ParseIndex(arg)
		if err != nil {
			return nil, err
		}
		sels = append(sels, sel)
	}
	for _, id := range cmd.StringSlice("id") {
		if id = strings.TrimSpace(id); id != "" {
			sels = append(sels, models.ByID(id))
		}
	}
	if len(sels) == 0 {
		return nil, fmt.Errorf("%w: give at least one task index or --id", apperr.ErrInvalidArgument)
	}
	return sels, nil
}

// singleSelector accepts exactly one of a positional index or --id.
func singleSelector(cmd *cli.Command) (models.Selector, error) {
	id := strings.TrimSpace(cmd.String("id"))
	switch {
	case cmd.NArg() > 1:
		return models.Selector{}, fmt.Errorf("%w: expected a single task index", apperr.ErrInvalidArgument)
	case cmd.NArg() == 1 && id != "":
		return models.Selector{}, fmt.Errorf("%w: give either an index or --id, not both", apperr.ErrConflict)
	case cmd.NArg() == 1:
		return models.ParseIndex(cmd.Args().First())
	case id != "":
		return models.ByID(id), nil
	}
	return models.Selector{}, fmt.Errorf("%w: give a task index or --id", apperr.ErrInvalidArgument)
}

// parseSelector reads a --before/--after value: digits select by index,
// anything else by id.
func parseSelector(s string) (models.Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Selector{}, nil
	}
	if _, err := strconv.Atoi(s); err == nil {
		return models.ParseIndex(s)
	}
	return models.ByID(s), nil
}

// priorityFlag parses an optional priority flag; nil when unset.
func priorityFlag(cmd *cli.Command, name string) (*models.Priority, error) {
	if !cmd.IsSet(name) {
		return nil, nil
	}
	p, err := models.ParsePriority(cmd.String(name))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func runWith(opts []internal.Option, fn func(ctx context.Context, cmd *cli.Command, e *env) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		e, err := setup(cmd, opts)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, e)
	}
}
