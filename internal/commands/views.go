package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/tusk/internal"
	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/query"
	"github.com/starford/tusk/internal/render"
)

func (e *env) writeJSON(v any) error {
	return render.JSON(e.out, v)
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "First day of the range (defaults to --date)"},
		&cli.StringFlag{Name: "to", Usage: "Last day of the range (defaults to --from)"},
	}
}

func lsCommand(opts []internal.Option) *cli.Command {
	flags := append(rangeFlags(),
		&cli.BoolFlag{Name: "open", Aliases: []string{"o"}, Usage: "Only open tasks"},
		&cli.BoolFlag{Name: "done", Usage: "Only completed tasks"},
		&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Only tasks carrying this tag (repeatable, any matches)"},
		priorityFlagDef(),
		&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Usage: "Sort key: index, created, due, priority or status"},
		&cli.BoolFlag{Name: "reverse", Aliases: []string{"r"}, Usage: "Reverse the order"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Show at most this many tasks"},
		&cli.BoolFlag{Name: "count", Usage: "Print only the number of matches"},
	)

	return &cli.Command{
		Name:    "ls",
		Aliases: []string{"list"},
		Usage:   "List tasks for a day or a range of days",
		Flags:   flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				return fmt.Errorf("%w: unexpected argument %q", apperr.ErrInvalidArgument, cmd.Args().First())
			}
			return listAction(opts)(ctx, cmd)
		},
	}
}

// listAction prints the tasks selected by cmd's ls flags. The bare root
// command runs it too, where every ls flag reads as unset.
func listAction(opts []internal.Option) cli.ActionFunc {
	return runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
		r, err := e.dateRange(cmd)
		if err != nil {
			return err
		}
		qo, err := e.queryOptions(cmd)
		if err != nil {
			return err
		}

		res, err := e.app.Tasks.List(ctx, r, qo)
		if err != nil {
			return err
		}

		switch {
		case cmd.Bool("count") && e.json:
			return e.writeJSON(struct {
				Total int `json:"total"`
			}{res.Total})
		case cmd.Bool("count"):
			e.printer.Count(res.Total)
		case e.json:
			return e.writeJSON(res)
		default:
			e.printer.Entries(res.Entries)
		}
		return nil
	})
}

// queryOptions turns ls flags into query options. The config supplies the
// sort key when --sort is absent.
func (e *env) queryOptions(cmd *cli.Command) (query.Options, error) {
	qo := query.Options{
		Filter: query.Filter{
			Open: cmd.Bool("open"),
			Done: cmd.Bool("done"),
			Tags: cmd.StringSlice("tag"),
		},
		Reverse: cmd.Bool("reverse"),
		Limit:   int(cmd.Int("limit")),
	}
	if qo.Limit < 0 {
		return qo, fmt.Errorf("%w: --limit must not be negative", apperr.ErrInvalidArgument)
	}

	var err error
	if qo.Filter.Priority, err = priorityFlag(cmd, "priority"); err != nil {
		return qo, err
	}

	key := e.cfg.Defaults.Sort
	if cmd.IsSet("sort") {
		key = cmd.String("sort")
	}
	if qo.Sort, err = query.ParseSortKey(key); err != nil {
		return qo, err
	}
	return qo, nil
}

// statsView is the JSON shape of review.
type statsView struct {
	From  dates.Date  `json:"from"`
	To    dates.Date  `json:"to"`
	Stats query.Stats `json:"stats"`
}

func reviewCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Summarise a day or range: counts, tags, estimates and overdue tasks",
		Flags: rangeFlags(),
		Action: runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
			r, err := e.dateRange(cmd)
			if err != nil {
				return err
			}
			stats, err := e.app.Tasks.Review(ctx, r)
			if err != nil {
				return err
			}
			if e.json {
				return e.writeJSON(statsView{From: r.From, To: r.To, Stats: stats})
			}
			e.printer.Stats(r, stats)
			return nil
		}),
	}
}

func exportCommand(opts []internal.Option) *cli.Command {
	flags := append(rangeFlags(),
		&cli.BoolFlag{Name: "html", Usage: "Render HTML instead of Markdown"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout", TakesFile: true},
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Export a day or range as a Markdown checklist",
		Flags: flags,
		Action: runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
			r, err := e.dateRange(cmd)
			if err != nil {
				return err
			}
			res, err := e.app.Tasks.List(ctx, r, query.Options{})
			if err != nil {
				return err
			}

			doc := render.Markdown(r, res.Entries, e.app.Store.Location())
			if cmd.Bool("html") {
				if doc, err = render.HTML(doc); err != nil {
					return err
				}
			}

			out := cmd.String("out")
			if out == "" {
				_, err = fmt.Fprint(e.out, doc)
				return err
			}
			if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			e.app.Logger.Debug("export written",
				slog.String("path", out),
				slog.Int("tasks", len(res.Entries)))
			return nil
		}),
	}
}

func searchCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search across every day in the vault",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of hits", Value: 20},
		},
		Action: runWith(opts, func(_ context.Context, cmd *cli.Command, e *env) error {
			q := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if q == "" {
				return fmt.Errorf("%w: search query is empty", apperr.ErrInvalidArgument)
			}

			db, err := e.app.OpenIndex()
			if err != nil {
				return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
			}
			defer db.Close()

			results, err := db.Search(q, int(cmd.Int("limit")))
			if err != nil {
				return fmt.Errorf("%w: search: %v", apperr.ErrStoreFailure, err)
			}
			if results == nil {
				results = []index.SearchResult{}
			}
			if e.json {
				return e.writeJSON(results)
			}
			e.printer.SearchResults(results)
			return nil
		}),
	}
}
