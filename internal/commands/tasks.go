package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/tusk/internal"
	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/editor"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/taskservice"
)

// dayTasks is the JSON shape of commands that touch tasks on one day.
type dayTasks struct {
	Date  dates.Date    `json:"date"`
	Tasks []models.Task `json:"tasks"`
}

func priorityFlagDef() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "priority",
		Aliases: []string{"p"},
		Usage:   "Priority: high, med, low or none",
	}
}

func addCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Aliases:   []string{"a"},
		Usage:     "Add a task to the day",
		ArgsUsage: "<text...>",
		Description: "Text may carry inline metadata: #tag, @30m or @1h30m estimates,\n" +
			">HH:MM or >YYYY-MM-DDTHH:MM due times, and !high, !med or !low.",
		Flags: []cli.Flag{
			priorityFlagDef(),
			&cli.StringFlag{
				Name:  "notes",
				Usage: "Free-form notes, stored verbatim",
			},
		},
		Action: runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
			text := strings.Join(cmd.Args().Slice(), " ")
			d, err := e.day(cmd)
			if err != nil {
				return err
			}
			prio, err := priorityFlag(cmd, "priority")
			if err != nil {
				return err
			}

			res, err := e.app.Tasks.Add(ctx, d, text, taskservice.AddOptions{
				Priority: prio,
				Notes:    cmd.String("notes"),
			})
			if err != nil {
				return err
			}
			e.warn(res.Warnings)

			if e.json {
				return e.writeJSON(res)
			}
			fmt.Fprintln(e.out, e.printer.TaskLine(res.Date, res.Task))
			return nil
		}),
	}
}

func idSliceFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:  "id",
		Usage: "Select a task by id (repeatable)",
	}
}

func completionCommand(name, usage string, c taskservice.Completion, opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "[N...]",
		Flags:     []cli.Flag{idSliceFlag()},
		Action: runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
			d, err := e.day(cmd)
			if err != nil {
				return err
			}
			sels, err := selectors(cmd)
			if err != nil {
				return err
			}
			tasks, err := e.app.Tasks.SetDone(ctx, d, sels, c)
			if err != nil {
				return err
			}
			if e.json {
				return e.writeJSON(dayTasks{Date: d, Tasks: tasks})
			}
			for _, t := range tasks {
				fmt.Fprintln(e.out, e.printer.TaskLine(d, t))
			}
			return nil
		}),
	}
}

func rmCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove tasks; nothing is removed if any selector fails",
		ArgsUsage: "[N...]",
		Flags:     []cli.Flag{idSliceFlag()},
		Action: runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
			d, err := e.day(cmd)
			if err != nil {
				return err
			}
			sels, err := selectors(cmd)
			if err != nil {
				return err
			}
			removed, err := e.app.Tasks.Remove(ctx, d, sels)
			if err != nil {
				return err
			}
			if e.json {
				return e.writeJSON(dayTasks{Date: d, Tasks: removed})
			}
			fmt.Fprintf(e.out, "removed %d task(s) from %s\n", len(removed), d)
			for _, t := range removed {
				fmt.Fprintln(e.out, "  "+t.Text)
			}
			return nil
		}),
	}
}

func editCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change a task's text, notes or priority",
		ArgsUsage: "<N>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Select the task by id"},
			&cli.StringFlag{Name: "text", Usage: "New text; inline metadata replaces the stored values it names"},
			&cli.StringFlag{Name: "notes", Usage: "Replace the notes"},
			priorityFlagDef(),
			&cli.BoolFlag{Name: "notes-editor", Aliases: []string{"e"}, Usage: "Edit the notes in $VISUAL/$EDITOR"},
		},
		Action: runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
			d, err := e.day(cmd)
			if err != nil {
				return err
			}
			sel, err := singleSelector(cmd)
			if err != nil {
				return err
			}

			var eo taskservice.EditOptions
			if cmd.IsSet("text") {
				v := cmd.String("text")
				eo.Text = &v
			}
			if cmd.IsSet("notes") {
				v := cmd.String("notes")
				eo.Notes = &v
			}
			if eo.Priority, err = priorityFlag(cmd, "priority"); err != nil {
				return err
			}

			if cmd.Bool("notes-editor") {
				if eo.Notes != nil {
					return fmt.Errorf("%w: --notes and --notes-editor are mutually exclusive", apperr.ErrConflict)
				}
				notes, err := editNotes(ctx, e, d, sel)
				if err != nil {
					return err
				}
				eo.Notes = &notes
			}

			res, err := e.app.Tasks.Edit(ctx, d, sel, eo)
			if err != nil {
				return err
			}
			e.warn(res.Warnings)
			if e.json {
				return e.writeJSON(dayTasks{Date: d, Tasks: []models.Task{res.Task}})
			}
			fmt.Fprintln(e.out, e.printer.TaskLine(d, res.Task))
			return nil
		}),
	}
}

// editNotes opens the editor on the task's current notes. The day is
// loaded again by Edit, so an edit made meanwhile by another process wins.
func editNotes(ctx context.Context, e *env, d dates.Date, sel models.Selector) (string, error) {
	day, err := e.app.Tasks.Day(ctx, d)
	if err != nil {
		return "", err
	}
	pos, err := daystore.Resolve(day, sel)
	if err != nil {
		return "", err
	}
	return editor.Edit(ctx, day.Tasks[pos].Notes)
}

func mvCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:      "mv",
		Usage:     "Reorder a task within its day",
		ArgsUsage: "<N>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Select the task by id"},
			&cli.IntFlag{Name: "index", Aliases: []string{"i"}, Usage: "Move to this position (clamped to 1..N)"},
			&cli.BoolFlag{Name: "up", Usage: "Move one position up"},
			&cli.BoolFlag{Name: "down", Usage: "Move one position down"},
			&cli.StringFlag{Name: "before", Usage: "Move in front of this index or id"},
			&cli.StringFlag{Name: "after", Usage: "Move behind this index or id"},
		},
		Action: runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
			d, err := e.day(cmd)
			if err != nil {
				return err
			}
			sel, err := singleSelector(cmd)
			if err != nil {
				return err
			}

			target := taskservice.MoveTarget{
				Up:   cmd.Bool("up"),
				Down: cmd.Bool("down"),
			}
			if cmd.IsSet("index") {
				n := int(cmd.Int("index"))
				target.Index = &n
			}
			if target.Before, err = parseSelector(cmd.String("before")); err != nil {
				return err
			}
			if target.After, err = parseSelector(cmd.String("after")); err != nil {
				return err
			}

			t, err := e.app.Tasks.Move(ctx, d, sel, target)
			if err != nil {
				return err
			}
			if e.json {
				return e.writeJSON(dayTasks{Date: d, Tasks: []models.Task{t}})
			}
			fmt.Fprintln(e.out, e.printer.TaskLine(d, t))
			return nil
		}),
	}
}

func migrateCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Carry open tasks from one day to another",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Source day", Value: "yesterday"},
			&cli.StringFlag{Name: "to", Usage: "Destination day", Value: "today"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Show what would move without writing"},
		},
		Action: runWith(opts, func(ctx context.Context, cmd *cli.Command, e *env) error {
			from, err := e.app.Store.ResolveDate(cmd.String("from"))
			if err != nil {
				return err
			}
			to, err := e.app.Store.ResolveDate(cmd.String("to"))
			if err != nil {
				return err
			}

			res, err := e.app.Tasks.Migrate(ctx, from, to, cmd.Bool("dry-run"))
			if err != nil {
				return err
			}
			if e.json {
				return e.writeJSON(res)
			}

			switch {
			case from == to:
				fmt.Fprintf(e.out, "source and destination are both %s, nothing to do\n", from)
			case len(res.Selected) == 0:
				fmt.Fprintf(e.out, "no open tasks on %s\n", from)
			case res.DryRun:
				fmt.Fprintf(e.out, "would migrate %d task(s) from %s to %s\n", len(res.Selected), from, to)
				for _, t := range res.Selected {
					fmt.Fprintln(e.out, e.printer.TaskLine(from, t))
				}
			default:
				fmt.Fprintf(e.out, "migrated %d task(s) from %s to %s\n", len(res.Created), from, to)
				for _, t := range res.Created {
					fmt.Fprintln(e.out, e.printer.TaskLine(to, t))
				}
			}
			return nil
		}),
	}
}
