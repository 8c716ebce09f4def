package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sadopc/reportory/internal/store"
)

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"reports"},
		Short:   "Manage activity reports",
	}
	cmd.AddCommand(newReportAddCmd(app))
	cmd.AddCommand(newReportListCmd(app))
	cmd.AddCommand(newReportEditCmd(app))
	cmd.AddCommand(newReportRmCmd(app))
	cmd.AddCommand(newReportClearCmd(app))
	return cmd
}

type reportFlags struct {
	start    string
	end      string
	content  string
	category string
	fromTodo string
}

func (f *reportFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.start, "start", "s", "", "Start time (HH:MM)")
	cmd.Flags().StringVarP(&f.end, "end", "e", "", "End time (HH:MM)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "Category id or name (\"\" clears)")
}

func newReportAddCmd(app *App) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Log an activity",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, err := app.resolveCategory(ctx, f.category)
			if err != nil {
				return err
			}
			rep := store.Report{
				ID:        app.newID(),
				StartTime: f.start,
				EndTime:   f.end,
				Content:   strings.TrimSpace(strings.Join(args, " ")),
				Category:  cat,
			}

			var todo store.Todo
			if f.fromTodo != "" {
				// Link both ways: the report points at the todo and the
				// todo at the report.
				if todo, err = app.todos.Get(ctx, f.fromTodo); err != nil {
					return err
				}
				rep.LinkedTodoID = &todo.ID
				rep.IsFromTodo = true
				if rep.Content == "" {
					rep.Content = todo.Title
				}
				if rep.Category == nil {
					rep.Category = todo.Category
				}
			}

			var out store.Outcome
			if f.fromTodo != "" {
				out, err = createLinkedReport(ctx, app.reports, app.todos, rep, todo)
			} else {
				out, err = app.reports.Create(ctx, rep)
			}
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, rep.ID)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&f.fromTodo, "from-todo", "", "Create the report from a todo and link them")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

type reportWriter interface {
	Create(ctx context.Context, r store.Report) (store.Outcome, error)
	Delete(ctx context.Context, id string) (store.Outcome, error)
}

type todoWriter interface {
	Update(ctx context.Context, t store.Todo) (store.Outcome, error)
}

// createLinkedReport stores rep and points todo back at it. When the todo
// cannot be updated the report is removed again so no half link remains.
func createLinkedReport(ctx context.Context, reports reportWriter, todos todoWriter, rep store.Report, todo store.Todo) (store.Outcome, error) {
	out, err := reports.Create(ctx, rep)
	if err != nil {
		return out, err
	}
	todo.LinkedReportID = &rep.ID
	if _, err := todos.Update(ctx, todo); err != nil {
		if _, derr := reports.Delete(ctx, rep.ID); derr != nil {
			return "", errors.Join(fmt.Errorf("link todo %s: %w", todo.ID, err), fmt.Errorf("remove report %s: %w", rep.ID, derr))
		}
		return "", fmt.Errorf("link todo %s: %w", todo.ID, err)
	}
	return out, nil
}

func newReportListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List reports by start time",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := app.reports.List(cmd.Context())
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), reports)
			}
			return renderReports(cmd, reports)
		},
	}
}

func renderReports(cmd *cobra.Command, reports []store.Report) error {
	out := cmd.OutOrStdout()
	if len(reports) == 0 {
		fmt.Fprintln(out, styleMuted.Render("No reports."))
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, header("TIME", "CATEGORY", "CONTENT", "ID"))
	for _, r := range reports {
		cat := ""
		if r.Category != nil {
			cat = dot(r.Category) + " " + r.Category.Name
		}
		content := strings.ReplaceAll(r.Content, "\n", " ")
		if r.IsFromTodo {
			content = styleGood.Render(iconDone) + " " + content
		}
		fmt.Fprintf(tw, "%s-%s\t%s\t%s\t%s\n", r.StartTime, r.EndTime, cat, content, styleMuted.Render(r.ID))
	}
	return tw.Flush()
}

func newReportEditCmd(app *App) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rep, err := app.reports.Get(ctx, args[0])
			if err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			if changed("start") {
				rep.StartTime = f.start
			}
			if changed("end") {
				rep.EndTime = f.end
			}
			if changed("content") {
				rep.Content = f.content
			}
			if changed("category") {
				if rep.Category, err = app.resolveCategory(ctx, f.category); err != nil {
					return err
				}
			}
			out, err := app.reports.Update(ctx, rep)
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, rep.ID)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&f.content, "content", "", "What was done")
	return cmd
}

func newReportRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete reports",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				out, err := app.reports.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if err := app.sayOutcome(cmd, out, id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newReportClearCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.confirmOrYes(cmd, yes).Confirm(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return app.sayMessage(cmd, "cancelled", "")
			}
			out, err := app.reports.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, "")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
