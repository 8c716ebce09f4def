package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sadopc/reportory/internal/store"
)

func newTodoCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "todo",
		Aliases: []string{"todos"},
		Short:   "Manage todos",
	}
	cmd.AddCommand(newTodoAddCmd(app))
	cmd.AddCommand(newTodoListCmd(app))
	cmd.AddCommand(newTodoShowCmd(app))
	cmd.AddCommand(newTodoEditCmd(app))
	cmd.AddCommand(newTodoDoneCmd(app))
	cmd.AddCommand(newTodoRmCmd(app))
	cmd.AddCommand(newTodoClearCmd(app))
	return cmd
}

type todoFlags struct {
	title       string
	priority    string
	category    string
	due         string
	estimate    string
	description string
}

func (f *todoFlags) bind(cmd *cobra.Command, withTitle bool) {
	if withTitle {
		cmd.Flags().StringVar(&f.title, "title", "", "Title")
	}
	cmd.Flags().StringVarP(&f.priority, "priority", "p", string(store.PriorityMedium), "Priority (high|medium|low)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "Category id or name (\"\" clears)")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.estimate, "estimate", "", "Estimated minutes")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Description")
}

func newTodoAddCmd(app *App) *cobra.Command {
	var f todoFlags
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prio, err := store.ParsePriority(f.priority)
			if err != nil {
				return err
			}
			if err := checkEstimate(f.estimate); err != nil {
				return err
			}
			cat, err := app.resolveCategory(ctx, f.category)
			if err != nil {
				return err
			}

			t := store.Todo{
				ID:        app.newID(),
				Title:     strings.TrimSpace(strings.Join(args, " ")),
				Priority:  prio,
				Category:  cat,
				CreatedAt: store.ISOTimestamp(app.now()),
				DueDate:   f.due,
			}
			if t.DueDate == "" {
				t.DueDate = app.now().Format("2006-01-02")
			}
			if f.estimate != "" {
				t.EstimatedTime = &f.estimate
			}
			if f.description != "" {
				t.Description = &f.description
			}

			out, err := app.todos.Create(ctx, t)
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, t.ID)
		},
	}
	f.bind(cmd, false)
	return cmd
}

func newTodoListCmd(app *App) *cobra.Command {
	var open bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List todos (open first, then by priority and age)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			todos, err := app.todos.List(cmd.Context())
			if err != nil {
				return err
			}
			if open {
				kept := todos[:0]
				for _, t := range todos {
					if !t.IsCompleted {
						kept = append(kept, t)
					}
				}
				todos = kept
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), todos)
			}
			return renderTodos(cmd, todos)
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "Only incomplete todos")
	return cmd
}

func renderTodos(cmd *cobra.Command, todos []store.Todo) error {
	out := cmd.OutOrStdout()
	if len(todos) == 0 {
		fmt.Fprintln(out, styleMuted.Render("No todos."))
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, header("", "PRIORITY", "TITLE", "CATEGORY", "DUE", "ID"))
	for _, t := range todos {
		mark, title := iconOpen, t.Title
		if t.IsCompleted {
			mark, title = styleGood.Render(iconDone), styleDone.Render(t.Title)
		}
		cat := ""
		if t.Category != nil {
			cat = dot(t.Category) + " " + t.Category.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", mark, renderPriority(t.Priority), title, cat, t.DueDate, styleMuted.Render(t.ID))
	}
	return tw.Flush()
}

func newTodoShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.todos.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styleTitle.Render(t.Title))
			row := func(k, v string) {
				if v != "" {
					fmt.Fprintf(out, "  %-12s %s\n", styleMuted.Render(k), v)
				}
			}
			row("id", t.ID)
			row("priority", renderPriority(t.Priority))
			if t.Category != nil {
				row("category", dot(t.Category)+" "+t.Category.Name)
			}
			row("created", t.CreatedAt)
			row("due", t.DueDate)
			row("estimate", deref(t.EstimatedTime))
			row("completed", deref(t.CompletedAt))
			row("report", deref(t.LinkedReportID))
			row("description", deref(t.Description))
			return nil
		},
	}
}

func newTodoEditCmd(app *App) *cobra.Command {
	var f todoFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := app.todos.Get(ctx, args[0])
			if err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			if changed("title") {
				t.Title = strings.TrimSpace(f.title)
			}
			if changed("priority") {
				if t.Priority, err = store.ParsePriority(f.priority); err != nil {
					return err
				}
			}
			if changed("category") {
				if t.Category, err = app.resolveCategory(ctx, f.category); err != nil {
					return err
				}
			}
			if changed("due") {
				t.DueDate = f.due
			}
			if changed("estimate") {
				if err := checkEstimate(f.estimate); err != nil {
					return err
				}
				t.EstimatedTime = optional(f.estimate)
			}
			if changed("description") {
				t.Description = optional(f.description)
			}

			out, err := app.todos.Update(ctx, t)
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, t.ID)
		},
	}
	f.bind(cmd, true)
	return cmd
}

func newTodoDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a todo between done and not done",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, out, err := app.todos.ToggleComplete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, t.ID)
		},
	}
}

func newTodoRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete todos",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				out, err := app.todos.Delete(cmd.Context(), id)
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

func newTodoClearCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every todo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.confirmOrYes(cmd, yes).Confirm(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return app.sayMessage(cmd, "cancelled", "")
			}
			out, err := app.todos.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, "")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// resolveCategory finds a category by id, then by name. An empty ref means no
// category. The result is a snapshot to embed.
func (a *App) resolveCategory(ctx context.Context, ref string) (*store.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	cats, err := a.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		if c.ID == ref {
			return &c, nil
		}
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("unknown category %q", ref)
}

func checkEstimate(s string) error {
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err != nil || n < 0 {
		return fmt.Errorf("estimate %q: want whole minutes", s)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
