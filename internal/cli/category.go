package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sadopc/reportory/internal/store"
)

const defaultCategoryColor = "#14B8A6"

func newCategoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories", "cat"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(newCategoryAddCmd(app))
	cmd.AddCommand(newCategoryListCmd(app))
	cmd.AddCommand(newCategoryEditCmd(app))
	cmd.AddCommand(newCategoryRmCmd(app))
	return cmd
}

func newCategoryAddCmd(app *App) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := store.Category{
				ID:    app.newID(),
				Name:  strings.TrimSpace(strings.Join(args, " ")),
				Color: color,
			}
			out, err := app.categories.Create(cmd.Context(), c)
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, c.ID)
		},
	}
	cmd.Flags().StringVar(&color, "color", defaultCategoryColor, "Color (#RRGGBB)")
	return cmd
}

func newCategoryListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List categories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := app.categories.List(cmd.Context())
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), cats)
			}
			out := cmd.OutOrStdout()
			if len(cats) == 0 {
				fmt.Fprintln(out, styleMuted.Render("No categories."))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, header("NAME", "COLOR", "ID"))
			for _, c := range cats {
				fmt.Fprintf(tw, "%s %s\t%s\t%s\n", dot(&c), c.Name, c.Color, styleMuted.Render(c.ID))
			}
			return tw.Flush()
		},
	}
}

func newCategoryEditCmd(app *App) *cobra.Command {
	var name, color string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename or recolor a category",
		Long:  "Rename or recolor a category. Todos and reports keep the copy they were given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := app.categories.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				c.Name = strings.TrimSpace(name)
			}
			if cmd.Flags().Changed("color") {
				c.Color = color
			}
			out, err := app.categories.Update(ctx, c)
			if err != nil {
				return err
			}
			return app.sayOutcome(cmd, out, c.ID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&color, "color", "", "New color (#RRGGBB)")
	return cmd
}

func newCategoryRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete categories",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				out, err := app.categories.Delete(cmd.Context(), id)
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
