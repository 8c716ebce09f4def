package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/reportory/internal/settings"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change display settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.settings.Load()
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-14s %s\n", styleMuted.Render("theme"), s.Theme)
			fmt.Fprintf(out, "%-14s %s\n", styleMuted.Render("primaryColor"), s.PrimaryColor)
			return nil
		},
	})
	cmd.AddCommand(newSettingsSetCmd(app))
	return cmd
}

func newSettingsSetCmd(app *App) *cobra.Command {
	var theme, color string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change theme or primary color",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.settings.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("theme") {
				s.Theme = settings.Theme(theme)
			}
			if cmd.Flags().Changed("primary-color") {
				s.PrimaryColor = color
			}
			if err := app.settings.Save(s); err != nil {
				return err
			}
			return app.sayMessage(cmd, "settingsSaved", "")
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "light|dark|auto")
	cmd.Flags().StringVar(&color, "primary-color", "", "Accent color (#RRGGBB)")
	cmd.MarkFlagsOneRequired("theme", "primary-color")
	return cmd
}
