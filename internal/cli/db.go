package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/reportory/internal/config"
	"github.com/sadopc/reportory/internal/store"
	"github.com/sadopc/reportory/internal/tui"
)

type storeInfo struct {
	Name    string   `json:"name"`
	Records int      `json:"records"`
	Indexes []string `json:"indexes"`
}

type dbInfo struct {
	Path    string      `json:"path"`
	Version int         `json:"version"`
	Target  int         `json:"target"`
	Stores  []storeInfo `json:"stores"`
}

func newDBCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect or delete the database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Open (and upgrade) the database and describe it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := app.gw.Open(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			info := dbInfo{Path: app.gw.Path(), Target: store.SchemaVersion}
			if info.Version, err = conn.Version(ctx); err != nil {
				return err
			}
			names, err := conn.Stores(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				si := storeInfo{Name: name}
				if si.Records, err = conn.Count(ctx, name); err != nil {
					return err
				}
				if si.Indexes, err = conn.Indexes(ctx, name); err != nil {
					return err
				}
				info.Stores = append(info.Stores, si)
			}

			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styleTitle.Render(info.Path))
			fmt.Fprintf(out, "  %s %d/%d\n", styleMuted.Render("schema"), info.Version, info.Target)
			for _, s := range info.Stores {
				fmt.Fprintf(out, "  %-12s %5d  %s\n", s.Name, s.Records, styleMuted.Render(strings.Join(s.Indexes, ", ")))
			}
			return nil
		},
	})
	cmd.AddCommand(newDBDestroyCmd(app))
	return cmd
}

func newDBDestroyCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the database file (settings are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.confirmOrYes(cmd, yes).Confirm(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return app.sayMessage(cmd, "cancelled", "")
			}
			status, err := app.gw.Destroy(cmd.Context())
			if err != nil {
				return err
			}
			if status == store.DestroyBlocked {
				return app.sayMessage(cmd, "databaseDestroyBlocked", string(status))
			}
			return app.sayMessage(cmd, "databaseDestroyed", app.gw.Path())
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.WriteDefault(app.ConfigDir)
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"path": path, "created": created})
			}
			if !created {
				fmt.Fprintln(cmd.OutOrStdout(), styleMuted.Render("exists: "+path))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), styleGood.Render(iconDone+" "+path))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), app.cfg)
		},
	})
	return cmd
}

func newBrowseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, app)
		},
	}
}

func runBrowse(cmd *cobra.Command, app *App) error {
	return tui.Run(&tui.Deps{
		Todos:      app.todos,
		Reports:    app.reports,
		Categories: app.categories,
		Settings:   app.settings,
		Backup:     app.backup,
		Catalog:    app.catalog,
		Lang:       app.lang(),
		ExportDir:  app.cfg.DataDir,
		NewID:      app.newID,
		Now:        app.now,
	})
}
