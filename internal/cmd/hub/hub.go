package main

import (
	"github.com/henrygd/beszel"
	"github.com/henrygd/beszel/internal/hub"

	_ "github.com/henrygd/beszel/internal/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/spf13/cobra"
)

func main() {
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: beszel.AppName + "_data",
	})
	app.RootCmd.Version = beszel.Version
	app.RootCmd.Use = beszel.AppName
	app.RootCmd.Short = ""

	h := hub.NewHub(app)

	// add command to build longer records on demand
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "rollup",
		Short: "Create longer stats records and delete expired ones",
		Run: func(cmd *cobra.Command, args []string) {
			h.RollupRecords()
		},
	})

	if err := h.StartHub(); err != nil {
		app.Logger().Error("Failed to start hub", "err", err)
	}
}
