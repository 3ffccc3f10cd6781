package main

import (
	"fmt"
	"text/tabwriter"

	"prompt-runner/internal/service"

	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the template catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := service.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		templates, err := catalog.Templates(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCATEGORY\tTITLE")
		for _, t := range templates {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Category.DisplayName(), t.Title)
		}
		return tw.Flush()
	},
}
