package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/edc/internal/config"
	"github.com/ehr/edc/internal/platform/lookup"
)

func formsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List the forms the server validates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tables, err := recordTables(cfg)
			if err != nil {
				return err
			}
			m, err := models(cfg)
			if err != nil {
				return err
			}
			st := newStack(lookup.NewMemoryStore(), tables, m, zerolog.Nop())

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FORM\tGROUP\tINLINE")
			for _, f := range st.catalog.Forms() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Form, f.Group, strings.Join(f.Inline, ","))
			}
			return tw.Flush()
		},
	}
}
