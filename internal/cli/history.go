package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OldStager01/genomerx/internal/app"
	"github.com/OldStager01/genomerx/pkg/database/queries"
	"github.com/OldStager01/genomerx/pkg/validation"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent prediction reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			db, err := app.OpenDatabase(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			limit = validation.ClampLimit(limit, cfg.API.DefaultLimit, cfg.API.MaxLimit)
			reports, err := queries.NewPredictionRepository(db.DB).GetRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), reports)
			}
			w := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(w, "%s  %s  %-24s  %-22s  mdr=%t\n",
					r.ID, r.Date.Format("2006-01-02 15:04"), r.FileName, r.Pathogen, r.MDR)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Max reports (default: api.default_limit)")
	return cmd
}
