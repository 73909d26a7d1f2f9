package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OldStager01/genomerx/api/handlers"
	"github.com/OldStager01/genomerx/internal/app"
)

func newModelsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List catalog antibiotics and their model artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			store, err := app.OpenStore(cfg, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			pipeline, err := app.NewPipeline(cfg, store, nil, nil)
			if err != nil {
				return err
			}

			catalog := handlers.BuildCatalog(cmd.Context(), cfg.ToPredictorConfig(), pipeline.Registry)
			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), catalog.Antibiotics)
			}

			w := cmd.OutOrStdout()
			for _, a := range catalog.Antibiotics {
				status := "fallback"
				if a.HasModel {
					status = "model"
				}
				fmt.Fprintf(w, "%-28s %-28s %s\n", a.Name, a.Key, status)
			}
			return nil
		},
	}
}
