package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OldStager01/genomerx/internal/app"
	"github.com/OldStager01/genomerx/pkg/database/queries"
	"github.com/OldStager01/genomerx/pkg/models"
)

func newPredictCmd(opts *options) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "predict <file>",
		Short: "Run the pipeline on a local genome file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
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

			// The filename seeds the simulated fields, so use the base name
			// the server would see for the same upload.
			report, err := pipeline.Aggregator.Run(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}

			if save {
				db, err := app.OpenDatabase(cmd.Context(), cfg, false)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := queries.NewPredictionRepository(db.DB).Insert(cmd.Context(), report); err != nil {
					return fmt.Errorf("save report: %w", err)
				}
			}

			if opts.format == formatText {
				return printReport(cmd.OutOrStdout(), report)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the report in the history database")
	return cmd
}

func printReport(w io.Writer, r *models.PredictionReport) error {
	fmt.Fprintf(w, "file:      %s\n", r.FileName)
	if r.ID != "" {
		fmt.Fprintf(w, "id:        %s\n", r.ID)
	}
	fmt.Fprintf(w, "pid:       %d\n", r.PID)
	fmt.Fprintf(w, "pathogen:  %s\n", r.Pathogen)
	fmt.Fprintf(w, "sequence:  %d bases (%s)\n", r.SequenceLength, r.Format)
	fmt.Fprintf(w, "mdr:       %t\n", r.MDR)
	fmt.Fprintf(w, "genes:     %s\n", strings.Join(r.Genes, ", "))
	fmt.Fprintln(w)
	for _, a := range r.Antibiotics {
		fmt.Fprintf(w, "  %-28s S=%3d%%  R=%3d%%  %s\n", a.Name, a.Susceptible, a.Resistant, a.Source)
	}
	fmt.Fprintln(w)
	for i, rec := range r.Recommendations {
		fmt.Fprintf(w, "  #%d %s (%d%%)\n", i+1, rec.Name, rec.Confidence)
	}
	return nil
}
