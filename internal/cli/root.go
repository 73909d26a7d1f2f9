// Package cli implements the genomerx-cli commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/pkg/config"
)

const (
	formatJSON = "json"
	formatText = "text"
)

type options struct {
	configPath string
	format     string
}

// NewRootCmd builds the command tree. Each call returns independent flag
// state.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "genomerx-cli",
		Short:         "Offline access to the AMR prediction pipeline",
		Long:          "Run predictions, inspect model artifacts and read the prediction history without the HTTP server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatJSON && opts.format != formatText {
				return fmt.Errorf("unknown format %q (json or text)", opts.format)
			}
			logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./config.yaml, $GENOMERX_* env)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", formatJSON, "Output format: json or text")

	root.AddCommand(
		newPredictCmd(opts),
		newModelsCmd(opts),
		newEncodeCmd(opts),
		newHistoryCmd(opts),
		newUserCmd(opts),
	)
	return root
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
