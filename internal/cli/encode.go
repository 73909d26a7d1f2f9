package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OldStager01/genomerx/internal/kmer"
	"github.com/OldStager01/genomerx/internal/sequence"
)

type kmerCount struct {
	Kmer  string `json:"kmer"`
	Count int    `json:"count"`
}

type encodeOutput struct {
	File    string          `json:"file"`
	Format  sequence.Format `json:"format"`
	Length  int             `json:"length"`
	K       int             `json:"k"`
	Windows int             `json:"windows"`
	NonZero []kmerCount     `json:"nonZero"`
}

func newEncodeCmd(opts *options) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "encode <file>",
		Short: "Print the non-zero k-mer counts of a genome file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if k == 0 {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				k = cfg.Models.KmerSize
			}

			enc, err := kmer.NewEncoder(k)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			parsed := sequence.Parse(filepath.Base(args[0]), data)
			vec := enc.Encode(parsed.Sequence)
			vocab := enc.Vocabulary()

			out := encodeOutput{
				File:    filepath.Base(args[0]),
				Format:  parsed.Format,
				Length:  len(parsed.Sequence),
				K:       k,
				Windows: vec.Total(),
				NonZero: []kmerCount{},
			}
			for i, c := range vec {
				if c > 0 {
					out.NonZero = append(out.NonZero, kmerCount{Kmer: vocab[i], Count: c})
				}
			}

			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for _, kc := range out.NonZero {
				fmt.Fprintf(w, "%s\t%d\n", kc.Kmer, kc.Count)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "k-mer length (default: models.kmer_size)")
	return cmd
}
