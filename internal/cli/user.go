package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OldStager01/genomerx/internal/app"
	"github.com/OldStager01/genomerx/internal/auth"
	"github.com/OldStager01/genomerx/pkg/database/queries"
	"github.com/OldStager01/genomerx/pkg/validation"
)

func newUserCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}
	cmd.AddCommand(newUserAddCmd(opts))
	return cmd
}

func newUserAddCmd(opts *options) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an operator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := validation.SanitizeString(args[0])
			if err := validation.ValidateUsername(username); err != nil {
				return err
			}
			if err := validation.ValidatePassword(password); err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			db, err := app.OpenDatabase(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			user, err := queries.NewUserRepository(db.DB).Create(cmd.Context(), username, hash)
			if errors.Is(err, queries.ErrUserExists) {
				return fmt.Errorf("user %q already exists", username)
			}
			if err != nil {
				return err
			}

			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (8+ chars, mixed case, digit, symbol)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
