package main

import (
	"fmt"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-auth-bearer"
	"github.com/goliatone/go-auth-bearer/repository"
)

func seedCmd(env envLoader) *cobra.Command {
	var (
		email    string
		name     string
		password string
		admin    bool
		inactive bool
		roles    []string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or update an identity in the local store",
		Long: `Create or update an identity in the local store.

Without --email the development bypass account (AUTH_BYPASS_EMAIL) is seeded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}

			if email == "" {
				email = cfg.Auth.BypassEmail
			}

			db, identities, err := openIdentities(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			model := &repository.IdentityModel{
				Name:    name,
				Email:   email,
				IsAdmin: admin,
				Active:  !inactive,
				Roles:   roles,
			}

			if password != "" {
				hash, err := auth.BcryptHasher{}.HashPassword(password)
				if err != nil {
					return err
				}
				model.PasswordHash = hash
			}

			saved, err := identities.Upsert(cmd.Context(), model)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", saved.ID)
			logger.WithField("id", saved.ID).WithField("email", saved.Email).Info("identity seeded")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Identity email, defaults to AUTH_BYPASS_EMAIL")
	cmd.Flags().StringVar(&name, "name", "Default User", "Identity name")
	cmd.Flags().StringVar(&password, "password", "", "Optional password, stored as a bcrypt hash")
	cmd.Flags().BoolVar(&admin, "admin", true, "Grant admin")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Store the identity as inactive")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role, repeatable")

	return cmd
}
