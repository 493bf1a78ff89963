package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-auth-bearer"
)

func mintCmd(env envLoader) *cobra.Command {
	var (
		userID int64
		email  string
		name   string
		admin  bool
		roles  []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Issue a signed bearer token",
		Long: `Issue a signed bearer token with the configured signing key, issuer and audience.

When --email is given the identity is loaded from the local store, otherwise
it is built from --user-id, --name and --admin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}

			codec, err := auth.NewTokenCodec([]byte(cfg.Auth.SigningKey), cfg.Auth.Issuer, cfg.Auth.Audience)
			if err != nil {
				return err
			}
			codec.WithLogger(auth.NewLogrusLogger(logger))

			identity := auth.Identity{UserID: userID, Name: name, IsAdmin: admin}
			if email != "" {
				db, identities, err := openIdentities(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer db.Close()

				record, err := identities.FindByEmail(cmd.Context(), email)
				if err != nil {
					return err
				}
				identity = auth.Identity{
					UserID:  record.ID,
					Name:    record.Name,
					Email:   record.Email,
					Hash:    record.Hash,
					IsAdmin: record.IsAdmin,
					Roles:   record.Roles,
				}
			}

			if ttl == 0 {
				ttl = cfg.Auth.TokenTTL
			}

			token, expiresAt, err := auth.MintToken(codec, identity, auth.MintOptions{
				TTL:   ttl,
				Roles: roles,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			logger.WithField("user_id", identity.UserID).
				WithField("expires_at", expiresAt.Format(time.RFC3339)).
				Info("token issued")
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "User id carried in the token")
	cmd.Flags().StringVar(&email, "email", "", "Load the identity registered under this email")
	cmd.Flags().StringVar(&name, "name", "", "Name claim")
	cmd.Flags().BoolVar(&admin, "admin", false, "Set the is_admin claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claim, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to AUTH_TOKEN_TTL")

	return cmd
}
