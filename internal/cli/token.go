package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reggie/internal/auth"
)

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <userId>",
		Short: "Mint a bearer token for a user's scenario routes",
		Long: `Mint an HS256 bearer token whose user_id claim grants access to
/users/<userId>/scenarios. Requires auth.jwt_secret (or REGGIE_JWT_SECRET).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			token, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, ttl).GenerateToken(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	return cmd
}
