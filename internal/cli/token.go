package cli

import (
	"fmt"
	"time"

	"livequiz-service/internal/auth"
	"livequiz-service/internal/config"

	"github.com/spf13/cobra"
)

// NewTokenCmd issues a host token for local use. Production deployments
// front the service with a real identity provider.
func NewTokenCmd(configPath *string) *cobra.Command {
	var hostID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a host token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hostID == "" {
				return fmt.Errorf("--host is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			hostAuth := auth.NewHostAuth(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour))
			token, err := hostAuth.IssueToken(hostID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&hostID, "host", "", "host identity to issue the token for")
	return cmd
}
