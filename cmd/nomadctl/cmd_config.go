package main

import (
	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const masked = "********"

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(maskSecrets(*cfg))
		},
	}
}

func maskSecrets(cfg config.Config) config.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = masked
		}
	}
	mask(&cfg.Database.Password)
	mask(&cfg.Redis.Password)
	mask(&cfg.Auth.SupabaseAnonKey)
	mask(&cfg.Auth.SupabaseJWTSecret)
	mask(&cfg.Storage.SecretAccessKey)
	mask(&cfg.Notification.APIKey)
	mask(&cfg.Email.ResendAPIKey)
	mask(&cfg.ExternalServices.PexelsAPIKey)
	return cfg
}
