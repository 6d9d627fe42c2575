package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  `Loads the config file the same way serve does, applies defaults and flags, and prints the result as YAML. Credentials are masked.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			masked := *cfg
			masked.Cache.RedisPassword = mask(masked.Cache.RedisPassword)
			masked.Auth.JWTSecret = mask(masked.Auth.JWTSecret)
			masked.Auth.APIKeys = make([]string, len(cfg.Auth.APIKeys))
			for i, k := range cfg.Auth.APIKeys {
				masked.Auth.APIKeys[i] = mask(k)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(masked); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
