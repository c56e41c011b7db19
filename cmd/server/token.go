package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/villagebank/internal/auth"
)

// newTokenCmd mints bearer tokens for local development and scripts.
func newTokenCmd(envFile *string) *cobra.Command {
	var userID, name string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL).Generate(userID, name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the token")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
