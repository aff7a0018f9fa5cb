package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/returns-engine/pkg/auth"
	"github.com/angelmondragon/returns-engine/pkg/enums"
)

func tokenCmd(a *app) *cobra.Command {
	var (
		userID string
		role   string
		email  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := a.config()
			if err != nil {
				return err
			}
			id := uuid.New()
			if userID != "" {
				id, err = uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user %q: %w", userID, err)
				}
			}
			parsedRole, err := enums.ParseUserRole(role)
			if err != nil {
				return err
			}
			token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
				UserID: id,
				Role:   parsedRole,
				Email:  email,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(enums.UserRoleUser), "USER, STAFF or ADMIN")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	return cmd
}
