package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/returns-engine/internal/returns"
	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

// transitionCmd applies a staff decision out of band, e.g. when replaying a
// decision the API rejected during an outage. It goes through the same
// lifecycle manager as the HTTP handler.
func transitionCmd(a *app) *cobra.Command {
	var (
		adminID string
		role    string
		notes   string
	)
	cmd := &cobra.Command{
		Use:   "transition <return-request-id> <approve|reject|complete>",
		Short: "Approve, reject or complete a return request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid return request id %q: %w", args[0], err)
			}
			admin, err := uuid.Parse(adminID)
			if err != nil {
				return fmt.Errorf("invalid --admin %q: %w", adminID, err)
			}
			adminRole, err := enums.ParseUserRole(role)
			if err != nil {
				return err
			}
			var notesPtr *string
			if cmd.Flags().Changed("notes") {
				notesPtr = &notes
			}

			return a.withDB(cmd.Context(), func(cfg *config.Config, logg *logger.Logger, client *db.Client) error {
				svc, err := returns.Wire(client.DB(), cfg, logg, nil)
				if err != nil {
					return err
				}
				ctx := logg.WithReturnRequestID(cmd.Context(), requestID.String())
				detail, err := svc.Transition(ctx, returns.TransitionInput{
					RequestID: requestID,
					Action:    args[1],
					AdminID:   admin,
					AdminRole: adminRole,
					Notes:     notesPtr,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", color.New(color.FgGreen).Sprint("ok"), detail.ID, detail.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&adminID, "admin", "", "id of the staff member taking the decision")
	cmd.Flags().StringVar(&role, "role", string(enums.UserRoleAdmin), "role of the acting staff member")
	cmd.Flags().StringVar(&notes, "notes", "", "admin notes stored on the request")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}
