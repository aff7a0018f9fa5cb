package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
)

func dlqCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay outbox events that were dead-lettered",
	}
	cmd.AddCommand(dlqListCmd(a), dlqReplayCmd(a))
	return cmd
}

func dlqListCmd(a *app) *cobra.Command {
	var (
		limit     int
		reason    string
		eventType string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the most recent dead-lettered events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := outbox.DLQFilter{Limit: limit, Reason: enums.OutboxDLQErrorReason(reason)}
			if reason != "" && !filter.Reason.IsValid() {
				return fmt.Errorf("unknown reason %q", reason)
			}
			if eventType != "" {
				parsed, err := enums.ParseOutboxEventType(eventType)
				if err != nil {
					return err
				}
				filter.EventType = parsed
			}
			return a.withDB(cmd.Context(), func(_ *config.Config, _ *logger.Logger, client *db.Client) error {
				rows, err := outbox.NewDLQRepository(client.DB()).List(cmd.Context(), filter)
				if err != nil {
					return fmt.Errorf("list dlq: %w", err)
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("dlq is empty"))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "FAILED AT\tEVENT ID\tTYPE\tAGGREGATE\tREASON\tATTEMPTS\tERROR")
				for _, row := range rows {
					msg := ""
					if row.ErrorMessage != nil {
						msg = *row.ErrorMessage
					}
					reasonColor := color.FgRed
					if row.ErrorReason.Replayable() {
						reasonColor = color.FgYellow
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\t%d\t%s\n",
						row.FailedAt.UTC().Format(time.RFC3339), row.EventID, row.EventType,
						row.AggregateType, row.AggregateID,
						color.New(reasonColor).Sprint(row.ErrorReason), row.AttemptCount, msg)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "maximum rows to print")
	list.Flags().StringVar(&reason, "reason", "", "only show max_attempts, non_retryable or undecodable entries")
	list.Flags().StringVar(&eventType, "event-type", "", "only show one event type")
	return list
}

func dlqReplayCmd(a *app) *cobra.Command {
	var force bool
	replay := &cobra.Command{
		Use:   "replay <event-id>...",
		Short: "Return dead-lettered events to the outbox with a fresh attempt budget",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, raw := range args {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid event id %q: %w", raw, err)
				}
				ids = append(ids, id)
			}
			return a.withDB(cmd.Context(), func(_ *config.Config, logg *logger.Logger, client *db.Client) error {
				repo := outbox.NewDLQRepository(client.DB())
				for _, id := range ids {
					entry, err := repo.Replay(cmd.Context(), id, force)
					if err != nil {
						return fmt.Errorf("replay %s: %w", id, err)
					}
					logg.Audit(cmd.Context(), "outbox.dlq.replay", map[string]any{
						"event_id":     entry.EventID,
						"event_type":   entry.EventType,
						"error_reason": entry.ErrorReason,
						"forced":       force,
					})
					fmt.Fprintf(cmd.OutOrStdout(), "%s requeued %s\n", color.New(color.FgGreen).Sprint("ok"), entry.EventID)
				}
				return nil
			})
		},
	}
	replay.Flags().BoolVar(&force, "force", false, "replay entries whose reason is not normally retryable")
	return replay
}
