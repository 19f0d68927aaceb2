package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				s := a.manager.Session()
				printf(cmd, "Status:    %s\n", s.Status)
				if s.Identity != nil {
					printf(cmd, "User:      %s\n", displayName(s.Identity.DisplayName, s.Identity.Email))
				}
				if s.ExpiresAt != nil {
					printf(cmd, "Expires:   %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
				}
				if s.LastError != nil {
					printf(cmd, "Last error: %s\n", *s.LastError)
				}
				printf(cmd, "Backend:   %s\n", a.cfg.GetBaseURL())
				return nil
			})
		},
	}
}
