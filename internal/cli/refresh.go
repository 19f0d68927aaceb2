package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.manager.Refresh(ctx); err != nil {
					return errors.New(describe(err))
				}
				s := a.manager.Session()
				if s.ExpiresAt != nil {
					printf(cmd, "Session refreshed, expires %s\n", s.ExpiresAt.Local().Format("15:04:05"))
					return nil
				}
				printf(cmd, "Session refreshed\n")
				return nil
			})
		},
	}
}
