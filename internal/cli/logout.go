package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.manager.Logout(ctx); err != nil {
					return err
				}
				printf(cmd, "Signed out\n")
				return nil
			})
		},
	}
}
