package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-dash-session/gateway"
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Call the dashboard API with the current session",
		Example: `  dashsession get /me
  dashsession get /recommendations`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				spec, err := gateway.NewJSONRequest(http.MethodGet, args[0], nil)
				if err != nil {
					return err
				}
				resp, err := a.gateway.Call(ctx, spec)
				if err != nil {
					a.logger.Debug().Err(err).Msg("request failed")
					return errors.New(describe(err))
				}

				out := resp.Body
				if !raw {
					var buf bytes.Buffer
					if json.Indent(&buf, resp.Body, "", "  ") == nil {
						out = buf.Bytes()
					}
				}
				_, err = cmd.OutOrStdout().Write(append(out, '\n'))
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the response body unformatted")
	return cmd
}
