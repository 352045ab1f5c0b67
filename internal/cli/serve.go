package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/w3f/edunews/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// shutdownTimeout bounds how long in-flight requests may take after a signal.
const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API over HTTP",
		Long: `Serve verify, show, list, audit and identity queries over HTTP.

Routes:
  GET /health
  GET /articles/{collection}/{item}
  GET /articles/{collection}/{item}/verification
  GET /articles/{collection}/{item}/audit
  GET /publishers/{address}/articles
  GET /identities/{address}

Example:
  edunews serve --network devnet --listen 127.0.0.1:8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address (default http.listen)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	listen := opts.Listen
	if listen == "" {
		listen = opts.Config.HTTPListen
	}

	return opts.withSession(cmd, f, func(ctx context.Context, s *session) error {
		lis, err := net.Listen("tcp", listen)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}
		srv := &http.Server{
			Handler:           httpapi.NewRouter(s.agg, opts.Logger),
			ReadHeaderTimeout: 5 * time.Second,
		}

		opts.Logger.Info("http api starting", "addr", lis.Addr().String(), "network", opts.Config.Network)
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s network on http://%s\n", opts.Config.Network, lis.Addr())

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
		if err := g.Wait(); err != nil {
			return WrapExitError(ExitFailure, "http server error", err)
		}
		opts.Logger.Info("http api stopped gracefully")
		return nil
	})
}
