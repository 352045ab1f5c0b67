package cli

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/w3f/edunews/internal/devnet"
	"github.com/w3f/edunews/internal/grpcledger"
	"github.com/w3f/edunews/internal/store"
)

// DevnetServeOptions holds flags for the devnet serve command.
type DevnetServeOptions struct {
	*RootOptions
	Listen string
	Path   string
}

// NewDevnetCommand creates the devnet command group.
func NewDevnetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devnet",
		Short: "Run a local development network",
	}
	cmd.AddCommand(newDevnetServeCommand(rootOpts))
	return cmd
}

func newDevnetServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevnetServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the three devnet ledgers over gRPC",
		Long: `Serve the issuance, registry and identity ledgers from one SQLite file.

Other edunews processes reach them with --network devnet. Blocks are final
as soon as they are committed.

Example:
  edunews devnet serve --listen 127.0.0.1:9944 --path ./devnet.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevnet(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "gRPC listen address (default devnet.listen)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "SQLite database path (default devnet.path)")

	return cmd
}

func runDevnet(opts *DevnetServeOptions, cmd *cobra.Command) error {
	logger := opts.Logger
	listen := opts.Listen
	if listen == "" {
		listen = opts.Config.DevnetAddr
	}
	path := opts.Path
	if path == "" {
		path = opts.Config.DevnetPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create devnet directory", err)
	}
	logger.Info("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	network, err := devnet.NewNetwork(func(name string) (devnet.Backend, error) {
		return st.Ledger(name), nil
	}, devnet.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start ledgers", err)
	}
	defer network.Close()

	ledgers := make(map[string]grpcledger.Ledger)
	for _, n := range network.Nodes() {
		ledgers[n.Name()] = n
	}

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	srv := grpc.NewServer()
	grpcledger.RegisterLedgerServer(srv, &grpcledger.Server{Ledgers: ledgers})

	ctx, stop := signalContext(cmd)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Devnet listening on %s (%s)\n", lis.Addr(), path)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down devnet")
		srv.GracefulStop()
		return nil
	})
	if err := g.Wait(); err != nil && err != grpc.ErrServerStopped {
		return WrapExitError(ExitFailure, "devnet server error", err)
	}

	logger.Info("devnet stopped gracefully")
	return nil
}

