package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/w3f/edunews/internal/engine"
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/runtime/people"
)

// IdentitySetOptions holds flags for the identity set command.
type IdentitySetOptions struct {
	*RootOptions
	Mnemonic string
	Scheme   string
	Info     people.IdentityInfo
}

// NewIdentityCommand creates the identity command and its set subcommand.
func NewIdentityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity <address>",
		Short: "Show the identity record of an address",
		Long: `Show the identity record of an address on the identity ledger.

An address counts as verified when any identity record exists for it.
With --format json an address that cannot be parsed prints a null result.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			addr := ir.Address(args[0])
			return rootOpts.withSession(cmd, f, func(ctx context.Context, s *session) error {
				att, err := s.agg.Identity(ctx, addr)
				if err != nil {
					if engine.IsMalformedInput(err) && f.Format == "json" {
						return f.Success(nil)
					}
					return f.Fail("identity", err)
				}
				return f.Result(att, func(t Theme) string { return renderIdentity(t, att) })
			})
		},
	}
	cmd.AddCommand(newIdentitySetCommand(rootOpts))
	return cmd
}

func newIdentitySetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IdentitySetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Publish the identity record of the signing key",
		Example: `  EDUNEWS_MNEMONIC="//Alice" edunews identity set --display Alice --legal "Alice Liddell"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			signer, err := opts.signer(opts.Mnemonic, opts.Scheme)
			if err != nil {
				return f.Fail("invalid publisher key", err)
			}
			return opts.withSession(cmd, f, func(ctx context.Context, s *session) error {
				receipt, err := s.resolver.Set(ctx, signer, opts.Info)
				if err != nil {
					return f.Fail("set identity", err)
				}
				data := map[string]any{
					"address":      signer.Address(),
					"block_number": receipt.BlockNumber,
					"tx_hash":      receipt.TxHash,
				}
				return f.Result(data, func(t Theme) string {
					return renderIdentitySet(t, signer.Address(), receipt.BlockNumber)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Mnemonic, "mnemonic", "", "secret URI of the identity owner (default $EDUNEWS_MNEMONIC)")
	cmd.Flags().StringVar(&opts.Scheme, "scheme", string(ir.SchemeEd25519), "signature scheme (ed25519|ecdsa)")
	cmd.Flags().StringVar(&opts.Info.Display, "display", "", "display name")
	cmd.Flags().StringVar(&opts.Info.Legal, "legal", "", "legal name")
	cmd.Flags().StringVar(&opts.Info.Web, "web", "", "web site")
	cmd.Flags().StringVar(&opts.Info.Email, "email", "", "email address")

	return cmd
}
