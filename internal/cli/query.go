package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/w3f/edunews/internal/engine"
	"github.com/w3f/edunews/internal/ir"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <collection> <item>",
		Short: "Check an article across all three ledgers",
		Long: `Check that an article is recorded for the NFT, that the NFT exists and
whether the publisher has an identity record.

A ledger that cannot be reached makes its check report false; verify
itself still succeeds. The binding signature is not checked; use audit.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			unit, err := parseUnit(args)
			if err != nil {
				return f.Fail("invalid arguments", err)
			}
			return rootOpts.withSession(cmd, f, func(ctx context.Context, s *session) error {
				result, err := s.agg.Verify(ctx, unit)
				if err != nil {
					return f.Fail("verify", err)
				}
				return f.Result(result, func(t Theme) string { return renderVerification(t, result) })
			})
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <collection> <item>",
		Short: "Show the article recorded for an NFT",
		Long: `Show the article recorded for an NFT with fresh NFT and identity checks.

With --format json an unregistered NFT prints a null result.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			unit, err := parseUnit(args)
			if err != nil {
				return f.Fail("invalid arguments", err)
			}
			return rootOpts.withSession(cmd, f, func(ctx context.Context, s *session) error {
				article, err := s.agg.Show(ctx, unit)
				if err != nil {
					if engine.IsNotFound(err) && f.Format == "json" {
						return f.Success(nil)
					}
					return f.Fail("show", err)
				}
				return f.Result(article, func(t Theme) string { return renderArticle(t, article) })
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <address>",
		Short: "List the articles of a publisher",
		Args:  cobra.ExactArgs(1),
		Example: `  edunews list 5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty
  edunews list --format json 5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			addr := ir.Address(args[0])
			return rootOpts.withSession(cmd, f, func(ctx context.Context, s *session) error {
				articles, err := s.agg.ListForPublisher(ctx, addr)
				if err != nil {
					return f.Fail("list", err)
				}
				return f.Result(articles, func(t Theme) string { return renderArticles(t, addr, articles) })
			})
		},
	}
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <collection> <item>",
		Short: "Check the binding signature of an article",
		Long: `Check that the article's binding signature is valid for its publisher,
that the publisher owns the NFT and that the NFT metadata names the
article's content hash.

Exits with status 1 when any check fails.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			unit, err := parseUnit(args)
			if err != nil {
				return f.Fail("invalid arguments", err)
			}
			return rootOpts.withSession(cmd, f, func(ctx context.Context, s *session) error {
				audit, err := s.agg.Audit(ctx, unit)
				if err != nil {
					return f.Fail("audit", err)
				}
				if err := f.Result(audit, func(t Theme) string { return renderAudit(t, audit) }); err != nil {
					return err
				}
				if !audit.Consistent() {
					return &ExitError{Code: ExitFailure, Message: "binding inconsistent", Reported: true}
				}
				return nil
			})
		},
	}
}
