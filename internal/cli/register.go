package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/w3f/edunews/internal/engine"
	"github.com/w3f/edunews/internal/ir"
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	Title       string
	URL         string
	Content     string
	ContentFile string
	Mnemonic    string
	Scheme      string

	ResumePhase string
	Collection  uint32
	Item        uint32
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an article on all three ledgers",
		Long: `Register an article as a linked record.

The publisher's collection is found or created on the issuance ledger, an
NFT is minted for the article, and the content hash is recorded on the
registry ledger together with a signature binding it to the NFT.

A registration interrupted after some writes were finalized exits with
status 5 and reports the phase it reached. Run register again with
--resume-phase, --collection and --item to submit only the missing writes.

Examples:
  edunews register --title "Hello" --url https://example.org/hello --content-file hello.md
  EDUNEWS_MNEMONIC="//Alice" edunews register --title T --url U --content "text"
  edunews register --title T --url U --content-file a.md --resume-phase unit.minted --collection 0 --item 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "article title")
	cmd.Flags().StringVar(&opts.URL, "url", "", "canonical URL of the article")
	cmd.Flags().StringVar(&opts.Content, "content", "", "article content")
	cmd.Flags().StringVar(&opts.ContentFile, "content-file", "", "read article content from a file")
	cmd.Flags().StringVar(&opts.Mnemonic, "mnemonic", "", "publisher secret URI (default $EDUNEWS_MNEMONIC)")
	cmd.Flags().StringVar(&opts.Scheme, "scheme", string(ir.SchemeEd25519), "signature scheme (ed25519|ecdsa)")
	cmd.Flags().StringVar(&opts.ResumePhase, "resume-phase", "", "resume a stopped registration from this phase")
	cmd.Flags().Uint32Var(&opts.Collection, "collection", 0, "collection of the stopped registration")
	cmd.Flags().Uint32Var(&opts.Item, "item", 0, "item of the stopped registration")

	return cmd
}

func runRegister(opts *RegisterOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	content, err := opts.content()
	if err != nil {
		return f.Fail("invalid content", err)
	}
	signer, err := opts.signer(opts.Mnemonic, opts.Scheme)
	if err != nil {
		return f.Fail("invalid publisher key", err)
	}
	req := engine.Request{Title: opts.Title, URL: opts.URL, Content: content, Signer: signer}

	return opts.withSession(cmd, f, func(ctx context.Context, s *session) error {
		var receipt ir.RegistrationReceipt
		if opts.ResumePhase != "" {
			f.VerboseLog("resuming from %s at %d/%d", opts.ResumePhase, opts.Collection, opts.Item)
			receipt, err = s.orch.Resume(ctx, req, engine.Checkpoint{
				Phase:       ir.Phase(opts.ResumePhase),
				ContainerID: opts.Collection,
				UnitID:      opts.Item,
			})
		} else {
			receipt, err = s.orch.Register(ctx, req)
		}
		if err != nil {
			return f.Fail("registration failed", err)
		}
		return f.Traced(receipt.FlowToken, receipt, func(t Theme) string {
			return renderReceipt(t, receipt)
		})
	})
}

// content returns the article body from --content or --content-file.
func (o *RegisterOptions) content() ([]byte, error) {
	switch {
	case o.Content != "" && o.ContentFile != "":
		return nil, invalidInput("--content and --content-file are mutually exclusive")
	case o.ContentFile != "":
		data, err := os.ReadFile(o.ContentFile)
		if err != nil {
			return nil, invalidInput("read content file: %v", err)
		}
		return data, nil
	default:
		// Empty content is rejected by the orchestrator.
		return []byte(o.Content), nil
	}
}
