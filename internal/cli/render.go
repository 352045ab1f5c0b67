package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/w3f/edunews/internal/harness"
	"github.com/w3f/edunews/internal/ir"
)

// Theme holds the styles of text output. Colors are dropped when the
// writer is not a terminal.
type Theme struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	OK    lipgloss.Style
	Fail  lipgloss.Style
	Muted lipgloss.Style
}

// NewTheme returns the theme for output written to w.
func NewTheme(w io.Writer) Theme {
	r := lipgloss.NewRenderer(w)
	return Theme{
		Title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		Label: r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		Value: r.NewStyle(),
		OK:    r.NewStyle().Foreground(lipgloss.Color("#50FA7B")),
		Fail:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		Muted: r.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

const labelWidth = 14

type field struct {
	label string
	value string
}

func (t Theme) block(title string, fields []field) string {
	var b strings.Builder
	b.WriteString(t.Title.Render(title))
	b.WriteByte('\n')
	for _, f := range fields {
		pad := labelWidth - len(f.label) - 1
		if pad < 1 {
			pad = 1
		}
		b.WriteString("  ")
		b.WriteString(t.Label.Render(f.label + ":"))
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(f.value)
		b.WriteByte('\n')
	}
	return b.String()
}

func (t Theme) check(ok bool) string {
	if ok {
		return t.OK.Render("yes")
	}
	return t.Fail.Render("no")
}

func orNone(t Theme, s *string) string {
	if s == nil || *s == "" {
		return t.Muted.Render("(none)")
	}
	return *s
}

func renderReceipt(t Theme, r ir.RegistrationReceipt) string {
	container := fmt.Sprint(r.ContainerID)
	if r.ContainerCreated {
		container += " " + t.Muted.Render("(new)")
	}
	fields := []field{
		{"Article", r.ArticleID},
		{"Collection", container},
		{"Item", fmt.Sprint(r.UnitID)},
		{"Content hash", r.ContentHash.String()},
	}
	if r.ContentCID != "" {
		fields = append(fields, field{"Content CID", r.ContentCID})
	}
	fields = append(fields,
		field{"Publisher", r.Publisher.String()},
		field{"Block", fmt.Sprint(r.BlockNumber)},
		field{"Tx", r.TxHash},
		field{"Flow", t.Muted.Render(r.FlowToken)},
	)
	return t.block("Article registered", fields)
}

func renderVerification(t Theme, v ir.VerificationResult) string {
	return t.block(fmt.Sprintf("Verification of %d/%d", v.ContainerID, v.UnitID), []field{
		{"Article", t.check(v.ArticleExists)},
		{"NFT", t.check(v.UnitExists)},
		{"Publisher ID", t.check(v.PublisherVerified)},
	})
}

func articleFields(t Theme, a ir.Article) []field {
	return []field{
		{"Title", a.Title},
		{"URL", a.URL},
		{"Item", fmt.Sprintf("%d/%d", a.ContainerID, a.UnitID)},
		{"Content hash", a.ContentHash.String()},
		{"Publisher", a.Publisher.String()},
		{"Words", fmt.Sprint(a.WordCount)},
		{"Timestamp", fmt.Sprint(a.Timestamp)},
		{"NFT", t.check(a.VerifiedUnit)},
		{"Publisher ID", t.check(a.VerifiedIdentity)},
	}
}

func renderArticle(t Theme, a ir.Article) string {
	return t.block("Article", articleFields(t, a))
}

func renderArticles(t Theme, publisher ir.Address, articles []ir.Article) string {
	if len(articles) == 0 {
		return t.Muted.Render("No articles for "+publisher.String()) + "\n"
	}
	blocks := make([]string, len(articles))
	for i, a := range articles {
		blocks[i] = t.block(fmt.Sprintf("[%d] %s", i+1, a.Title), articleFields(t, a)[1:])
	}
	return strings.Join(blocks, "\n")
}

func renderIdentity(t Theme, a ir.IdentityAttestation) string {
	if !a.Verified {
		return t.block("Identity", []field{
			{"Address", a.Address.String()},
			{"Verified", t.check(false)},
			{"Record", t.Muted.Render("no identity")},
		})
	}
	return t.block("Identity", []field{
		{"Address", a.Address.String()},
		{"Verified", t.check(true)},
		{"Display name", orNone(t, a.DisplayName)},
		{"Legal name", orNone(t, a.LegalName)},
	})
}

func renderAudit(t Theme, a ir.BindingAudit) string {
	owner := a.UnitOwner.String()
	if owner == "" {
		owner = t.Muted.Render("(none)")
	}
	out := t.block(fmt.Sprintf("Binding audit of %d/%d", a.ContainerID, a.UnitID), []field{
		{"Publisher", a.Publisher.String()},
		{"NFT owner", owner},
		{"Signature", t.check(a.SignatureValid)},
		{"Owner match", t.check(a.OwnerMatches)},
		{"Metadata", t.check(a.MetadataMatches)},
	})
	if a.Consistent() {
		return out + t.OK.Render("✓ binding consistent") + "\n"
	}
	return out + t.Fail.Render("✗ binding inconsistent") + "\n"
}

func renderIdentitySet(t Theme, addr ir.Address, block uint64) string {
	return t.block("Identity set", []field{
		{"Address", addr.String()},
		{"Block", fmt.Sprint(block)},
	})
}

func renderSuite(t Theme, res harness.SuiteResult) string {
	var b strings.Builder
	if res.Total == 0 {
		return "No scenarios found.\n"
	}
	for _, s := range res.Scenarios {
		if s.Pass {
			line := t.OK.Render("✓") + " " + s.Name
			if s.Golden == harness.GoldenUpdated {
				line += " " + t.Muted.Render("(golden updated)")
			}
			b.WriteString(line + "\n")
			continue
		}
		b.WriteString(t.Fail.Render("✗") + " " + s.Name + "\n")
		for _, e := range s.Errors {
			for _, l := range strings.Split(e, "\n") {
				b.WriteString("  " + l + "\n")
			}
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Test Summary: %d passed, %d failed, %d total\n", res.Passed, res.Failed, res.Total)
	if res.Failed == 0 {
		b.WriteString(t.OK.Render("✓ All scenarios passed") + "\n")
	}
	return b.String()
}
