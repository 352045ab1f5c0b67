package cli

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/w3f/edunews/internal/harness"
	"github.com/w3f/edunews/internal/ir"
)

func testDigest() ir.Digest {
	var d ir.Digest
	for i := range d {
		d[i] = 0x11
	}
	return d
}

func sampleArticle(title string, unit uint32, identity bool) ir.Article {
	return ir.Article{
		ContainerID:      0,
		UnitID:           unit,
		Title:            title,
		URL:              "https://example.org/" + title,
		ContentHash:      testDigest(),
		Publisher:        "5Alice",
		Timestamp:        1700000000000,
		WordCount:        120,
		VerifiedUnit:     true,
		VerifiedIdentity: identity,
	}
}

func strPtr(s string) *string { return &s }

func TestRender(t *testing.T) {
	// A bytes.Buffer is not a terminal, so styles render as plain text.
	theme := NewTheme(&bytes.Buffer{})

	tests := []struct {
		name string
		out  string
	}{
		{"receipt", renderReceipt(theme, ir.RegistrationReceipt{
			ContainerID:      0,
			UnitID:           3,
			ContentHash:      testDigest(),
			ArticleID:        "article_11111111",
			TxHash:           "0xabc",
			BlockNumber:      7,
			Publisher:        "5Alice",
			ContainerCreated: true,
			FlowToken:        "flow-1",
		})},
		{"verification", renderVerification(theme, ir.VerificationResult{
			ContainerID: 0, UnitID: 3, ArticleExists: true, UnitExists: true,
		})},
		{"article", renderArticle(theme, sampleArticle("hello", 3, false))},
		{"articles", renderArticles(theme, "5Alice", []ir.Article{
			sampleArticle("one", 0, true),
			sampleArticle("two", 1, true),
		})},
		{"articles_empty", renderArticles(theme, "5Bob", nil)},
		{"identity", renderIdentity(theme, ir.IdentityAttestation{
			Address: "5Alice", DisplayName: strPtr("Alice"), Verified: true,
		})},
		{"identity_none", renderIdentity(theme, ir.Unverified("5Bob"))},
		{"audit_consistent", renderAudit(theme, ir.BindingAudit{
			ContainerID: 0, UnitID: 3, Publisher: "5Alice", UnitOwner: "5Alice",
			SignatureValid: true, OwnerMatches: true, MetadataMatches: true,
		})},
		{"audit_inconsistent", renderAudit(theme, ir.BindingAudit{
			ContainerID: 0, UnitID: 3, Publisher: "5Bob", UnitOwner: "5Alice",
			SignatureValid: true,
		})},
		{"suite", renderSuite(theme, harness.SuiteResult{
			Scenarios: []harness.FileResult{
				{Name: "first", Pass: true, Golden: harness.GoldenMatch},
				{Name: "second", Pass: true, Golden: harness.GoldenUpdated},
				{Name: "third", Errors: []string{"flow[0] register: expected case ok, got NOT_FOUND"}},
			},
			Passed: 2, Failed: 1, Total: 3,
		})},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, "render_"+tt.name, []byte(tt.out))
		})
	}
}
