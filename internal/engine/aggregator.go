package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/w3f/edunews/internal/identity"
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/issuance"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/registry"
)

// fanOut bounds the concurrent ledger reads of one aggregator call.
const fanOut = 3

// Aggregator answers read-side questions by combining the three ledgers.
// It never writes.
type Aggregator struct {
	issuer    *issuance.Issuer
	registrar *registry.Registrar
	resolver  *identity.Resolver
	logger    *slog.Logger
}

// NewAggregator creates an Aggregator. A nil logger uses slog.Default().
func NewAggregator(issuer *issuance.Issuer, registrar *registry.Registrar, resolver *identity.Resolver, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{issuer: issuer, registrar: registrar, resolver: resolver, logger: logger}
}

// unavailable logs a sub-check that could not be answered.
func (a *Aggregator) unavailable(name string, unit ir.IssuanceUnit, err error) {
	a.logger.Warn("CrossLedgerUnavailable",
		"ledger", name,
		"container", unit.ContainerID,
		"unit", unit.UnitID,
		"error", err,
	)
}

// Verify reports whether unit has a registry record, whether the unit
// exists, and whether the recorded publisher has an identity.
//
// A ledger that cannot be read turns its flag false. Only cancellation of
// ctx is returned as an error.
func (a *Aggregator) Verify(ctx context.Context, unit ir.IssuanceUnit) (ir.VerificationResult, error) {
	result := ir.VerificationResult{ContainerID: unit.ContainerID, UnitID: unit.UnitID}

	var record *ir.RegistryRecord
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	g.Go(func() error {
		rec, err := a.registrar.LookupByIDs(gctx, unit)
		if err != nil {
			a.unavailable(ledger.Registry, unit, err)
			return nil
		}
		record = rec
		return nil
	})
	g.Go(func() error {
		exists, err := a.issuer.UnitExists(gctx, unit)
		if err != nil {
			a.unavailable(ledger.Issuance, unit, err)
			return nil
		}
		result.UnitExists = exists
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return ir.VerificationResult{}, err
	}

	if record == nil {
		return result, nil
	}
	result.ArticleExists = true

	att, err := a.resolver.Resolve(ctx, record.Publisher)
	if err != nil {
		a.unavailable(ledger.Identity, unit, err)
		return result, ctx.Err()
	}
	result.PublisherVerified = att.Verified
	return result, nil
}

// ListForPublisher returns the articles of publisher, re-checking the unit
// and the publisher identity of each record. The registry ledger must be
// reachable; the other two degrade their flags to false.
func (a *Aggregator) ListForPublisher(ctx context.Context, publisher ir.Address) ([]ir.Article, error) {
	if err := keys.ValidateAddress(publisher); err != nil {
		return nil, &Error{Code: ErrCodeMalformedInput, Message: fmt.Sprintf("invalid publisher address %q", publisher), Err: err}
	}
	records, err := a.registrar.LookupByPublisher(ctx, publisher)
	if err != nil {
		return nil, ledgerError(ledger.Registry, "", "list articles", err)
	}
	articles := make([]ir.Article, len(records))
	if len(records) == 0 {
		return articles, nil
	}

	// Every record gets its own unit and identity reads.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, rec := range records {
		articles[i] = ir.ArticleFromRecord(rec)
		g.Go(func() error {
			articles[i].VerifiedIdentity = a.identityVerified(gctx, rec.Publisher, rec.Unit())
			exists, err := a.issuer.UnitExists(gctx, rec.Unit())
			if err != nil {
				a.unavailable(ledger.Issuance, rec.Unit(), err)
				return nil
			}
			articles[i].VerifiedUnit = exists
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return articles, nil
}

// Show returns the article recorded for unit. An unregistered unit is
// ErrCodeNotFound.
func (a *Aggregator) Show(ctx context.Context, unit ir.IssuanceUnit) (ir.Article, error) {
	record, err := a.registrar.LookupByIDs(ctx, unit)
	if err != nil {
		return ir.Article{}, ledgerError(ledger.Registry, "", "read article", err)
	}
	if record == nil {
		return ir.Article{}, &Error{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("no article registered for unit %s", unit),
			Ledger:  ledger.Registry,
		}
	}
	article := ir.ArticleFromRecord(*record)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	g.Go(func() error {
		exists, err := a.issuer.UnitExists(gctx, unit)
		if err != nil {
			a.unavailable(ledger.Issuance, unit, err)
			return nil
		}
		article.VerifiedUnit = exists
		return nil
	})
	g.Go(func() error {
		article.VerifiedIdentity = a.identityVerified(gctx, record.Publisher, unit)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return ir.Article{}, err
	}
	return article, nil
}

func (a *Aggregator) identityVerified(ctx context.Context, addr ir.Address, unit ir.IssuanceUnit) bool {
	att, err := a.resolver.Resolve(ctx, addr)
	if err != nil {
		a.unavailable(ledger.Identity, unit, err)
		return false
	}
	return att.Verified
}

// Identity returns the identity attestation of addr.
func (a *Aggregator) Identity(ctx context.Context, addr ir.Address) (ir.IdentityAttestation, error) {
	att, err := a.resolver.Resolve(ctx, addr)
	if err != nil {
		if IsMalformedInput(err) {
			return ir.IdentityAttestation{}, &Error{Code: ErrCodeMalformedInput, Message: fmt.Sprintf("invalid address %q", addr), Err: err}
		}
		return ir.IdentityAttestation{}, ledgerError(ledger.Identity, "", "read identity", err)
	}
	return att, nil
}

// Audit checks the binding of the article recorded for unit: the signature
// must verify against the recorded publisher, the publisher must own the
// unit, and the unit metadata must name the same content hash.
//
// Unlike Verify, Audit needs both ledgers and fails when either is down.
func (a *Aggregator) Audit(ctx context.Context, unit ir.IssuanceUnit) (ir.BindingAudit, error) {
	record, err := a.registrar.LookupByIDs(ctx, unit)
	if err != nil {
		return ir.BindingAudit{}, ledgerError(ledger.Registry, "", "read article", err)
	}
	if record == nil {
		return ir.BindingAudit{}, &Error{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("no article registered for unit %s", unit),
			Ledger:  ledger.Registry,
		}
	}
	audit := ir.BindingAudit{ContainerID: unit.ContainerID, UnitID: unit.UnitID, Publisher: record.Publisher}

	ok, err := keys.Verify(record.Publisher, ir.SigningPayload(record.ContentHash), record.Signature)
	if err != nil {
		a.logger.Warn("binding signature unreadable", "container", unit.ContainerID, "unit", unit.UnitID, "error", err)
	}
	audit.SignatureValid = ok

	owner, found, err := a.issuer.UnitOwner(ctx, unit)
	if err != nil {
		return ir.BindingAudit{}, ledgerError(ledger.Issuance, "", "read unit owner", err)
	}
	if found {
		audit.UnitOwner = owner
		audit.OwnerMatches = owner == record.Publisher
	}

	metadata, found, err := a.issuer.Metadata(ctx, unit)
	if err != nil {
		return ir.BindingAudit{}, ledgerError(ledger.Issuance, "", "read unit metadata", err)
	}
	if found {
		audit.MetadataMatches = metadataNames(metadata, record.ContentHash)
	}
	return audit, nil
}

// metadataNames reports whether unit metadata carries digest.
func metadataNames(metadata string, digest ir.Digest) bool {
	var doc struct {
		ContentHash ir.Digest `json:"content_hash"`
	}
	if err := json.Unmarshal([]byte(metadata), &doc); err != nil {
		return false
	}
	return doc.ContentHash == digest
}
