// Package registry anchors articles on the registry ledger and reads them
// back.
//
// A record is stored under its content hash. Looking a record up by issuance
// unit goes through the (container, unit) index first, so a lookup can find
// the index entry and still miss the record; that case is logged and
// reported as not found.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/news"
)

var (
	// ErrFieldTooLong is returned before submission when the title or URL
	// exceeds the registry limit.
	ErrFieldTooLong = errors.New("field too long")

	// ErrMissingSignature is returned when a registration carries no
	// binding signature.
	ErrMissingSignature = errors.New("missing binding signature")
)

// Registration is the input of Register.
type Registration struct {
	// ContentHash is the "0x"-prefixed hex digest of the article content.
	ContentHash string
	Unit        ir.IssuanceUnit
	Title       string
	URL         string
	Signature   ir.Signature
	WordCount   uint32
}

// Registrar reads and writes article records.
type Registrar struct {
	client ledger.Client
	logger *slog.Logger
}

// New creates a Registrar. A nil logger uses slog.Default().
func New(client ledger.Client, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{client: client, logger: logger.With("ledger", client.Name())}
}

// Client returns the registry ledger client.
func (r *Registrar) Client() ledger.Client { return r.client }

// Register records an article in a single finalized write.
// The input is validated before any network call.
func (r *Registrar) Register(ctx context.Context, signer ledger.Signer, reg Registration) (ledger.Receipt, error) {
	digest, err := ir.ParseDigest(reg.ContentHash)
	if err != nil {
		return ledger.Receipt{}, err
	}
	if err := ValidateFields(reg.Title, reg.URL); err != nil {
		return ledger.Receipt{}, err
	}
	if reg.Signature.IsZero() {
		return ledger.Receipt{}, ErrMissingSignature
	}

	call, err := news.RecordArticle(news.RecordArticleArgs{
		ContentHash:  digest,
		CollectionID: reg.Unit.ContainerID,
		ItemID:       reg.Unit.UnitID,
		Title:        reg.Title,
		CanonicalURL: reg.URL,
		Signature:    reg.Signature,
		HashAlgo:     news.HashBlake2b256,
		WordCount:    reg.WordCount,
	})
	if err != nil {
		return ledger.Receipt{}, err
	}
	receipt, err := ledger.Submit(ctx, r.client, signer, call)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("record article %s: %w", digest, err)
	}
	r.logger.Info("article recorded",
		"content_hash", digest.String(),
		"container", reg.Unit.ContainerID,
		"unit", reg.Unit.UnitID,
		"block", receipt.BlockNumber,
	)
	return receipt, nil
}

// ValidateFields checks title and url against the registry limits.
func ValidateFields(title, url string) error {
	switch {
	case len(title) > news.TitleLimit:
		return fmt.Errorf("%w: title is %d bytes, limit %d", ErrFieldTooLong, len(title), news.TitleLimit)
	case len(url) > news.URLLimit:
		return fmt.Errorf("%w: url is %d bytes, limit %d", ErrFieldTooLong, len(url), news.URLLimit)
	}
	return nil
}

// LookupByHash returns the record stored under digest, or nil.
func (r *Registrar) LookupByHash(ctx context.Context, digest ir.Digest) (*ir.RegistryRecord, error) {
	stored, found, err := ledger.Fetch[news.ArticleRecord](ctx, r.client, news.ArticleByHash(digest))
	if err != nil {
		return nil, fmt.Errorf("read article %s: %w", digest, err)
	}
	if !found {
		return nil, nil
	}
	rec := stored.ToRecord(digest)
	return &rec, nil
}

// LookupByIDs returns the record linked to an issuance unit, or nil when
// the unit has no record.
func (r *Registrar) LookupByIDs(ctx context.Context, unit ir.IssuanceUnit) (*ir.RegistryRecord, error) {
	digest, found, err := ledger.Fetch[ir.Digest](ctx, r.client, news.RootByItem(unit.ContainerID, unit.UnitID))
	if err != nil {
		return nil, fmt.Errorf("read index of %s: %w", unit, err)
	}
	if !found {
		return nil, nil
	}
	rec, err := r.LookupByHash(ctx, digest)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		r.logger.Warn("index points at missing article",
			"container", unit.ContainerID,
			"unit", unit.UnitID,
			"content_hash", digest.String(),
		)
	}
	return rec, nil
}

// Exists reports whether the issuance unit has a record in the index.
func (r *Registrar) Exists(ctx context.Context, unit ir.IssuanceUnit) (bool, error) {
	_, found, err := r.client.ReadLatest(ctx, news.RootByItem(unit.ContainerID, unit.UnitID))
	if err != nil {
		return false, fmt.Errorf("read index of %s: %w", unit, err)
	}
	return found, nil
}

// LookupByPublisher returns the records of publisher in registration order.
// Records that cannot be read are logged and left out, so the result may
// be a subset of the index. A missing index yields an empty slice.
func (r *Registrar) LookupByPublisher(ctx context.Context, publisher ir.Address) ([]ir.RegistryRecord, error) {
	index, _, err := ledger.Fetch[[]ir.Digest](ctx, r.client, news.ArticlesByPublisher(publisher))
	if err != nil {
		return nil, fmt.Errorf("read articles of %s: %w", publisher, err)
	}

	records := make([]ir.RegistryRecord, 0, len(index))
	for _, digest := range index {
		rec, err := r.LookupByHash(ctx, digest)
		if err != nil {
			r.logger.Warn("skipping unreadable article", "publisher", publisher, "content_hash", digest.String(), "error", err)
			continue
		}
		if rec == nil {
			r.logger.Warn("publisher index points at missing article", "publisher", publisher, "content_hash", digest.String())
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}
