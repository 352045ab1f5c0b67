package devnet

import (
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/runtime/news"
)

// News implements the article registry pallet. It knows nothing about the
// issuance ledger: the linked item is taken on the submitter's word, and the
// binding signature is only checked against the submitter.
type News struct{}

func (News) Name() string { return news.Pallet }

func (p News) Dispatch(env *Env, call ledger.Call) ([]ledger.Event, error) {
	if call.Name != "record_article" {
		return nil, fail(ledger.ReasonUnknownCall, "%s", call)
	}
	var args news.RecordArticleArgs
	if err := decode(call, &args); err != nil {
		return nil, err
	}
	return p.recordArticle(env, args)
}

func (News) recordArticle(env *Env, args news.RecordArticleArgs) ([]ledger.Event, error) {
	switch {
	case args.HashAlgo != news.HashBlake2b256:
		return nil, fail(news.ErrUnsupportedHash, "%q", args.HashAlgo)
	case len(args.Title) > news.TitleLimit:
		return nil, fail(news.ErrTitleTooLong, "%d bytes", len(args.Title))
	case len(args.CanonicalURL) > news.URLLimit:
		return nil, fail(news.ErrURLTooLong, "%d bytes", len(args.CanonicalURL))
	}

	_, exists, err := env.State.Get(news.ArticleByHash(args.ContentHash))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fail(news.ErrArticleExists, "%s", args.ContentHash)
	}
	_, linked, err := env.State.Get(news.RootByItem(args.CollectionID, args.ItemID))
	if err != nil {
		return nil, err
	}
	if linked {
		return nil, fail(news.ErrItemAlreadyLinked, "item %d/%d", args.CollectionID, args.ItemID)
	}

	ok, err := keys.Verify(env.Origin, ir.SigningPayload(args.ContentHash), args.Signature)
	if err != nil || !ok {
		return nil, fail(news.ErrBadSignature, "binding signature does not match %s", env.Origin)
	}

	record := news.ArticleRecord{
		CollectionID:  args.CollectionID,
		ItemID:        args.ItemID,
		Title:         args.Title,
		CanonicalURL:  args.CanonicalURL,
		Publisher:     env.Origin,
		Signature:     args.Signature,
		HashAlgo:      args.HashAlgo,
		WordCount:     args.WordCount,
		LastUpdatedAt: env.Block,
		Timestamp:     env.Timestamp,
	}
	if err := save(env.State, news.ArticleByHash(args.ContentHash), record); err != nil {
		return nil, err
	}
	if err := save(env.State, news.RootByItem(args.CollectionID, args.ItemID), args.ContentHash); err != nil {
		return nil, err
	}

	index, _, err := load[[]ir.Digest](env.State, news.ArticlesByPublisher(env.Origin))
	if err != nil {
		return nil, err
	}
	index = append(index, args.ContentHash)
	if err := save(env.State, news.ArticlesByPublisher(env.Origin), index); err != nil {
		return nil, err
	}

	return []ledger.Event{event(news.Pallet, news.EventArticleRecorded, news.ArticleRecordedEvent{
		ContentHash:  args.ContentHash,
		Publisher:    env.Origin,
		CollectionID: args.CollectionID,
		ItemID:       args.ItemID,
	})}, nil
}
