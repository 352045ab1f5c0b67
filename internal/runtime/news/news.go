// Package news describes the article registry pallet of the registry ledger.
//
// Records are keyed by content hash. Two indexes point back at them:
// RootByItem maps (collection, item) to a hash and ArticlesByPublisher lists
// every hash a publisher recorded, in registration order.
package news

import (
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/ledger"
)

const Pallet = "news"

// Field limits enforced by the pallet.
const (
	TitleLimit = 256
	URLLimit   = 512
)

// Dispatch errors.
const (
	ErrArticleExists     = "news.ArticleAlreadyExists"
	ErrItemAlreadyLinked = "news.ItemAlreadyLinked"
	ErrTitleTooLong      = "news.TitleTooLong"
	ErrURLTooLong        = "news.UrlTooLong"
	ErrBadSignature      = "news.BadSignature"
	ErrUnsupportedHash   = "news.UnsupportedHashAlgo"
)

const EventArticleRecorded = "ArticleRecorded"

// HashAlgo names the content hash function of a record.
type HashAlgo string

const HashBlake2b256 HashAlgo = "Blake2b256"

// ArticleRecord is stored under ArticleByHash(hash).
type ArticleRecord struct {
	CollectionID  uint32       `json:"collection_id"`
	ItemID        uint32       `json:"item_id"`
	Title         string       `json:"title"`
	CanonicalURL  string       `json:"canonical_url"`
	Publisher     ir.Address   `json:"publisher"`
	Signature     ir.Signature `json:"signature"`
	HashAlgo      HashAlgo     `json:"hash_algo"`
	WordCount     uint32       `json:"word_count"`
	LastUpdatedAt uint64       `json:"last_updated_at"`
	Timestamp     int64        `json:"timestamp"`
}

// ToRecord converts the stored form into the shared model.
func (r ArticleRecord) ToRecord(hash ir.Digest) ir.RegistryRecord {
	ts := r.Timestamp
	if ts < 0 {
		ts = 0
	}
	return ir.RegistryRecord{
		ContainerID:  r.CollectionID,
		UnitID:       r.ItemID,
		ContentHash:  hash,
		Title:        r.Title,
		CanonicalURL: r.CanonicalURL,
		Publisher:    r.Publisher,
		Signature:    r.Signature,
		WordCount:    r.WordCount,
		Timestamp:    uint64(ts),
	}
}

func ArticleByHash(hash ir.Digest) ledger.Query {
	return ledger.NewQuery(Pallet, "article_by_hash", hash.String())
}

// RootByItem holds the content hash (an ir.Digest) linked to an item.
func RootByItem(collection, item uint32) ledger.Query {
	return ledger.NewQuery(Pallet, "root_by_item", collection, item)
}

// ArticlesByPublisher holds a []ir.Digest in registration order.
func ArticlesByPublisher(addr ir.Address) ledger.Query {
	return ledger.NewQuery(Pallet, "articles_by_publisher", addr)
}

type RecordArticleArgs struct {
	ContentHash  ir.Digest    `json:"content_hash"`
	CollectionID uint32       `json:"collection_id"`
	ItemID       uint32       `json:"item_id"`
	Title        string       `json:"title"`
	CanonicalURL string       `json:"canonical_url"`
	Signature    ir.Signature `json:"signature"`
	HashAlgo     HashAlgo     `json:"hash_algo"`
	WordCount    uint32       `json:"word_count"`
}

func RecordArticle(args RecordArticleArgs) (ledger.Call, error) {
	return ledger.NewCall(Pallet, "record_article", args)
}

type ArticleRecordedEvent struct {
	ContentHash  ir.Digest  `json:"content_hash"`
	Publisher    ir.Address `json:"publisher"`
	CollectionID uint32     `json:"collection_id"`
	ItemID       uint32     `json:"item_id"`
}
