package ir

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is an SS58-encoded account address.
// Format validation lives in the keys package.
type Address string

func (a Address) String() string { return string(a) }

// SignatureScheme names the algorithm behind a Signature.
type SignatureScheme string

const (
	SchemeEd25519 SignatureScheme = "ed25519"
	SchemeEcdsa   SignatureScheme = "ecdsa"
)

// Signature is a scheme-tagged signature, the equivalent of a ledger
// MultiSignature value.
type Signature struct {
	Scheme SignatureScheme `json:"scheme"`
	Bytes  []byte          `json:"-"`
}

type signatureJSON struct {
	Scheme SignatureScheme `json:"scheme"`
	Value  string          `json:"value"`
}

// Hex returns the "0x"-prefixed signature bytes.
func (s Signature) Hex() string {
	return "0x" + hex.EncodeToString(s.Bytes)
}

// IsZero reports whether no signature bytes are present.
func (s Signature) IsZero() bool { return len(s.Bytes) == 0 }

// MarshalJSON encodes as {"scheme": ..., "value": "0x..."}.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(signatureJSON{Scheme: s.Scheme, Value: s.Hex()})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var raw signatureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(raw.Value, "0x"))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	s.Scheme = raw.Scheme
	s.Bytes = b
	return nil
}

// IssuanceUnit identifies one minted collectible.
// UnitID is the container's item count at mint time and is never reused.
type IssuanceUnit struct {
	ContainerID uint32 `json:"collection_id"`
	UnitID      uint32 `json:"item_id"`
}

func (u IssuanceUnit) String() string {
	return fmt.Sprintf("%d/%d", u.ContainerID, u.UnitID)
}

// RegistryRecord is an article as anchored on the registry ledger.
// Created exactly once per ContentHash.
type RegistryRecord struct {
	ContainerID  uint32    `json:"collection_id"`
	UnitID       uint32    `json:"item_id"`
	ContentHash  Digest    `json:"content_hash"`
	Title        string    `json:"title"`
	CanonicalURL string    `json:"url"`
	Publisher    Address   `json:"publisher"`
	Signature    Signature `json:"signature"`
	WordCount    uint32    `json:"word_count"`
	Timestamp    uint64    `json:"timestamp"`
}

// Unit returns the issuance unit the record claims.
func (r RegistryRecord) Unit() IssuanceUnit {
	return IssuanceUnit{ContainerID: r.ContainerID, UnitID: r.UnitID}
}

// IdentityAttestation is the best-effort identity of an address.
//
// Verified is true when ANY identity record exists for the address,
// regardless of registrar judgements. This is a deliberately weak signal:
// it says the publisher bothered to publish an identity, not that anyone
// vouched for it.
type IdentityAttestation struct {
	Address     Address `json:"address"`
	DisplayName *string `json:"display_name"`
	LegalName   *string `json:"legal_name"`
	Verified    bool    `json:"verified"`
}

// Unverified returns the attestation reported for an address with no record.
func Unverified(addr Address) IdentityAttestation {
	return IdentityAttestation{Address: addr}
}

// Article is the read-side composite of a registry record and freshly
// re-checked issuance and identity state. Never persisted.
type Article struct {
	ContainerID      uint32  `json:"collection_id"`
	UnitID           uint32  `json:"item_id"`
	Title            string  `json:"title"`
	URL              string  `json:"url"`
	ContentHash      Digest  `json:"content_hash"`
	Publisher        Address `json:"publisher"`
	Timestamp        uint64  `json:"timestamp"`
	WordCount        uint32  `json:"word_count"`
	VerifiedUnit     bool    `json:"verified_nft"`
	VerifiedIdentity bool    `json:"verified_identity"`
}

// ArticleFromRecord builds an Article with both verification flags false.
func ArticleFromRecord(r RegistryRecord) Article {
	return Article{
		ContainerID: r.ContainerID,
		UnitID:      r.UnitID,
		Title:       r.Title,
		URL:         r.CanonicalURL,
		ContentHash: r.ContentHash,
		Publisher:   r.Publisher,
		Timestamp:   r.Timestamp,
		WordCount:   r.WordCount,
	}
}

// VerificationResult is the outcome of a cross-ledger verify.
type VerificationResult struct {
	ContainerID       uint32 `json:"collection_id"`
	UnitID            uint32 `json:"item_id"`
	ArticleExists     bool   `json:"article_exists"`
	UnitExists        bool   `json:"nft_exists"`
	PublisherVerified bool   `json:"publisher_verified"`
}

// RegistrationReceipt is returned by a completed registration.
type RegistrationReceipt struct {
	ContainerID      uint32  `json:"collection_id"`
	UnitID           uint32  `json:"item_id"`
	ContentHash      Digest  `json:"content_hash"`
	ContentCID       string  `json:"content_cid,omitempty"`
	ArticleID        string  `json:"article_id"`
	TxHash           string  `json:"tx_hash"`
	BlockNumber      uint64  `json:"block_number"`
	Publisher        Address `json:"publisher"`
	ContainerCreated bool    `json:"collection_created"`
	FlowToken        string  `json:"flow_token"`
}

// ArticleID derives the short article identifier from a digest.
func ArticleID(d Digest) string {
	return "article_" + d.Hex()[:8]
}

// BindingAudit is the outcome of checking a registry record's binding
// signature against the issuance ledger.
type BindingAudit struct {
	ContainerID     uint32  `json:"collection_id"`
	UnitID          uint32  `json:"item_id"`
	Publisher       Address `json:"publisher"`
	UnitOwner       Address `json:"unit_owner,omitempty"`
	SignatureValid  bool    `json:"signature_valid"`
	OwnerMatches    bool    `json:"owner_matches"`
	MetadataMatches bool    `json:"metadata_matches"`
}

// Consistent reports whether the binding holds end to end.
func (a BindingAudit) Consistent() bool {
	return a.SignatureValid && a.OwnerMatches && a.MetadataMatches
}
