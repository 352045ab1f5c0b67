package grpcledger

import (
	"encoding/json"

	"github.com/w3f/edunews/internal/ledger"
)

type readRequest struct {
	Ledger string       `json:"ledger"`
	Query  ledger.Query `json:"query"`
}

type readReply struct {
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value,omitempty"`
}

type submitRequest struct {
	Ledger    string           `json:"ledger"`
	Extrinsic ledger.Extrinsic `json:"extrinsic"`
}
