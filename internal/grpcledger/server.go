package grpcledger

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/w3f/edunews/internal/ledger"
)

// Ledger is a ledger the server can host. *devnet.Node satisfies it.
type Ledger interface {
	ledger.Client
	Head(ctx context.Context) (ledger.Block, error)
}

// Server exposes named ledgers over the Ledger gRPC service.
type Server struct {
	UnimplementedLedgerServer
	Ledgers map[string]Ledger
}

func (s *Server) lookup(name string) (Ledger, error) {
	if s == nil || s.Ledgers == nil {
		return nil, status.Error(codes.FailedPrecondition, "no ledgers")
	}
	l, ok := s.Ledgers[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%s: %q", ErrUnknownLedger, name)
	}
	return l, nil
}

func (s *Server) Read(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req readRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed read request")
	}
	l, err := s.lookup(req.Ledger)
	if err != nil {
		return nil, err
	}
	value, found, err := l.ReadLatest(ctx, req.Query)
	if err != nil {
		return nil, mapErr(err)
	}
	return reply(readReply{Found: found, Value: value})
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req submitRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed submit request")
	}
	l, err := s.lookup(req.Ledger)
	if err != nil {
		return nil, err
	}
	receipt, err := l.SubmitAndWatch(ctx, req.Extrinsic)
	if err != nil {
		return nil, mapErr(err)
	}
	return reply(receipt)
}

func (s *Server) Head(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	l, err := s.lookup(in.GetValue())
	if err != nil {
		return nil, err
	}
	b, err := l.Head(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return reply(b)
}

func reply(v any) (*wrapperspb.BytesValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode reply failed")
	}
	return wrapperspb.Bytes(b), nil
}
