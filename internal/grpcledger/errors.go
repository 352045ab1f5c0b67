package grpcledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/w3f/edunews/internal/ledger"
)

// ErrUnknownLedger is returned when the server does not host the requested ledger.
var ErrUnknownLedger = errors.New("unknown ledger")

// mapErr converts a ledger error into a gRPC status.
// Dispatch failures travel as FailedPrecondition with the message
// "<reason>: <detail>".
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var se *ledger.SubmissionError
	switch {
	case errors.As(err, &se):
		msg := se.Reason
		if se.Err != nil {
			msg += ": " + se.Err.Error()
		}
		return status.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, ErrUnknownLedger):
		return status.Error(codes.NotFound, err.Error())
	case ledger.IsUnavailable(err):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC converts a gRPC status from the server into a ledger error.
// call is empty for reads.
func (c *Client) mapRPC(err error, call string) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.FailedPrecondition:
		reason, detail, _ := strings.Cut(st.Message(), ": ")
		var inner error
		if detail != "" {
			inner = errors.New(detail)
		}
		return &ledger.SubmissionError{Ledger: c.ledger, Call: call, Reason: reason, Err: inner}
	case codes.NotFound:
		return fmt.Errorf("%s: %w: %s", c.ledger, ErrUnknownLedger, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%s: %w: %s", c.ledger, ledger.ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("%s: %s", c.ledger, st.Message())
	}
}
