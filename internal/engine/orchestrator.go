package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/issuance"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
	"github.com/w3f/edunews/internal/registry"
)

// ErrAlreadyRegistered is returned when the content hash already has a
// registry record. It is detected before any write.
var ErrAlreadyRegistered = errors.New("article already registered")

// Request is the input of a registration.
type Request struct {
	Title   string
	URL     string
	Content []byte
	Signer  keys.Signer
}

// Checkpoint names where a stopped registration can be picked up.
// It is the resumable part of a PartialWriteError.
type Checkpoint struct {
	Phase       ir.Phase
	ContainerID uint32
	UnitID      uint32
}

// Checkpoint returns the resume point of the stopped registration.
func (e *PartialWriteError) Checkpoint() Checkpoint {
	return Checkpoint{Phase: e.Phase, ContainerID: e.ContainerID, UnitID: e.UnitID}
}

// Orchestrator runs the registration workflow.
type Orchestrator struct {
	issuer    *issuance.Issuer
	registrar *registry.Registrar
	guard     *PublisherGuard
	flows     FlowTokenGenerator
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFlowGenerator sets the flow token source. Defaults to UUIDv7Generator.
func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(o *Orchestrator) { o.flows = g }
}

// WithGuard shares a PublisherGuard between orchestrators.
func WithGuard(g *PublisherGuard) Option {
	return func(o *Orchestrator) { o.guard = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an Orchestrator writing through issuer and registrar.
func NewOrchestrator(issuer *issuance.Issuer, registrar *registry.Registrar, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		issuer:    issuer,
		registrar: registrar,
		flows:     UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.guard == nil {
		o.guard = NewPublisherGuard()
	}
	return o
}

// WordCount returns the number of whitespace-separated tokens in content.
func WordCount(content []byte) uint32 {
	n := len(strings.Fields(string(content)))
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// validate rejects a request before any ledger is contacted. Every limit a
// later write would enforce is checked here, so malformed input never
// leaves a partial write behind.
func (o *Orchestrator) validate(req Request) (ir.Digest, error) {
	if len(req.Content) == 0 {
		return ir.Digest{}, malformed("content must be provided")
	}
	if req.Signer == nil {
		return ir.Digest{}, malformed("a signing key must be provided")
	}
	if err := registry.ValidateFields(req.Title, req.URL); err != nil {
		return ir.Digest{}, &Error{Code: ErrCodeMalformedInput, Message: "invalid article fields", Err: err}
	}
	digest := ir.HashContent(req.Content)
	if _, err := issuance.UnitMetadata(req.Title, digest); err != nil {
		return ir.Digest{}, &Error{Code: ErrCodeMalformedInput, Message: "invalid unit metadata", Err: err}
	}
	return digest, nil
}

// Register publishes req across the issuance and registry ledgers.
//
// Steps run strictly in order and each is finalized before the next. A
// failure after the first finalized write is returned as a
// *PartialWriteError whose Checkpoint can be passed to Resume.
func (o *Orchestrator) Register(ctx context.Context, req Request) (ir.RegistrationReceipt, error) {
	flow := o.flows.Generate()
	digest, err := o.validate(req)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.FlowToken = flow
		}
		return ir.RegistrationReceipt{}, err
	}

	publisher := req.Signer.Address()
	logger := o.logger.With("flow", flow, "publisher", publisher)
	logger.Info("registration started", "content_hash", digest.String(), "title", req.Title)

	release, err := o.guard.Acquire(publisher, flow)
	if err != nil {
		logger.Warn("registration rejected", "error", err)
		return ir.RegistrationReceipt{}, err
	}
	defer release()

	return o.register(ctx, logger, flow, req, digest)
}

// register runs the write steps of Register. The caller holds the guard
// for the publisher.
func (o *Orchestrator) register(ctx context.Context, logger *slog.Logger, flow string, req Request, digest ir.Digest) (ir.RegistrationReceipt, error) {
	publisher := req.Signer.Address()
	existing, err := o.registrar.LookupByHash(ctx, digest)
	if err != nil {
		return ir.RegistrationReceipt{}, ledgerError(ledger.Registry, flow, "check existing article", err)
	}
	if existing != nil {
		logger.Warn("content already registered", "container", existing.ContainerID, "unit", existing.UnitID)
		return ir.RegistrationReceipt{}, &Error{
			Code:      ErrCodeSubmissionFailed,
			Message:   fmt.Sprintf("content %s is recorded for unit %s", digest, existing.Unit()),
			Ledger:    ledger.Registry,
			FlowToken: flow,
			Err:       ErrAlreadyRegistered,
		}
	}

	container, err := o.issuer.EnsureContainer(ctx, req.Signer)
	if err != nil {
		var pe *issuance.PartialError
		if errors.As(err, &pe) {
			logger.Error("container label failed", "container", pe.Unit.ContainerID, "phase", pe.Phase, "error", err)
			return ir.RegistrationReceipt{}, &PartialWriteError{
				FlowToken:        flow,
				Phase:            pe.Phase,
				ContainerID:      pe.Unit.ContainerID,
				ContainerCreated: true,
				Err:              pe.Err,
			}
		}
		return ir.RegistrationReceipt{}, ledgerError(ledger.Issuance, flow, "ensure container", err)
	}
	logger = logger.With("container", container.ContainerID)
	if container.Phase == ir.PhaseContainerNew {
		logger.Warn("container has no label; continuing", "phase", container.Phase)
	}
	logger.Info("container ready", "created", container.Created)

	minted, err := o.issuer.MintUnit(ctx, req.Signer, container.ContainerID, req.Title, digest)
	if err != nil {
		var pe *issuance.PartialError
		if errors.As(err, &pe) {
			logger.Error("unit metadata failed", "unit", pe.Unit.UnitID, "phase", pe.Phase, "error", err)
			return ir.RegistrationReceipt{}, &PartialWriteError{
				FlowToken:        flow,
				Phase:            pe.Phase,
				ContainerID:      pe.Unit.ContainerID,
				UnitID:           pe.Unit.UnitID,
				HasUnit:          true,
				ContainerCreated: container.Created,
				Err:              pe.Err,
			}
		}
		return ir.RegistrationReceipt{}, ledgerError(ledger.Issuance, flow, "mint unit", err)
	}
	logger = logger.With("unit", minted.Unit.UnitID)
	logger.Info("unit minted", "block", minted.Receipt.BlockNumber)

	receipt, err := o.bind(ctx, logger, req, digest, minted.Unit)
	if err != nil {
		return ir.RegistrationReceipt{}, &PartialWriteError{
			FlowToken:        flow,
			Phase:            ir.PhaseUnitDone,
			ContainerID:      minted.Unit.ContainerID,
			UnitID:           minted.Unit.UnitID,
			HasUnit:          true,
			ContainerCreated: container.Created,
			Err:              err,
		}
	}
	out := o.receipt(flow, publisher, digest, minted.Unit, receipt)
	out.ContainerCreated = container.Created
	logger.Info("registration complete", "article_id", out.ArticleID, "block", out.BlockNumber)
	return out, nil
}

// Resume finishes a registration stopped at cp. Only the missing writes are
// submitted. req must carry the same content, title and signer as the
// stopped registration.
func (o *Orchestrator) Resume(ctx context.Context, req Request, cp Checkpoint) (ir.RegistrationReceipt, error) {
	flow := o.flows.Generate()
	digest, err := o.validate(req)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.FlowToken = flow
		}
		return ir.RegistrationReceipt{}, err
	}
	publisher := req.Signer.Address()
	logger := o.logger.With("flow", flow, "publisher", publisher, "container", cp.ContainerID, "phase", cp.Phase)

	release, err := o.guard.Acquire(publisher, flow)
	if err != nil {
		return ir.RegistrationReceipt{}, err
	}
	defer release()

	switch cp.Phase {
	case ir.PhaseContainerNew:
		if err := o.issuer.ResumeContainerLabel(ctx, req.Signer, cp.ContainerID); err != nil {
			return ir.RegistrationReceipt{}, ledgerError(ledger.Issuance, flow, "label container", err)
		}
		logger.Info("container label resumed")
		return o.register(ctx, o.logger.With("flow", flow, "publisher", publisher), flow, req, digest)

	case ir.PhaseUnitMinted, ir.PhaseUnitDone:
		unit := ir.IssuanceUnit{ContainerID: cp.ContainerID, UnitID: cp.UnitID}
		logger = logger.With("unit", unit.UnitID)
		owner, found, err := o.issuer.UnitOwner(ctx, unit)
		if err != nil {
			return ir.RegistrationReceipt{}, ledgerError(ledger.Issuance, flow, "read unit owner", err)
		}
		if !found {
			return ir.RegistrationReceipt{}, &Error{
				Code: ErrCodeNotFound, Message: fmt.Sprintf("unit %s does not exist", unit),
				Ledger: ledger.Issuance, FlowToken: flow, Err: issuance.ErrUnitNotFound,
			}
		}
		if owner != publisher {
			return ir.RegistrationReceipt{}, malformed("unit %s is owned by %s, not %s", unit, owner, publisher)
		}
		if cp.Phase == ir.PhaseUnitMinted {
			if err := o.issuer.ResumeUnitMetadata(ctx, req.Signer, unit, req.Title, digest); err != nil {
				return ir.RegistrationReceipt{}, &PartialWriteError{
					FlowToken: flow, Phase: ir.PhaseUnitMinted,
					ContainerID: unit.ContainerID, UnitID: unit.UnitID, HasUnit: true, Err: err,
				}
			}
			logger.Info("unit metadata resumed")
		}
		receipt, err := o.bind(ctx, logger, req, digest, unit)
		if err != nil {
			return ir.RegistrationReceipt{}, &PartialWriteError{
				FlowToken: flow, Phase: ir.PhaseUnitDone,
				ContainerID: unit.ContainerID, UnitID: unit.UnitID, HasUnit: true, Err: err,
			}
		}
		out := o.receipt(flow, publisher, digest, unit, receipt)
		logger.Info("registration complete", "article_id", out.ArticleID, "block", out.BlockNumber)
		return out, nil

	default:
		return ir.RegistrationReceipt{}, malformed("cannot resume from phase %q", cp.Phase)
	}
}

// bind signs the binding payload and records the article.
func (o *Orchestrator) bind(ctx context.Context, logger *slog.Logger, req Request, digest ir.Digest, unit ir.IssuanceUnit) (ledger.Receipt, error) {
	sig, err := req.Signer.Sign(ir.SigningPayload(digest))
	if err != nil {
		logger.Error("binding signature failed", "error", err)
		return ledger.Receipt{}, fmt.Errorf("sign binding payload: %w", err)
	}
	receipt, err := o.registrar.Register(ctx, req.Signer, registry.Registration{
		ContentHash: digest.String(),
		Unit:        unit,
		Title:       req.Title,
		URL:         req.URL,
		Signature:   sig,
		WordCount:   WordCount(req.Content),
	})
	if err != nil {
		logger.Error("article record failed", "error", err)
		return ledger.Receipt{}, ledgerError(ledger.Registry, "", "record article", err)
	}
	logger.Info("article recorded", "block", receipt.BlockNumber, "tx", receipt.TxHash)
	return receipt, nil
}

func (o *Orchestrator) receipt(flow string, publisher ir.Address, digest ir.Digest, unit ir.IssuanceUnit, r ledger.Receipt) ir.RegistrationReceipt {
	out := ir.RegistrationReceipt{
		ContainerID: unit.ContainerID,
		UnitID:      unit.UnitID,
		ContentHash: digest,
		ArticleID:   ir.ArticleID(digest),
		TxHash:      r.TxHash,
		BlockNumber: r.BlockNumber,
		Publisher:   publisher,
		FlowToken:   flow,
	}
	if c, err := digest.CID(); err == nil {
		out.ContentCID = c.String()
	}
	return out
}
