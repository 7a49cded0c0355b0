package gateway

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/ledger"
	"github.com/complyvault/evidence-ledger-backend/internal/idempotency"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/telemetry"
)

// Result is the response to an accepted command.
type Result struct {
	CommandID      string         `json:"command_id"`
	EvidenceID     string         `json:"evidence_id"`
	ResultingState evidence.State `json:"resulting_state"`
	Idempotent     bool           `json:"idempotent"`
	EventID        string         `json:"event_id,omitempty"`
	AppliedAt      time.Time      `json:"applied_at"`
}

// Service is the command gateway: the single mutation entry point. Every
// command passes, in fixed order, the idempotency check, tenant check,
// authorization and AI-safety check, contract-active check, and the state
// machine, before the ledger append and idempotency commit. All checks pass
// before any persistent mutation occurs.
type Service struct {
	evidence  evidence.Repository
	contracts contract.Repository
	ledger    ledger.Repository
	idem      idempotency.Store

	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
	summary *summaryRecorder

	maxApplyRetries int
}

// New creates the gateway. metrics may be nil.
func New(evidenceRepo evidence.Repository, contracts contract.Repository, ledgerRepo ledger.Repository, idem idempotency.Store, logger *zap.Logger, metrics *telemetry.Metrics, maxApplyRetries int) *Service {
	if maxApplyRetries < 1 {
		maxApplyRetries = 1
	}
	return &Service{
		evidence:        evidenceRepo,
		contracts:       contracts,
		ledger:          ledgerRepo,
		idem:            idem,
		logger:          logger,
		tracer:          telemetry.Tracer(),
		metrics:         metrics,
		summary:         newSummaryRecorder(),
		maxApplyRetries: maxApplyRetries,
	}
}

// Submit processes one command. Rejections come back as *errors.AppError
// with a stable Code; callers branch on the code, never on message text.
// A rejected command never partially applies.
func (s *Service) Submit(ctx context.Context, cmd *evidence.Command) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "gateway.Submit")
	defer span.End()

	res, err := s.submit(ctx, cmd)

	outcome := "accepted"
	if err != nil {
		outcome = errors.CodeOf(err)
		if outcome == "" {
			outcome = "INTERNAL_ERROR"
		}
		s.summary.recordRejected(string(cmd.CommandType), outcome)
	} else {
		if res.Idempotent {
			outcome = "idempotent_replay"
		}
		s.summary.recordAccepted(string(cmd.CommandType), res.Idempotent)
	}

	span.SetAttributes(
		attribute.String("command.type", string(cmd.CommandType)),
		attribute.String("command.outcome", outcome),
	)
	if s.metrics != nil {
		s.metrics.CommandsTotal.WithLabelValues(string(cmd.CommandType), outcome).Inc()
		s.metrics.CommandDuration.Observe(time.Since(start).Seconds())
	}
	return res, err
}

func (s *Service) submit(ctx context.Context, cmd *evidence.Command) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	fp, err := cmd.Fingerprint()
	if err != nil {
		return nil, err
	}

	// Step 1: idempotency. Replays short-circuit before any other check;
	// their side effect was already applied on a prior call.
	check, err := s.idem.CheckOrReserve(ctx, cmd.TenantID, cmd.CommandID, fp.String())
	if err != nil {
		return nil, errors.NewInternalError("idempotency check failed").WithCause(err)
	}

	switch check.Status {
	case idempotency.StatusReplay:
		prev := check.Previous
		s.logger.Debug("idempotent replay",
			zap.String("command_id", cmd.CommandID),
			zap.String("tenant_id", cmd.TenantID))
		return &Result{
			CommandID:      cmd.CommandID,
			EvidenceID:     prev.EvidenceID,
			ResultingState: evidence.State(prev.ResultingState),
			Idempotent:     true,
			EventID:        prev.EventID,
			AppliedAt:      prev.AppliedAt,
		}, nil
	case idempotency.StatusConflict:
		existingID, priorState := "", ""
		if check.Previous != nil {
			existingID = check.Previous.EvidenceID
			priorState = check.Previous.ResultingState
		}
		return nil, errors.NewConflictingPayloadError(existingID, priorState)
	case idempotency.StatusInFlight:
		return nil, errors.NewCommandInFlightError(cmd.CommandID)
	case idempotency.StatusNew:
		// This caller owns the reservation.
	default:
		return nil, errors.NewInternalError("unknown idempotency status " + string(check.Status))
	}

	res, err := s.applyReserved(ctx, cmd, fp.String())
	if err != nil {
		// Rejections are non-mutating; free the reservation so a
		// corrected retry with the same command_id can run fresh.
		if relErr := s.idem.Release(ctx, cmd.TenantID, cmd.CommandID); relErr != nil {
			s.logger.Error("failed to release idempotency reservation",
				zap.String("command_id", cmd.CommandID),
				zap.Error(relErr))
		}
		return nil, err
	}
	return res, nil
}

// applyReserved runs steps 2-7 under an owned reservation. The read-check-
// apply sequence uses optimistic concurrency: on a version conflict the
// whole sequence re-runs against the fresh row.
func (s *Service) applyReserved(ctx context.Context, cmd *evidence.Command, fingerprint string) (*Result, error) {
	var (
		ev       *evidence.Evidence
		newState evidence.State
	)

	for attempt := 0; ; attempt++ {
		var err error
		ev, err = s.evidence.GetByID(ctx, cmd.EvidenceID)
		if err != nil {
			return nil, err
		}

		// Step 2: tenant match, unconditional and ahead of every state
		// check, so a cross-tenant probe learns nothing about the target.
		if cmd.TenantID != ev.TenantID {
			return nil, errors.NewTenantMismatchError()
		}

		// Step 3: role and AI-safety gates.
		if err := authorize(cmd); err != nil {
			return nil, err
		}

		// Step 4: the governing contract must still be ACTIVE.
		active, err := s.contracts.ActiveFor(ctx, ev.TenantID, ev.Declared.EntityType)
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, errors.NewContractInactiveError(ev.TenantID, string(ev.Declared.EntityType))
		}

		// Step 5: validate and apply the transition in memory, then
		// persist conditioned on the version we read.
		version := ev.Version
		newState, err = ev.ApplyTransition(cmd)
		if err != nil {
			return nil, err
		}

		err = s.evidence.Update(ctx, ev, version)
		if err == nil {
			break
		}
		if stderrors.Is(err, evidence.ErrVersionConflict) && attempt+1 < s.maxApplyRetries {
			s.logger.Debug("evidence version conflict, retrying",
				zap.String("evidence_id", cmd.EvidenceID),
				zap.Int("attempt", attempt+1))
			continue
		}
		return nil, err
	}

	// Step 6: ledger append.
	event, err := ledger.NewEvent(cmd, newState)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Append(ctx, event); err != nil {
		s.logger.Error("ledger append failed after state update",
			zap.String("command_id", cmd.CommandID),
			zap.Error(err))
		return nil, err
	}

	// Step 7: commit the result under the idempotency key.
	result := &Result{
		CommandID:      cmd.CommandID,
		EvidenceID:     ev.ID,
		ResultingState: newState,
		EventID:        event.EventID.String(),
		AppliedAt:      event.AppliedAt,
	}
	err = s.idem.Commit(ctx, cmd.TenantID, cmd.CommandID, idempotency.StoredResult{
		CommandID:      cmd.CommandID,
		Fingerprint:    fingerprint,
		EvidenceID:     ev.ID,
		ResultingState: string(newState),
		EventID:        result.EventID,
		AppliedAt:      result.AppliedAt,
	})
	if err != nil {
		// The mutation is applied and ledgered; a failed commit only
		// costs replay detection until the reservation expires.
		s.logger.Error("idempotency commit failed",
			zap.String("command_id", cmd.CommandID),
			zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.LedgerAppends.Inc()
	}
	s.logger.Info("command applied",
		zap.String("command_id", cmd.CommandID),
		zap.String("command_type", string(cmd.CommandType)),
		zap.String("tenant_id", cmd.TenantID),
		zap.String("evidence_id", ev.ID),
		zap.String("resulting_state", string(newState)))

	return result, nil
}

// Summary returns the running tally for the status endpoint.
func (s *Service) Summary() RunSummary {
	return s.summary.snapshot()
}
