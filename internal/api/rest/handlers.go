package rest

import (
	"encoding/csv"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
	"github.com/complyvault/evidence-ledger-backend/internal/service/gateway"
	"github.com/complyvault/evidence-ledger-backend/internal/service/registry"
	"github.com/complyvault/evidence-ledger-backend/internal/service/sweeper"
)

// Handler serves the ledger's HTTP surface.
type Handler struct {
	gateway  *gateway.Service
	registry *registry.Service
	sweeper  *sweeper.Service
	evidence evidence.Repository
	validate *validator.Validate
}

// NewHandler creates the REST handler.
func NewHandler(gw *gateway.Service, reg *registry.Service, sw *sweeper.Service, evidenceRepo evidence.Repository) *Handler {
	return &Handler{
		gateway:  gw,
		registry: reg,
		sweeper:  sw,
		evidence: evidenceRepo,
		validate: validator.New(),
	}
}

// handleSubmitCommand is the system's only mutation entry point.
func (h *Handler) handleSubmitCommand(w http.ResponseWriter, r *http.Request) {
	var req submitCommandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCommandRejection(w, errors.NewValidationError(errors.CodeValidationError,
			"malformed request body").WithCause(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeCommandRejection(w, errors.NewValidationError(errors.CodeValidationError,
			err.Error()))
		return
	}

	cmd := &evidence.Command{
		CommandID:   req.CommandID,
		CommandType: evidence.CommandType(req.CommandType),
		TenantID:    req.TenantID,
		EvidenceID:  req.EvidenceID,
		ActorID:     req.ActorID,
		ActorRole:   req.ActorRole,
		IssuedAt:    req.IssuedAt,
		Payload:     req.Payload,
	}

	result, err := h.gateway.Submit(r.Context(), cmd)
	if err != nil {
		writeCommandRejection(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{
		Accepted:       true,
		ResultingState: string(result.ResultingState),
		Idempotent:     result.Idempotent,
		EventID:        result.EventID,
	})
}

// handleCreateContract is the contract declaration endpoint. A contract must
// exist before any evidence for its (tenant, entity_type) can be submitted.
func (h *Handler) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errors.NewValidationError(errors.CodeValidationError,
			"malformed request body").WithCause(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, errors.NewValidationError(errors.CodeValidationError, err.Error()))
		return
	}

	c, err := h.registry.CreateContract(r.Context(), registry.CreateContractInput{
		ContractID:        req.ContractID,
		TenantID:          req.TenantID,
		EntityType:        contract.EntityType(req.EntityType),
		IngestionPath:     req.IngestionPath,
		AuthorityType:     contract.AuthorityType(req.AuthorityType),
		DataScope:         req.DataScope,
		RegulatoryContext: req.RegulatoryContext,
		CreatedBy:         req.CreatedBy,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleRegisterEvidence records an upload as RAW evidence under a contract.
func (h *Handler) handleRegisterEvidence(w http.ResponseWriter, r *http.Request) {
	var req registerEvidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errors.NewValidationError(errors.CodeValidationError,
			"malformed request body").WithCause(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, errors.NewValidationError(errors.CodeValidationError, err.Error()))
		return
	}

	ev, err := h.registry.RegisterEvidence(r.Context(), registry.RegisterEvidenceInput{
		EvidenceID: req.EvidenceID,
		TenantID:   req.TenantID,
		ContractID: req.ContractID,
		Declared: evidence.DeclaredContext{
			EntityType:  contract.EntityType(req.EntityType),
			IntendedUse: req.IntendedUse,
			SourceRole:  req.SourceRole,
		},
		FileHash: req.FileHash,
		Fixture:  req.Fixture,
		ActorID:  req.ActorID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

// handleStatus serves the latest run summaries for operator dashboards.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"gateway": h.gateway.Summary(),
		"sweeper": h.sweeper.LastReport(),
	})
}

// handleSweeperRun triggers an on-demand sweep.
func (h *Handler) handleSweeperRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleQuarantineExport streams the quarantine set as CSV for externally
// tracked deviations. A reporting view, not a mutation path.
func (h *Handler) handleQuarantineExport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.evidence.ListQuarantined(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="quarantine_export.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"id", "area", "title", "risk_level", "status", "owner", "target_release"})
	for _, ev := range rows {
		cw.Write([]string{
			ev.ID,
			string(ev.Declared.EntityType),
			exportTitle(ev),
			riskLevel(ev.QuarantineReason),
			"open",
			ev.TenantID,
			"",
		})
	}
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func exportTitle(ev *evidence.Evidence) string {
	if ev.Classification != nil && ev.Classification.EvidenceType != "" {
		return ev.Classification.EvidenceType
	}
	return "unclassified " + string(ev.Declared.EntityType) + " evidence"
}

func riskLevel(reason string) string {
	switch reason {
	case sweeper.ReasonContractInactive:
		return "high"
	case sweeper.ReasonFixtureRetention:
		return "medium"
	default:
		return "low"
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeCommandRejection maps a gateway rejection onto the command envelope.
func writeCommandRejection(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternalError("command processing failed").WithCause(err)
	}

	writeJSON(w, appErr.StatusCode, commandResponse{
		Accepted:     false,
		ErrorCode:    appErr.Code,
		Detail:       appErr.Message,
		ErrorDetails: appErr.Details,
	})
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternalError("request failed").WithCause(err)
	}

	writeJSON(w, appErr.StatusCode, errorResponse{
		ErrorCode: appErr.Code,
		Detail:    appErr.Message,
		Details:   appErr.Details,
	})
}
