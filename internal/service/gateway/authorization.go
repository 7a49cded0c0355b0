package gateway

import (
	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/evidence"
)

// Actor roles known to the ledger.
const (
	RoleComplianceOfficer = "compliance_officer"
	RoleComplianceManager = "compliance_manager"
	RoleComplianceAdmin   = "compliance_admin"
	RoleDataSteward       = "data_steward"
	RoleServiceAccount    = "service_account"
)

// allowedRoles declares, per command type, who may issue it.
var allowedRoles = map[evidence.CommandType]map[string]struct{}{
	evidence.CommandClassifyEvidence: {
		RoleComplianceOfficer: {},
		RoleComplianceManager: {},
		RoleDataSteward:       {},
	},
	evidence.CommandApproveStructuring: {
		RoleComplianceOfficer: {},
		RoleComplianceManager: {},
	},
	evidence.CommandUnquarantineEvidence: {
		RoleComplianceAdmin: {},
	},
}

// humanApproverRoles is the set an AI-origin structuring command must name
// in approver_role. service_account is deliberately absent: an automated
// approver cannot satisfy the AI safety gate.
var humanApproverRoles = map[string]struct{}{
	RoleComplianceOfficer: {},
	RoleComplianceManager: {},
	RoleComplianceAdmin:   {},
	RoleDataSteward:       {},
}

// authorize enforces the role and AI-safety rules. The tenant check runs
// earlier in the gateway and is unconditional; this function assumes the
// command already targets its own tenant's evidence.
func authorize(cmd *evidence.Command) error {
	roles, ok := allowedRoles[cmd.CommandType]
	if !ok {
		return errors.NewValidationError(errors.CodeValidationError,
			"command type "+string(cmd.CommandType)+" has no role policy")
	}
	if _, ok := roles[cmd.ActorRole]; !ok {
		return errors.NewUnauthorizedRoleError(cmd.ActorRole, string(cmd.CommandType))
	}

	if cmd.CommandType != evidence.CommandApproveStructuring {
		return nil
	}

	p, err := cmd.DecodeStructuringPayload()
	if err != nil {
		return err
	}
	if p.ExtractionSource.IsHumanOrigin() {
		return nil
	}

	// The extraction_source label itself is untrusted AI provenance; what
	// the gate demands is an accountable human approver on record.
	if p.ApproverRole == "" {
		return errors.NewAISafetyViolationError(
			"structuring from " + string(p.ExtractionSource) + " requires a human approver_role")
	}
	if _, ok := humanApproverRoles[p.ApproverRole]; !ok {
		return errors.NewAISafetyViolationError(
			"approver_role " + p.ApproverRole + " is not a recognized human role")
	}
	return nil
}
