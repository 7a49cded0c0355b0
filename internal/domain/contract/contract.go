package contract

import (
	"time"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
)

// Status is the lifecycle status of an ingestion contract.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusRetired   Status = "RETIRED"
)

// AuthorityType describes the evidentiary weight a contract grants.
type AuthorityType string

const (
	AuthorityDeclarative AuthorityType = "declarative"
	AuthoritySupporting  AuthorityType = "supporting"
	AuthorityEstimated   AuthorityType = "estimated"
)

// EntityType enumerates the supply-chain entities evidence can describe.
type EntityType string

const (
	EntitySupplier EntityType = "supplier"
	EntityFacility EntityType = "facility"
	EntityProduct  EntityType = "product"
	EntityShipment EntityType = "shipment"
)

// IngestionContract grants a tenant the right to ingest evidence of one
// entity type. Once ACTIVE, every field except EvidenceCount is immutable;
// contract creation is the only way that right is ever granted.
type IngestionContract struct {
	ContractID        string        `json:"contract_id"`
	TenantID          string        `json:"tenant_id"`
	EntityType        EntityType    `json:"entity_type"`
	IngestionPath     string        `json:"ingestion_path"`
	AuthorityType     AuthorityType `json:"authority_type"`
	IsAuthoritative   bool          `json:"is_authoritative"`
	DataScope         string        `json:"data_scope"`
	RegulatoryContext string        `json:"regulatory_context"`
	Status            Status        `json:"status"`
	CreatedBy         string        `json:"created_by"`
	CreatedAt         time.Time     `json:"created_at"`

	// EvidenceCount is the only field that may change after activation.
	EvidenceCount int64 `json:"evidence_count"`
}

// NewIngestionContract creates an ACTIVE contract with validation. Following
// repo convention, all field validation lives in the domain constructor.
func NewIngestionContract(contractID, tenantID string, entityType EntityType, ingestionPath string, authorityType AuthorityType, dataScope, regulatoryContext, createdBy string) (*IngestionContract, error) {
	if contractID == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"contract_id is required")
	}
	if tenantID == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"tenant_id is required")
	}
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}
	if ingestionPath == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"ingestion_path is required")
	}
	if err := validateAuthorityType(authorityType); err != nil {
		return nil, err
	}
	if regulatoryContext == "" {
		return nil, errors.NewValidationError(errors.CodeValidationError,
			"regulatory_context is required")
	}

	return &IngestionContract{
		ContractID:        contractID,
		TenantID:          tenantID,
		EntityType:        entityType,
		IngestionPath:     ingestionPath,
		AuthorityType:     authorityType,
		IsAuthoritative:   authorityType == AuthorityDeclarative,
		DataScope:         dataScope,
		RegulatoryContext: regulatoryContext,
		Status:            StatusActive,
		CreatedBy:         createdBy,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// IsActive reports whether the contract currently authorizes ingestion.
func (c *IngestionContract) IsActive() bool {
	return c.Status == StatusActive
}

func validateEntityType(t EntityType) error {
	switch t {
	case EntitySupplier, EntityFacility, EntityProduct, EntityShipment:
		return nil
	case "":
		return errors.NewValidationError(errors.CodeValidationError,
			"entity_type is required")
	default:
		return errors.NewValidationError(errors.CodeValidationError,
			"unknown entity_type: "+string(t))
	}
}

func validateAuthorityType(t AuthorityType) error {
	switch t {
	case AuthorityDeclarative, AuthoritySupporting, AuthorityEstimated:
		return nil
	case "":
		return errors.NewValidationError(errors.CodeValidationError,
			"authority_type is required")
	default:
		return errors.NewValidationError(errors.CodeValidationError,
			"unknown authority_type: "+string(t))
	}
}
