package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIngestionContract(t *testing.T) {
	c, err := NewIngestionContract("C1", "T1", EntitySupplier, "uploads/t1",
		AuthorityDeclarative, "scope2", "CSRD", "admin")
	require.NoError(t, err)

	assert.Equal(t, StatusActive, c.Status)
	assert.True(t, c.IsActive())
	assert.True(t, c.IsAuthoritative, "declarative authority is authoritative")
	assert.Zero(t, c.EvidenceCount)

	supporting, err := NewIngestionContract("C2", "T1", EntityFacility, "uploads/t1",
		AuthoritySupporting, "", "EUDR", "admin")
	require.NoError(t, err)
	assert.False(t, supporting.IsAuthoritative)
}

func TestNewIngestionContract_Validation(t *testing.T) {
	tests := []struct {
		name          string
		contractID    string
		tenantID      string
		entityType    EntityType
		ingestionPath string
		authority     AuthorityType
		regContext    string
	}{
		{"missing contract_id", "", "T1", EntitySupplier, "p", AuthorityDeclarative, "CSRD"},
		{"missing tenant_id", "C1", "", EntitySupplier, "p", AuthorityDeclarative, "CSRD"},
		{"missing entity_type", "C1", "T1", "", "p", AuthorityDeclarative, "CSRD"},
		{"unknown entity_type", "C1", "T1", "warehouse", "p", AuthorityDeclarative, "CSRD"},
		{"missing ingestion_path", "C1", "T1", EntitySupplier, "", AuthorityDeclarative, "CSRD"},
		{"missing authority_type", "C1", "T1", EntitySupplier, "p", "", "CSRD"},
		{"unknown authority_type", "C1", "T1", EntitySupplier, "p", "absolute", "CSRD"},
		{"missing regulatory_context", "C1", "T1", EntitySupplier, "p", AuthorityDeclarative, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIngestionContract(tt.contractID, tt.tenantID, tt.entityType,
				tt.ingestionPath, tt.authority, "scope2", tt.regContext, "admin")
			require.Error(t, err)
		})
	}
}

func TestIsActive(t *testing.T) {
	c := &IngestionContract{Status: StatusActive}
	assert.True(t, c.IsActive())

	c.Status = StatusSuspended
	assert.False(t, c.IsActive())

	c.Status = StatusRetired
	assert.False(t, c.IsActive())
}
