package evidence

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/contract"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
	"github.com/complyvault/evidence-ledger-backend/internal/domain/values"
)

func testEvidence(t *testing.T, state State) *Evidence {
	t.Helper()
	ev, err := NewEvidence("E1", "T1", "C1", DeclaredContext{
		EntityType:  contract.EntitySupplier,
		IntendedUse: "emissions_reporting",
		SourceRole:  "supplier_admin",
	}, values.MustNewFileHash(strings.Repeat("a", 64)))
	require.NoError(t, err)
	ev.State = state
	return ev
}

func classifyCmd() *Command {
	return &Command{
		CommandID:   "X1",
		CommandType: CommandClassifyEvidence,
		TenantID:    "T1",
		EvidenceID:  "E1",
		ActorID:     "user-1",
		ActorRole:   "compliance_officer",
		Payload: json.RawMessage(`{
			"evidence_type": "utility_bill",
			"claimed_scope": "scope2",
			"claimed_frameworks": ["GHG Protocol"],
			"classifier_role": "compliance_officer",
			"confidence": 0.92
		}`),
	}
}

func structuringCmd() *Command {
	return &Command{
		CommandID:   "S1",
		CommandType: CommandApproveStructuring,
		TenantID:    "T1",
		EvidenceID:  "E1",
		ActorID:     "user-2",
		ActorRole:   "compliance_manager",
		Payload: json.RawMessage(`{
			"schema_type": "emissions_report",
			"schema_version": "1.0",
			"extracted_fields": {"total_kwh": 1200},
			"extraction_source": "human"
		}`),
	}
}

func TestApplyTransition_LegalEdges(t *testing.T) {
	ev := testEvidence(t, StateRaw)

	state, err := ev.ApplyTransition(classifyCmd())
	require.NoError(t, err)
	assert.Equal(t, StateClassified, state)
	require.NotNil(t, ev.Classification)
	assert.Equal(t, "utility_bill", ev.Classification.EvidenceType)
	assert.InDelta(t, 0.92, ev.Classification.Confidence, 1e-9)

	state, err = ev.ApplyTransition(structuringCmd())
	require.NoError(t, err)
	assert.Equal(t, StateStructured, state)
	require.NotNil(t, ev.Structuring)
	assert.Equal(t, SourceHuman, ev.Structuring.ExtractionSource)
}

func TestApplyTransition_IllegalEdges(t *testing.T) {
	tests := []struct {
		name  string
		state State
		cmd   *Command
	}{
		{"skip raw to structured", StateRaw, structuringCmd()},
		{"reclassify classified", StateClassified, classifyCmd()},
		{"downgrade structured", StateStructured, classifyCmd()},
		{"restructure structured", StateStructured, structuringCmd()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := testEvidence(t, tt.state)
			before := ev.State

			_, err := ev.ApplyTransition(tt.cmd)
			require.Error(t, err)
			assert.Equal(t, errors.CodeStateTransitionViolation, errors.CodeOf(err))

			// Rejection leaves the record untouched.
			assert.Equal(t, before, ev.State)
			assert.Nil(t, ev.Classification)
			assert.Nil(t, ev.Structuring)
		})
	}
}

func TestApplyTransition_QuarantinedIsClosed(t *testing.T) {
	ev := testEvidence(t, StateRaw)
	ev.MarkQuarantined("fixture_retention_expired", time.Now())

	_, err := ev.ApplyTransition(classifyCmd())
	require.Error(t, err)
	assert.Equal(t, errors.CodeStateTransitionViolation, errors.CodeOf(err))
	assert.Equal(t, StateQuarantined, ev.EffectiveState())
	assert.Equal(t, StateRaw, ev.State, "underlying state is preserved under quarantine")
}

func TestApplyTransition_UnquarantineDrivesNoEdge(t *testing.T) {
	ev := testEvidence(t, StateRaw)

	cmd := classifyCmd()
	cmd.CommandType = CommandUnquarantineEvidence
	_, err := ev.ApplyTransition(cmd)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStateTransitionViolation, errors.CodeOf(err))
}

func TestApplyTransition_MalformedPayloadRejected(t *testing.T) {
	ev := testEvidence(t, StateRaw)

	cmd := classifyCmd()
	cmd.Payload = json.RawMessage(`{"confidence": 1.4, "classifier_role": "x", "evidence_type": "y"}`)
	_, err := ev.ApplyTransition(cmd)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
	assert.Equal(t, StateRaw, ev.State)
}

func TestTransitionFor(t *testing.T) {
	from, to, ok := TransitionFor(CommandClassifyEvidence)
	require.True(t, ok)
	assert.Equal(t, StateRaw, from)
	assert.Equal(t, StateClassified, to)

	from, to, ok = TransitionFor(CommandApproveStructuring)
	require.True(t, ok)
	assert.Equal(t, StateClassified, from)
	assert.Equal(t, StateStructured, to)

	_, _, ok = TransitionFor(CommandUnquarantineEvidence)
	assert.False(t, ok)
}

func TestMarkQuarantined_Idempotent(t *testing.T) {
	ev := testEvidence(t, StateClassified)

	first := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	ev.MarkQuarantined("contract_inactive", first)
	ev.MarkQuarantined("fixture_retention_expired", first.Add(time.Hour))

	assert.Equal(t, "contract_inactive", ev.QuarantineReason)
	require.NotNil(t, ev.QuarantinedAt)
	assert.Equal(t, first, *ev.QuarantinedAt)
}

func TestClone_IsDeep(t *testing.T) {
	ev := testEvidence(t, StateStructured)
	ev.Classification = &Classification{
		EvidenceType:      "utility_bill",
		ClaimedFrameworks: []string{"GHG Protocol"},
	}
	ev.Structuring = &Structuring{
		SchemaType:      "emissions_report",
		ExtractedFields: map[string]any{"total_kwh": 1200.0},
	}

	clone := ev.Clone()
	clone.Classification.ClaimedFrameworks[0] = "mutated"
	clone.Structuring.ExtractedFields["total_kwh"] = 0.0

	assert.Equal(t, "GHG Protocol", ev.Classification.ClaimedFrameworks[0])
	assert.Equal(t, 1200.0, ev.Structuring.ExtractedFields["total_kwh"])
}
