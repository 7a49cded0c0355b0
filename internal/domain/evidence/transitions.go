package evidence

import (
	"fmt"
	"time"

	"github.com/complyvault/evidence-ledger-backend/internal/domain/errors"
)

// transition is a legal edge in the lifecycle graph.
type transition struct {
	from State
	to   State
}

// The legal edges are exactly these two. Everything else, including skip and
// downgrade attempts, is a STATE_TRANSITION_VIOLATION.
var transitions = map[CommandType]transition{
	CommandClassifyEvidence:   {from: StateRaw, to: StateClassified},
	CommandApproveStructuring: {from: StateClassified, to: StateStructured},
}

// TransitionFor returns the edge a command type drives, if any.
func TransitionFor(ct CommandType) (from, to State, ok bool) {
	t, ok := transitions[ct]
	return t.from, t.to, ok
}

// ApplyTransition validates the command against the evidence's current state
// and, when legal, applies it in place. On any rejection the evidence is left
// untouched. The ACTIVE-contract precondition is checked by the gateway
// before this is called.
func (e *Evidence) ApplyTransition(cmd *Command) (State, error) {
	if e.Quarantined {
		return "", errors.NewStateTransitionError(
			fmt.Sprintf("evidence %s is quarantined and closed to mutation", e.ID))
	}

	t, ok := transitions[cmd.CommandType]
	if !ok {
		return "", errors.NewStateTransitionError(
			fmt.Sprintf("command type %s drives no lifecycle transition", cmd.CommandType))
	}
	if e.State != t.from {
		return "", errors.NewStateTransitionError(
			fmt.Sprintf("%s requires state %s but evidence %s is %s",
				cmd.CommandType, t.from, e.ID, e.State))
	}

	switch cmd.CommandType {
	case CommandClassifyEvidence:
		p, err := cmd.DecodeClassifyPayload()
		if err != nil {
			return "", err
		}
		e.Classification = &Classification{
			EvidenceType:      p.EvidenceType,
			ClaimedScope:      p.ClaimedScope,
			ClaimedFrameworks: p.ClaimedFrameworks,
			ClassifierRole:    p.ClassifierRole,
			Confidence:        p.Confidence,
		}
	case CommandApproveStructuring:
		p, err := cmd.DecodeStructuringPayload()
		if err != nil {
			return "", err
		}
		e.Structuring = &Structuring{
			SchemaType:       p.SchemaType,
			SchemaVersion:    p.SchemaVersion,
			ExtractedFields:  p.ExtractedFields,
			ExtractionSource: p.ExtractionSource,
			ApproverRole:     p.ApproverRole,
		}
	}

	e.State = t.to
	e.UpdatedAt = time.Now().UTC()
	return e.State, nil
}
