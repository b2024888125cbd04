package events

import (
	"fmt"
	"strings"

	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
)

// Phase is the third segment of an event name.
type Phase string

const (
	PhaseRequested Phase = "requested"
	PhaseValidated Phase = "validated"
	PhaseCompleted Phase = "completed"
	PhaseRejected  Phase = "rejected"
)

// Name is the decoded form of a `{family}.{action}.{phase}` event name.
// Everything downstream of the dispatch boundary works with this struct
// instead of re-splitting strings, so a malformed name fails exactly once.
type Name struct {
	Family string
	Action string
	Phase  Phase
}

func (n Name) String() string {
	return n.Family + "." + n.Action + "." + string(n.Phase)
}

// WithPhase returns the same family/action under a different phase.
func (n Name) WithPhase(p Phase) Name {
	n.Phase = p
	return n
}

// ParseName decodes an event name. It enforces the wire contract: exactly
// three non-empty dot-delimited segments with a known phase.
func ParseName(name string) (Name, error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return Name{}, fmt.Errorf("%w: event name %q must have 3 segments", pkgerrors.ErrValidation, name)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Name{}, fmt.Errorf("%w: event name %q has an empty segment", pkgerrors.ErrValidation, name)
		}
	}
	phase := Phase(parts[2])
	switch phase {
	case PhaseRequested, PhaseValidated, PhaseCompleted, PhaseRejected:
	default:
		return Name{}, fmt.Errorf("%w: event name %q has unknown phase %q", pkgerrors.ErrValidation, name, parts[2])
	}
	return Name{Family: parts[0], Action: parts[1], Phase: phase}, nil
}
