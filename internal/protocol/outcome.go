package protocol

import (
	"fmt"

	"github.com/dmitrijs2005/doorlock/internal/common"
)

// Outcome is the accept/reject result of one verification exchange.
type Outcome int

const (
	Accepted Outcome = iota + 1
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// OutcomeOf classifies a response opcode. Both controllers derive their
// lockout state from this one function, so a given response always moves
// the two failure counters the same way.
func OutcomeOf(op Opcode) (Outcome, error) {
	switch op {
	case VerifySuccess, ChangeAccepted:
		return Accepted, nil
	case VerifyFailure, ChangeRejected:
		return Rejected, nil
	}
	return 0, fmt.Errorf("%w: %s carries no outcome", common.ErrUnexpectedOpcode, op)
}

// ResponseFor is the inverse of OutcomeOf for a given request.
func ResponseFor(req Opcode, outcome Outcome) (Opcode, error) {
	switch req {
	case OpenRequest:
		if outcome == Accepted {
			return VerifySuccess, nil
		}
		return VerifyFailure, nil
	case ChangeRequest:
		if outcome == Accepted {
			return ChangeAccepted, nil
		}
		return ChangeRejected, nil
	}
	return 0, fmt.Errorf("%w: %s has no response", common.ErrUnexpectedOpcode, req)
}
