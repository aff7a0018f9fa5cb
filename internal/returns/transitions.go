package returns

import (
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

var transitions = map[enums.ReturnRequestStatus]map[enums.ReturnAction]enums.ReturnRequestStatus{
	enums.ReturnRequestStatusPending: {
		enums.ReturnActionApprove: enums.ReturnRequestStatusApproved,
		enums.ReturnActionReject:  enums.ReturnRequestStatusRejected,
	},
	enums.ReturnRequestStatusApproved: {
		enums.ReturnActionComplete: enums.ReturnRequestStatusCompleted,
		enums.ReturnActionReject:   enums.ReturnRequestStatusRejected,
	},
}

// NextStatus resolves the status an action moves a request to. Any pair not
// in the table is an InvalidTransition error naming both sides.
func NextStatus(current enums.ReturnRequestStatus, action enums.ReturnAction) (enums.ReturnRequestStatus, error) {
	if next, ok := transitions[current][action]; ok {
		return next, nil
	}
	return "", pkgerrors.New(
		pkgerrors.CodeInvalidTransition,
		"cannot "+action.String()+" a request in status "+current.String(),
	).WithDetails(map[string]any{
		"from":   current,
		"action": action,
	})
}

// isReversal reports whether the transition undoes an earlier approval.
func isReversal(from enums.ReturnRequestStatus, action enums.ReturnAction) bool {
	return from == enums.ReturnRequestStatusApproved && action == enums.ReturnActionReject
}
