// Package policy decides whether a principal may perform an action on a
// resource. Services call it before touching the ledger or the conversation
// store instead of checking roles inline.
package policy

import (
	"github.com/Dias221467/connections-chat/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const RoleAdmin = "admin"

// Principal is the authenticated caller supplied by the identity provider.
type Principal struct {
	ID   primitive.ObjectID
	Role string
}

type Action string

const (
	ActionRespondToRequest  Action = "connection:respond"
	ActionReadConversation  Action = "conversation:read"
	ActionWriteConversation Action = "conversation:write"
	ActionSubscribe         Action = "conversation:subscribe"
	ActionReconcileCounters Action = "admin:reconcile"
)

// Resource carries the ownership facts a decision needs.
type Resource struct {
	ReceiverID   primitive.ObjectID
	Participants []primitive.ObjectID
}

type Authorizer interface {
	Authorize(p Principal, action Action, res Resource) error
}

// Default is the rule set of the service.
type Default struct{}

func (Default) Authorize(p Principal, action Action, res Resource) error {
	if p.ID.IsZero() {
		return apperrors.Unauthorized("missing principal")
	}

	switch action {
	case ActionRespondToRequest:
		if p.ID != res.ReceiverID {
			return apperrors.Forbidden("only the receiver can respond to a connection request")
		}
	case ActionReadConversation, ActionWriteConversation, ActionSubscribe:
		for _, id := range res.Participants {
			if id == p.ID {
				return nil
			}
		}
		return apperrors.Forbidden("not a participant of this conversation")
	case ActionReconcileCounters:
		if p.Role != RoleAdmin {
			return apperrors.Forbidden("admin role required")
		}
	default:
		return apperrors.Forbidden("unknown action")
	}
	return nil
}
