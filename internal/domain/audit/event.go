// Package audit defines append-only audit events written alongside the
// mutations they document.
package audit

import (
	"encoding/json"
	"time"

	"orgadmin/internal/core/id"
)

// Action names recorded by the services.
const (
	ActionMembershipApprove  = "membership.approve"
	ActionMembershipBlock    = "membership.block"
	ActionInvitationCreate   = "invitation.create"
	ActionInvitationRevoke   = "invitation.revoke"
	ActionInvitationAccept   = "invitation.accept"
	ActionOrganizationUpdate = "organization.update"
)

// Event is a single audit record to be written. Zero ActorOrgID, empty
// TargetTable, TargetPK and nil Metadata are stored as NULL.
type Event struct {
	ActorUserID id.ID
	ActorOrgID  id.ID
	Action      string
	TargetTable string
	TargetPK    string
	Metadata    map[string]any
}

// Entry is a stored audit record.
type Entry struct {
	ID          id.ID           `db:"id" json:"id"`
	ActorUserID id.ID           `db:"actor_user_id" json:"actorUserId"`
	ActorOrgID  *id.ID          `db:"actor_org_id" json:"actorOrgId,omitempty"`
	Action      string          `db:"action" json:"action"`
	TargetTable *string         `db:"target_table" json:"targetTable,omitempty"`
	TargetPK    *string         `db:"target_pk" json:"targetPk,omitempty"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}
