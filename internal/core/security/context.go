// Package security holds the request security context that is pushed into
// PostgreSQL session variables, and the role/status/MFA gate.
package security

import (
	"orgadmin/internal/core/id"
)

// Session variable names read by the row-level security policies.
const (
	KeyUserID             = "app.user_id"
	KeyExternalUserID     = "app.external_user_id"
	KeyExternalEmail      = "app.external_email"
	KeyOrganizationID     = "app.org_id"
	KeyOrganizationRole   = "app.org_role"
	KeyOrganizationStatus = "app.org_status"
	KeyMFA                = "app.mfa"
)

// SettingCount is the number of session variables set on every transaction.
const SettingCount = 7

// Keys lists every session variable in the order Settings emits them.
var Keys = [SettingCount]string{
	KeyUserID,
	KeyExternalUserID,
	KeyExternalEmail,
	KeyOrganizationID,
	KeyOrganizationRole,
	KeyOrganizationStatus,
	KeyMFA,
}

// Unset is written for every absent field. Policies read settings through
// NULLIF(current_setting(key, true), '') so it behaves as NULL.
const Unset = ""

// MFA flag values.
const (
	MFAOn  = "on"
	MFAOff = "off"
)

// Context is the identity bundle applied to a transaction. Zero values mean
// absent; MFASatisfied defaults to false.
type Context struct {
	UserID             id.ID
	ExternalUserID     string
	ExternalEmail      string
	OrganizationID     id.ID
	OrganizationRole   Role
	OrganizationStatus Status
	MFASatisfied       bool
}

// Setting is one session variable assignment.
type Setting struct {
	Key   string
	Value string
}

// Settings returns an assignment for every key, absent fields included.
// Unknown roles and statuses are written as Unset.
func (c Context) Settings() [SettingCount]Setting {
	role := Unset
	if c.OrganizationRole.Valid() {
		role = string(c.OrganizationRole)
	}
	status := Unset
	if c.OrganizationStatus.Valid() {
		status = string(c.OrganizationStatus)
	}
	mfa := MFAOff
	if c.MFASatisfied {
		mfa = MFAOn
	}

	return [SettingCount]Setting{
		{Key: KeyUserID, Value: id.String(c.UserID)},
		{Key: KeyExternalUserID, Value: c.ExternalUserID},
		{Key: KeyExternalEmail, Value: c.ExternalEmail},
		{Key: KeyOrganizationID, Value: id.String(c.OrganizationID)},
		{Key: KeyOrganizationRole, Value: role},
		{Key: KeyOrganizationStatus, Value: status},
		{Key: KeyMFA, Value: mfa},
	}
}

// HasOrganization reports whether an organization id is set.
func (c Context) HasOrganization() bool {
	return !id.IsNil(c.OrganizationID)
}
