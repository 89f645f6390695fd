// Package orgcontext resolves which organization a request operates in.
package orgcontext

import (
	"cmp"
	"context"
	"slices"

	"github.com/samber/lo"

	"orgadmin/internal/core/apperror"
	appctx "orgadmin/internal/core/context"
	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/account"
	"orgadmin/internal/domain/membership"
	"orgadmin/pkg/logger"
)

// HintSource tells where a hint came from.
type HintSource string

const (
	HintNone   HintSource = ""
	HintHeader HintSource = "header"
	HintCookie HintSource = "cookie"
	HintQuery  HintSource = "query"
)

// Hint is an unverified organization id suggested by the client.
type Hint struct {
	OrganizationID id.ID
	Source         HintSource
}

// Present reports whether the hint names an organization.
func (h Hint) Present() bool {
	return !id.IsNil(h.OrganizationID)
}

// Result is the outcome of resolution.
type Result struct {
	Principal *security.Principal

	// HintToPersist is the organization the client should send next time,
	// or nil when the cookie it sent is already current.
	HintToPersist id.ID
}

// Resolver maps a verified identity and a hint to a Principal.
type Resolver struct {
	runner      tx.Runner
	users       account.Repository
	memberships membership.Repository
}

// NewResolver creates a new resolver.
func NewResolver(runner tx.Runner, users account.Repository, memberships membership.Repository) *Resolver {
	return &Resolver{runner: runner, users: users, memberships: memberships}
}

// Resolve looks up the caller's account and selects an organization.
// A user without memberships resolves to a Principal with nil Org.
func (r *Resolver) Resolve(ctx context.Context, identity *appctx.Identity, hint Hint) (*Result, error) {
	if identity == nil || identity.ExternalUserID == "" {
		return nil, apperror.NewUnauthenticated("authentication required")
	}

	user, err := tx.Run(ctx, r.runner, security.ExternalContext(identity),
		func(ctx context.Context, conn tx.Conn) (*account.User, error) {
			return r.users.GetByExternalID(ctx, conn, identity.ExternalUserID)
		})
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUserNotProvisioned(identity.ExternalUserID)
		}
		return nil, err
	}

	p := &security.Principal{
		UserID:         user.ID,
		ExternalUserID: identity.ExternalUserID,
		Email:          identity.Email,
		MFAVerifiedAt:  identity.MFAVerifiedAt,
	}

	memberships, err := tx.Run(ctx, r.runner, p.UserContext(),
		func(ctx context.Context, conn tx.Conn) ([]membership.Membership, error) {
			return r.memberships.ListForUser(ctx, conn, user.ID)
		})
	if err != nil {
		return nil, err
	}

	res := &Result{Principal: p}

	selected, ok := Select(memberships, hint.OrganizationID)
	if !ok {
		return res, nil
	}

	p.Org = &security.OrgContext{
		OrganizationID:   selected.OrganizationID,
		OrganizationName: selected.OrganizationName,
		Role:             selected.Role,
		Status:           selected.Status,
	}

	if hint.Present() && hint.OrganizationID != selected.OrganizationID {
		logger.Debug(ctx, "organization hint ignored",
			"hint_source", hint.Source,
			"hint_org_id", hint.OrganizationID)
	}
	if hint.Source != HintCookie || hint.OrganizationID != selected.OrganizationID {
		res.HintToPersist = selected.OrganizationID
	}

	return res, nil
}

// Select picks the membership for a request. A membership in the hinted
// organization wins regardless of its status. Otherwise approved
// memberships come first, then pending, then blocked, each ordered by
// organization name and id. The result depends only on the inputs.
func Select(memberships []membership.Membership, hint id.ID) (membership.Membership, bool) {
	if len(memberships) == 0 {
		return membership.Membership{}, false
	}

	if !id.IsNil(hint) {
		if m, ok := lo.Find(memberships, func(m membership.Membership) bool {
			return m.OrganizationID == hint
		}); ok {
			return m, true
		}
	}

	return slices.MinFunc(memberships, compareMemberships), true
}

func statusRank(s security.Status) int {
	switch s {
	case security.StatusApproved:
		return 0
	case security.StatusPending:
		return 1
	case security.StatusBlocked:
		return 2
	default:
		return 3
	}
}

func compareMemberships(a, b membership.Membership) int {
	return cmp.Or(
		cmp.Compare(statusRank(a.Status), statusRank(b.Status)),
		cmp.Compare(a.OrganizationName, b.OrganizationName),
		cmp.Compare(a.OrganizationID.String(), b.OrganizationID.String()),
	)
}
