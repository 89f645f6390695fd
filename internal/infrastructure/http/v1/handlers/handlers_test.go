package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/domain/audit"
	"orgadmin/internal/domain/invitation"
	"orgadmin/internal/domain/membership"
	"orgadmin/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMemberships struct {
	approved []id.ID
	result   membership.Result
	err      error
}

func (f *fakeMemberships) List(context.Context, *security.Principal) ([]membership.Membership, error) {
	return nil, f.err
}

func (f *fakeMemberships) Approve(_ context.Context, _ *security.Principal, target id.ID) (membership.Result, error) {
	f.approved = append(f.approved, target)
	return f.result, f.err
}

func (f *fakeMemberships) Block(context.Context, *security.Principal, id.ID) (membership.Result, error) {
	return f.result, f.err
}

type fakeInvitations struct {
	gotInput invitation.CreateInput
	gotToken string
}

func (f *fakeInvitations) Create(_ context.Context, _ *security.Principal, in invitation.CreateInput) (*invitation.Created, error) {
	f.gotInput = in
	return &invitation.Created{
		Invitation: &invitation.Invitation{ID: id.New(), Email: in.Email, Role: in.Role, TokenHash: "secret-hash"},
		Token:      "one-time-token",
	}, nil
}

func (f *fakeInvitations) List(context.Context, *security.Principal) ([]invitation.Invitation, error) {
	return []invitation.Invitation{{ID: id.New(), Email: "a@example.com"}}, nil
}

func (f *fakeInvitations) Revoke(context.Context, *security.Principal, id.ID) (membership.Result, error) {
	return membership.Result{}, nil
}

func (f *fakeInvitations) Accept(_ context.Context, _ *security.Principal, token string) (*membership.Membership, error) {
	f.gotToken = token
	return &membership.Membership{Role: security.RoleMember, Status: security.StatusApproved}, nil
}

type fakeAudit struct{ gotLimit int }

func (f *fakeAudit) List(_ context.Context, _ *security.Principal, limit int) ([]audit.Entry, error) {
	f.gotLimit = limit
	return nil, nil
}

func engineAs(p *security.Principal) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if p != nil {
			c.Request = c.Request.WithContext(security.WithPrincipal(c.Request.Context(), p))
		}
		c.Next()
	})
	return r
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func admin() *security.Principal {
	at := time.Now().Add(-time.Minute)
	return &security.Principal{
		UserID:        id.New(),
		Email:         "admin@example.com",
		MFAVerifiedAt: &at,
		Org:           &security.OrgContext{OrganizationID: id.New(), OrganizationName: "Acme", Role: security.RoleAdmin, Status: security.StatusApproved},
	}
}

func TestMembershipHandler_Approve(t *testing.T) {
	svc := &fakeMemberships{result: membership.Result{Updated: 1}}
	r := engineAs(admin())
	NewMembershipHandler(NewBaseHandler(), svc).RegisterRoutes(r.Group("/memberships"))

	target := id.New()
	w := do(r, http.MethodPost, "/memberships/"+target.String()+"/approve", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, w.Body.String())
	assert.Equal(t, []id.ID{target}, svc.approved)
}

func TestMembershipHandler_InvalidID(t *testing.T) {
	svc := &fakeMemberships{}
	r := engineAs(admin())
	NewMembershipHandler(NewBaseHandler(), svc).RegisterRoutes(r.Group("/memberships"))

	w := do(r, http.MethodPost, "/memberships/not-a-uuid/block", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.approved)
}

func TestMembershipHandler_ServiceError(t *testing.T) {
	svc := &fakeMemberships{err: apperror.NewForbidden("recent multi-factor verification required")}
	r := engineAs(admin())
	NewMembershipHandler(NewBaseHandler(), svc).RegisterRoutes(r.Group("/memberships"))

	w := do(r, http.MethodPost, "/memberships/"+id.New().String()+"/approve", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/memberships", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInvitationHandler_CreateHidesHash(t *testing.T) {
	svc := &fakeInvitations{}
	r := engineAs(admin())
	NewInvitationHandler(NewBaseHandler(), svc).RegisterRoutes(r.Group("/invitations"))

	w := do(r, http.MethodPost, "/invitations", `{"email":"new@example.com","role":"admin"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, invitation.CreateInput{Email: "new@example.com", Role: security.RoleAdmin}, svc.gotInput)
	assert.Contains(t, w.Body.String(), "one-time-token")
	assert.NotContains(t, w.Body.String(), "secret-hash")
}

func TestInvitationHandler_AcceptAndList(t *testing.T) {
	svc := &fakeInvitations{}
	r := engineAs(admin())
	NewInvitationHandler(NewBaseHandler(), svc).RegisterRoutes(r.Group("/invitations"))

	w := do(r, http.MethodPost, "/invitations/accept", `{"token":"tok"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tok", svc.gotToken)

	w = do(r, http.MethodPost, "/invitations/accept", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/invitations", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestAuditHandler_Limit(t *testing.T) {
	svc := &fakeAudit{}
	r := engineAs(admin())
	r.GET("/audit-events", NewAuditHandler(NewBaseHandler(), svc).List)

	w := do(r, http.MethodGet, "/audit-events?limit=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, svc.gotLimit)
	assert.JSONEq(t, `{"items":[],"count":0}`, w.Body.String())

	do(r, http.MethodGet, "/audit-events?limit=abc", "")
	assert.Zero(t, svc.gotLimit)
}

func TestMeHandler(t *testing.T) {
	p := admin()
	r := engineAs(p)
	r.GET("/me", NewMeHandler(NewBaseHandler(), security.NewGate(0)).Get)

	w := do(r, http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID       string `json:"userId"`
		MFAFresh     bool   `json:"mfaFresh"`
		Organization *struct {
			ID   string        `json:"id"`
			Role security.Role `json:"role"`
		} `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, p.UserID.String(), body.UserID)
	assert.True(t, body.MFAFresh)
	require.NotNil(t, body.Organization)
	assert.Equal(t, security.RoleAdmin, body.Organization.Role)
}

func TestMeHandler_NoOrganization(t *testing.T) {
	r := engineAs(&security.Principal{UserID: id.New()})
	r.GET("/me", NewMeHandler(NewBaseHandler(), security.NewGate(0)).Get)

	w := do(r, http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"organization":null`)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthHandler_Ready(t *testing.T) {
	r := gin.New()
	r.GET("/ok", NewHealthHandler(pinger{}).Ready)
	r.GET("/down", NewHealthHandler(pinger{err: context.DeadlineExceeded}).Ready)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", "").Code)
	w := do(r, http.MethodGet, "/down", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "deadline")
}
