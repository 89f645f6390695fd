package orghint

import (
	"net/http"
	"strings"

	"orgadmin/internal/core/id"
	"orgadmin/internal/domain/orgcontext"
)

// Request inputs carrying a hint.
const (
	HeaderName = "X-Organization-ID"
	QueryParam = "org_id"
)

// FromRequest returns the highest-precedence well-formed hint: header,
// then signed cookie, then (when allowQuery) query parameter. Malformed or
// tampered values are skipped.
func FromRequest(r *http.Request, codec *Codec, allowQuery bool) orgcontext.Hint {
	if v, ok := parseID(r.Header.Get(HeaderName)); ok {
		return orgcontext.Hint{OrganizationID: v, Source: orgcontext.HintHeader}
	}

	if codec != nil {
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			if v, err := codec.Decode(c.Value); err == nil {
				return orgcontext.Hint{OrganizationID: v, Source: orgcontext.HintCookie}
			}
		}
	}

	if allowQuery {
		if v, ok := parseID(r.URL.Query().Get(QueryParam)); ok {
			return orgcontext.Hint{OrganizationID: v, Source: orgcontext.HintQuery}
		}
	}

	return orgcontext.Hint{}
}

func parseID(s string) (id.ID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return id.ID{}, false
	}
	v, err := id.Parse(s)
	if err != nil || id.IsNil(v) {
		return id.ID{}, false
	}
	return v, true
}
