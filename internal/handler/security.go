package handler

import (
	"net/http"
	"strings"

	"github.com/xenking/teashop/internal/domain/auth"
)

// identity resolves the request's bearer token to an authenticated identity.
// It returns nil when no valid token is attached; callers that require
// authentication treat nil as auth.ErrUnauthenticated. Credential
// verification itself lives in the external auth service; by the time a
// token reaches us it either maps to a login session or it does not.
func (h *Handler) identity(r *http.Request) *auth.Identity {
	token := bearerToken(r)
	if token == "" {
		return nil
	}
	ident, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		return nil
	}
	return ident
}

func bearerToken(r *http.Request) string {
	v := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return v[len(prefix):]
	}
	return ""
}
