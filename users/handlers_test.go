package users_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/messagely-go/auth"
	"github.com/user/messagely-go/users"
)

func routerAs(svc *users.UserService, username string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.NewContextWithUsername(req.Context(), username)))
		})
	})
	users.NewUserHandlers(svc).RegisterRoutes(r)
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandlers_List(t *testing.T) {
	svc, _ := newService(t)
	rec := get(routerAs(svc, "carol"), "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp users.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Users, 3)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
	assert.NotContains(t, rec.Body.String(), "join_at")
}

func TestHandlers_Profile(t *testing.T) {
	svc, _ := newService(t)
	alice := routerAs(svc, "alice")

	rec := get(alice, "/alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp users.ProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Username)
	assert.True(t, strings.Contains(rec.Body.String(), `"last_login_at"`))
	assert.NotContains(t, rec.Body.String(), "secret-hash")

	assert.Equal(t, http.StatusUnauthorized, get(alice, "/bob").Code)
}

func TestHandlers_Mailbox(t *testing.T) {
	svc, _ := newService(t)
	bob := routerAs(svc, "bob")

	rec := get(bob, "/bob/to")
	require.Equal(t, http.StatusOK, rec.Code)
	var in users.InboxResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))
	assert.Len(t, in.Messages, 2)

	rec = get(bob, "/bob/from")
	require.Equal(t, http.StatusOK, rec.Code)
	var out users.SentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "alice", out.Messages[0].ToUser.Username)

	assert.Equal(t, http.StatusUnauthorized, get(bob, "/alice/to").Code)
	assert.Equal(t, http.StatusUnauthorized, get(bob, "/alice/from").Code)
}
