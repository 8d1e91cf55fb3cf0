// internal/handlers/guest_test.go
package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavilionlive/auctioneer/internal/auth"
)

func TestEnsureGuestIDMintsAndReusesIdentity(t *testing.T) {
	auth.Init("never")

	// First visit: no cookie, a guest identity is minted and set.
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	first, err := EnsureGuestID(w, r)
	require.NoError(t, err)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, authCookieName, cookies[0].Name)

	// Second visit with the cookie: same identity, no reissue.
	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r2.AddCookie(cookies[0])
	second, err := EnsureGuestID(w2, r2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Empty(t, w2.Result().Cookies())
}

func TestEnsureGuestIDReissuesOnBadToken(t *testing.T) {
	auth.Init("never")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: authCookieName, Value: "garbage"})

	id, err := EnsureGuestID(w, r)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, w.Result().Cookies(), 1, "bad tokens get replaced, not rejected")
}

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc", extractCookieToken("auction_token=abc", authCookieName))
	assert.Equal(t, "abc", extractCookieToken("other=x; auction_token=abc; more=y", authCookieName))
	assert.Equal(t, "", extractCookieToken("other=x", authCookieName))
}
