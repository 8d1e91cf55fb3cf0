// internal/handlers/guest.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pavilionlive/auctioneer/internal/auth"
)

const authCookieName = "auction_token"

// EnsureGuestID returns a stable guest identity for the request. A
// valid session cookie yields the existing ID; anything else mints a
// fresh guest ID, signs it, and sets the cookie. No account storage
// backs this: the signed ID itself is the identity, which is what lets
// a dropped client rejoin a room as the same participant.
func EnsureGuestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	cookieHeader := r.Header.Get("Cookie")
	if strings.Contains(cookieHeader, authCookieName+"=") {
		token := extractCookieToken(cookieHeader, authCookieName)
		guestIDStr, err := auth.AuthenticateJWT(token)
		if err == nil {
			guestID, parseErr := uuid.Parse(guestIDStr)
			if parseErr == nil {
				return guestID, nil
			}
		}
		// Bad or stale token: fall through and reissue.
	}

	guestID := uuid.New()
	newToken, err := auth.CreateJWT(guestID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create guest JWT: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    newToken,
		HttpOnly: true,
		Path:     "/",
	})
	return guestID, nil
}

// extractCookieToken pulls a named cookie value out of a raw Cookie
// header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}
