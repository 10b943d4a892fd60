package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/pokerdealer/dealerd/internal/auth"
)

const sessionCookie = "auth_token"

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
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

// EnsureIdentity resolves who the caller is, in order of preference:
// an existing session cookie, signed Telegram init data from the
// X-Telegram-Init-Data header, or a freshly minted guest. New identities
// get a session cookie so later calls from the same client resolve to the
// same player id. Must run before any WebSocket upgrade, since it may set
// headers.
func EnsureIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, error) {
	if token := extractCookieToken(r.Header.Get("Cookie"), sessionCookie); token != "" {
		if id, err := auth.AuthenticateSession(token); err == nil {
			return id, nil
		}
		// Expired or garbage token: fall through and issue a new identity.
	}

	var id auth.Identity
	if initData := r.Header.Get("X-Telegram-Init-Data"); initData != "" {
		verified, err := auth.VerifyTelegramInitData(initData, os.Getenv("TELEGRAM_BOT_TOKEN"))
		if err != nil {
			return auth.Identity{}, err
		}
		id = verified
	} else {
		id = auth.NewGuest()
	}

	token, err := auth.CreateSession(id)
	if err != nil {
		return auth.Identity{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return id, nil
}
