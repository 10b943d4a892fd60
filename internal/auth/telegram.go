// internal/auth/telegram.go
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// VerifyTelegramInitData validates the signed init data a Telegram Mini App
// receives on launch and extracts the user identity from it.
//
// Per Telegram's contract: the data-check string is every key=value pair
// except "hash", sorted by key and joined with newlines; the secret key is
// HMAC-SHA256 of the bot token keyed by the literal "WebAppData"; the data
// is authentic iff HMAC-SHA256(dataCheckString, secretKey) equals "hash".
func VerifyTelegramInitData(initData, botToken string) (Identity, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return Identity{}, fmt.Errorf("parse init data: %w", err)
	}
	gotHash := values.Get("hash")
	if gotHash == "" {
		return Identity{}, fmt.Errorf("init data has no hash")
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return Identity{}, fmt.Errorf("init data hash mismatch")
	}

	return identityFromInitUser(values.Get("user"))
}

// telegramUser is the subset of Telegram's WebAppUser the room service needs.
type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

func identityFromInitUser(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, fmt.Errorf("init data has no user field")
	}
	var u telegramUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return Identity{}, fmt.Errorf("decode init data user: %w", err)
	}
	if u.ID == 0 {
		return Identity{}, fmt.Errorf("init data user has no id")
	}

	name := u.FirstName
	username := u.Username
	if username == "" {
		username = u.FirstName
	}
	return Identity{
		ID:       fmt.Sprintf("%d", u.ID),
		Name:     name,
		Username: username,
		Avatar:   u.PhotoURL,
	}, nil
}
