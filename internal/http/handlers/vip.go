package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/i18n"
	"github.com/Knouxai/Knoux-versa-sub002/internal/middleware"
)

// VIPAuth exchanges a configured VIP key for a signed session token.
func (a *App) VIPAuth(w http.ResponseWriter, r *http.Request) {
	loc := a.localizer(r)
	var req domain.VIPAuthRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, domain.VIPAuthResponse{Error: "invalid payload"})
		return
	}
	key := strings.TrimSpace(req.VIPKey)
	if key == "" || !a.validVIPKey(key) {
		a.json(w, http.StatusUnauthorized, domain.VIPAuthResponse{Error: loc.Text(i18n.KeyInvalidVIPKey)})
		return
	}
	token, err := middleware.SignVIPToken(a.JWTSecret, keySubject(key), a.VIPTokenTTL, a.now())
	if err != nil {
		a.log(r).Error().Err(err).Msg("sign vip token failed")
		a.json(w, http.StatusInternalServerError, domain.VIPAuthResponse{Error: loc.Text(i18n.KeyGeneric)})
		return
	}
	a.json(w, http.StatusOK, domain.VIPAuthResponse{Success: true, SessionToken: token})
}

func (a *App) validVIPKey(key string) bool {
	ok := false
	for _, k := range a.VIPKeys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}

// The token subject identifies the key without exposing it.
func keySubject(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "vip:" + hex.EncodeToString(sum[:8])
}

// vipToken returns the verified session token of the request, taken from
// the payload or the Authorization header.
func (a *App) vipToken(r *http.Request, fromBody string) (string, bool, error) {
	token := strings.TrimSpace(fromBody)
	if token == "" {
		if _, ok := middleware.VIPFromContext(r.Context()); ok {
			token, _ = middleware.BearerToken(r.Header.Get("Authorization"))
		}
	}
	if token == "" {
		return "", false, nil
	}
	if _, err := middleware.VerifyVIPToken(a.JWTSecret, token); err != nil {
		return "", false, err
	}
	return token, true, nil
}
