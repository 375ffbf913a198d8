package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVIPTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := SignVIPToken("secret", "vip-key-1", time.Hour, now)
	if err != nil {
		t.Fatalf("SignVIPToken: %v", err)
	}
	claims, err := VerifyVIPToken("secret", token)
	if err != nil {
		t.Fatalf("VerifyVIPToken: %v", err)
	}
	if claims.Subject != "vip-key-1" || claims.Tier != "vip" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyVIPTokenRejects(t *testing.T) {
	now := time.Now()
	expired, err := SignVIPToken("secret", "s", time.Minute, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("SignVIPToken: %v", err)
	}
	valid, err := SignVIPToken("secret", "s", time.Hour, now)
	if err != nil {
		t.Fatalf("SignVIPToken: %v", err)
	}
	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"expired", "secret", expired},
		{"wrong secret", "other", valid},
		{"garbage", "secret", "not-a-token"},
		{"empty", "secret", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifyVIPToken(tc.secret, tc.token)
			if !errors.Is(err, ErrInvalidVIPToken) {
				t.Fatalf("expected ErrInvalidVIPToken, got %v", err)
			}
		})
	}
}

func TestSignVIPTokenNeedsSecret(t *testing.T) {
	if _, err := SignVIPToken("", "s", time.Hour, time.Now()); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestVIPSessionMiddleware(t *testing.T) {
	token, err := SignVIPToken("secret", "s", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignVIPToken: %v", err)
	}
	var sawVIP bool
	h := VIPSession("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawVIP = VIPFromContext(r.Context())
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantVIP  bool
	}{
		{"no header passes", "", http.StatusOK, false},
		{"valid bearer", "Bearer " + token, http.StatusOK, true},
		{"bad scheme", "Basic abc", http.StatusUnauthorized, false},
		{"bad token", "Bearer nope", http.StatusUnauthorized, false},
		{"lowercase scheme", "bearer " + token, http.StatusOK, true},
		{"empty credentials", "Bearer ", http.StatusUnauthorized, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sawVIP = false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if sawVIP != tc.wantVIP {
				t.Fatalf("vip in context = %v, want %v", sawVIP, tc.wantVIP)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		token, ok := BearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Fatalf("BearerToken(%q) = %q, %v; want %q, %v", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}
