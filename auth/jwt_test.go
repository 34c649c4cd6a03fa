package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)

	token, err := issuer.Issue("room-1", "player-1")
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "room-1", claims.RoomID)
	assert.Equal(t, "player-1", claims.PlayerID)
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)
	other, err := NewIssuer("other", time.Minute)
	require.NoError(t, err)
	expired, err := NewIssuer("secret", -time.Minute)
	require.NoError(t, err)

	foreign, err := other.Issue("r", "p")
	require.NoError(t, err)
	_, err = issuer.Validate(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	old, err := expired.Issue("r", "p")
	require.NoError(t, err)
	_, err = issuer.Validate(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("", time.Minute)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestResumeMiddleware(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)
	token, err := issuer.Issue("room-1", "player-1")
	require.NoError(t, err)

	var got *Claims
	handler := ResumeMiddleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
	}))

	cases := []struct {
		name   string
		target string
		header string
		want   bool
	}{
		{"query token", "/ws?token=" + token, "", true},
		{"bearer header", "/ws", "Bearer " + token, true},
		{"no token", "/ws", "", false},
		{"bad token", "/ws?token=junk", "", false},
		{"bad header", "/ws", "Basic abc", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tc.want {
				require.NotNil(t, got)
				assert.Equal(t, "player-1", got.PlayerID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
