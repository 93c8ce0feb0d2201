package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

var testSecret = []byte("test-secret")

func TestTokenServiceRoundTrip(t *testing.T) {
	tokens := NewTokenService(testSecret, time.Hour)

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenServiceRejects(t *testing.T) {
	tokens := NewTokenService(testSecret, time.Hour)
	valid, err := tokens.Issue("user-1")
	require.NoError(t, err)

	expired, err := NewTokenService(testSecret, -time.Minute).Issue("user-1")
	require.NoError(t, err)

	foreign, err := NewTokenService([]byte("other-secret"), time.Hour).Issue("user-1")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{User: ClaimsUser{ID: "user-1"}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := tokens.Issue("")
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	testCases := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: expired},
		{name: "signed with another key", token: foreign},
		{name: "none algorithm", token: noneAlg},
		{name: "tampered payload", token: tampered},
		{name: "empty subject", token: noSubject},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			userID, err := tokens.Verify(testCase.token)
			assert.ErrorIs(t, err, models.ErrInvalidToken)
			assert.Empty(t, userID)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	again, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "every hash should use its own salt")

	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
}

func TestAuthenticateUser(t *testing.T) {
	tokens := NewTokenService(testSecret, time.Hour)
	valid, err := tokens.Issue("user-1")
	require.NoError(t, err)
	expired, err := NewTokenService(testSecret, -time.Minute).Issue("user-1")
	require.NoError(t, err)

	var seenUserID string
	handler := New(tokens).AuthenticateUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	type tExpectedResponse struct {
		code   int
		body   string
		userID string
	}
	type tTestCase struct {
		name             string
		token            string
		expectedResponse tExpectedResponse
	}
	testCases := []tTestCase{
		{
			name:  "valid token",
			token: valid,
			expectedResponse: tExpectedResponse{
				code:   http.StatusNoContent,
				userID: "user-1",
			},
		},
		{
			name: "missing token",
			expectedResponse: tExpectedResponse{
				code: http.StatusUnauthorized,
				body: `{"msg":"No token, authorisation denied"}`,
			},
		},
		{
			name:  "expired token",
			token: expired,
			expectedResponse: tExpectedResponse{
				code: http.StatusUnauthorized,
				body: `{"msg":"Token is invalid"}`,
			},
		},
		{
			name:  "malformed token",
			token: "abc.def.ghi",
			expectedResponse: tExpectedResponse{
				code: http.StatusUnauthorized,
				body: `{"msg":"Token is invalid"}`,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			seenUserID = ""
			request := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
			if testCase.token != "" {
				request.Header.Set(TokenHeader, testCase.token)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expectedResponse.code, recorder.Code)
			if testCase.expectedResponse.body != "" {
				assert.JSONEq(t, testCase.expectedResponse.body, recorder.Body.String())
			}
			assert.Equal(t, testCase.expectedResponse.userID, seenUserID)
		})
	}
}
