package internal

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

var testCreds = OAuth1Credentials{
	ConsumerKey:    "consumer-key",
	ConsumerSecret: "consumer-secret",
	AccessToken:    "access-token",
	AccessSecret:   "access-secret",
}

func TestAuthenticator_BearerHeader(t *testing.T) {
	header, err := NewBearerAuthenticator("AAAA").BearerHeader()
	require.NoError(t, err)
	assert.Equal(t, "Bearer AAAA", header)

	_, err = NewUserAuthenticator(testCreds).BearerHeader()
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrs.ErrMissingCredentials))

	var mcErr *pkgerrs.MissingCredentialsError
	require.ErrorAs(t, err, &mcErr)
	assert.Equal(t, "bearer", mcErr.Scheme)
}

func TestAuthenticator_SignedHeaderWellFormed(t *testing.T) {
	a := NewUserAuthenticator(testCreds)

	header, err := a.SignedHeader(http.MethodGet, "https://api.twitter.com/2/users/me?user.fields=created_at,description", &testCreds)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(header, "OAuth "), "header %q", header)
	for _, want := range []string{
		`oauth_consumer_key="consumer-key"`,
		`oauth_token="access-token"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_version="1.0"`,
		`oauth_nonce="`,
		`oauth_timestamp="`,
		`oauth_signature="`,
	} {
		assert.Contains(t, header, want)
	}
	assert.NotContains(t, header, "consumer-secret")
	assert.NotContains(t, header, "access-secret")
}

func TestAuthenticator_SignedHeaderNonceChanges(t *testing.T) {
	a := NewUserAuthenticator(testCreds)

	first, err := a.SignedHeader(http.MethodPost, "https://api.twitter.com/2/tweets", &testCreds)
	require.NoError(t, err)
	second, err := a.SignedHeader(http.MethodPost, "https://api.twitter.com/2/tweets", &testCreds)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "nonce must differ between calls")
}

func TestAuthenticator_SignedHeaderMissingCredentials(t *testing.T) {
	a := NewBearerAuthenticator("AAAA")

	tests := []struct {
		name  string
		creds *OAuth1Credentials
	}{
		{name: "nil credentials", creds: nil},
		{name: "missing access secret", creds: &OAuth1Credentials{ConsumerKey: "a", ConsumerSecret: "b", AccessToken: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.SignedHeader(http.MethodGet, "https://api.twitter.com/2/users/me", tt.creds)
			require.Error(t, err)
			assert.True(t, errors.Is(err, pkgerrs.ErrMissingCredentials))
		})
	}
}

func TestAuthenticator_Authorize(t *testing.T) {
	tests := []struct {
		name       string
		auth       *Authenticator
		mode       AuthMode
		wantPrefix string
		wantErr    bool
	}{
		{name: "auto bearer", auth: NewBearerAuthenticator("tok"), mode: AuthAuto, wantPrefix: "Bearer "},
		{name: "auto user", auth: NewUserAuthenticator(testCreds), mode: AuthAuto, wantPrefix: "OAuth "},
		{name: "explicit user on bearer session", auth: NewBearerAuthenticator("tok"), mode: AuthUser, wantErr: true},
		{name: "explicit bearer on user session", auth: NewUserAuthenticator(testCreds), mode: AuthBearer, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "https://api.twitter.com/2/tweets/20", nil)
			require.NoError(t, err)

			err = tt.auth.Authorize(req, tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, pkgerrs.ErrMissingCredentials))
				assert.Empty(t, req.Header.Get("Authorization"))
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), tt.wantPrefix))
		})
	}
}

func TestAuthenticator_Username(t *testing.T) {
	a := NewUserAuthenticator(testCreds)
	assert.True(t, a.UserContext())
	assert.Empty(t, a.Username())

	a.SetUsername("TwitterDev")
	assert.Equal(t, "TwitterDev", a.Username())
	assert.False(t, NewBearerAuthenticator("x").UserContext())
}
