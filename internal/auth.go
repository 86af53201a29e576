package internal

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/dghubble/oauth1"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

// AuthMode selects the authorization scheme of a Job.
type AuthMode int

const (
	// AuthAuto uses whichever scheme the session carries.
	AuthAuto AuthMode = iota
	// AuthBearer requires the app-only bearer token.
	AuthBearer
	// AuthUser requires OAuth1 user-context credentials.
	AuthUser
)

// OAuth1Credentials is the four-part user-context credential set.
type OAuth1Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// Complete reports whether all four parts are present.
func (c *OAuth1Credentials) Complete() bool {
	return c != nil && c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// Authenticator produces Authorization header values. A session carries either
// a bearer token or OAuth1 credentials, never both.
type Authenticator struct {
	bearer string
	oauth  *OAuth1Credentials

	mu       sync.RWMutex
	username string
}

// NewBearerAuthenticator returns an app-only authenticator.
func NewBearerAuthenticator(token string) *Authenticator {
	return &Authenticator{bearer: token}
}

// NewUserAuthenticator returns a user-context authenticator.
func NewUserAuthenticator(creds OAuth1Credentials) *Authenticator {
	return &Authenticator{oauth: &creds}
}

// UserContext reports whether the session signs requests on behalf of a user.
func (a *Authenticator) UserContext() bool {
	return a.oauth != nil
}

// Username returns the username resolved for user-context sessions.
func (a *Authenticator) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username
}

// SetUsername records the username the user-context credentials belong to.
func (a *Authenticator) SetUsername(name string) {
	a.mu.Lock()
	a.username = name
	a.mu.Unlock()
}

// BearerHeader returns "Bearer <token>".
func (a *Authenticator) BearerHeader() (string, error) {
	if a.bearer == "" {
		return "", &pkgerrs.MissingCredentialsError{Scheme: "bearer"}
	}
	return "Bearer " + a.bearer, nil
}

// SignedHeader computes the OAuth1 HMAC-SHA1 Authorization header for method and
// rawURL. Query parameters in rawURL take part in the signature. The nonce and
// timestamp are generated per call.
func (a *Authenticator) SignedHeader(method, rawURL string, creds *OAuth1Credentials) (string, error) {
	if !creds.Complete() {
		return "", &pkgerrs.MissingCredentialsError{Scheme: "oauth1"}
	}

	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request to sign: %w", err)
	}

	// oauth1 only exposes signing through its Transport, so the signed request
	// is captured before it would reach the network.
	capture := &headerCapture{}
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, &http.Client{Transport: capture})
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	client := config.Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessSecret))

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	resp.Body.Close()

	if capture.header == "" {
		return "", fmt.Errorf("sign request: no authorization header produced")
	}
	return capture.header, nil
}

// Authorize sets the Authorization header of req according to mode.
func (a *Authenticator) Authorize(req *http.Request, mode AuthMode) error {
	var (
		header string
		err    error
	)

	switch mode {
	case AuthBearer:
		header, err = a.BearerHeader()
	case AuthUser:
		header, err = a.SignedHeader(req.Method, req.URL.String(), a.oauth)
	default:
		if a.UserContext() {
			header, err = a.SignedHeader(req.Method, req.URL.String(), a.oauth)
		} else {
			header, err = a.BearerHeader()
		}
	}
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", header)
	return nil
}

type headerCapture struct {
	header string
}

func (h *headerCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	h.header = req.Header.Get("Authorization")
	return &http.Response{
		StatusCode: http.StatusNoContent,
		Status:     "204 No Content",
		Header:     make(http.Header),
		Body:       http.NoBody,
		Request:    req,
	}, nil
}
