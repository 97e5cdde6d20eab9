package proxy

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTargetURL = "http://cloud.example.com/ocs/v2.php/apps/spreed/api/v1/room"

func newChallenge(t *testing.T, header string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testTargetURL, http.NoBody)
	require.NoError(t, err)
	if header != "" {
		req.Header.Set(HeaderProxyAuthorization, header)
	}
	return &http.Response{StatusCode: http.StatusProxyAuthRequired, Request: req, Header: http.Header{}}
}

// chainOf builds an attempt whose failure is preceded by n earlier failures.
func chainOf(t *testing.T, n int, header string) *Attempt {
	t.Helper()
	var a *Attempt
	for range n {
		a = a.Next(newChallenge(t, ""))
	}
	return a.Next(newChallenge(t, header))
}

func TestBasicCredentials(t *testing.T) {
	assert.Equal(t, Credentials("Basic dTpw"), BasicCredentials("u", "p"))
	assert.Equal(t, Credentials("Basic YWxhZGRpbjpvcGVuc2VzYW1l"), BasicCredentials("aladdin", "opensesame"))
}

func TestAttemptPriorCount(t *testing.T) {
	var none *Attempt
	assert.Equal(t, 0, none.PriorCount())
	assert.Nil(t, none.Request())

	for n := range 5 {
		assert.Equal(t, n, chainOf(t, n, "").PriorCount())
	}
}

func TestAuthenticatorRetriesBelowBound(t *testing.T) {
	creds := BasicCredentials("u", "p")
	auth := NewAuthenticator(creds)

	for n := range MaxAuthAttempts {
		failed := chainOf(t, n, "")
		next := auth.Authenticate(Route{Target: "cloud.example.com:80"}, failed)
		require.NotNil(t, next, "prior chain of %d should be retried", n)

		assert.Equal(t, string(creds), next.Header.Get(HeaderProxyAuthorization))
		assert.Equal(t, failed.Request().URL.String(), next.URL.String())
		assert.Equal(t, failed.Request().Method, next.Method)
		assert.Empty(t, failed.Request().Header.Get(HeaderProxyAuthorization), "failed request must not be mutated")
	}
}

func TestAuthenticatorGivesUpAtBound(t *testing.T) {
	auth := NewAuthenticator(BasicCredentials("u", "p"))

	for _, n := range []int{3, 4, 10} {
		assert.Nil(t, auth.Authenticate(Route{}, chainOf(t, n, "")), "prior chain of %d should not be retried", n)
	}
}

func TestAuthenticatorRejectsRepeatedCredentials(t *testing.T) {
	creds := BasicCredentials("u", "p")
	auth := NewAuthenticator(creds)

	for n := range 3 {
		assert.Nil(t, auth.Authenticate(Route{}, chainOf(t, n, string(creds))))
	}
}

func TestAuthenticatorReplacesDifferentCredentials(t *testing.T) {
	creds := BasicCredentials("u", "p")
	auth := NewAuthenticator(creds)

	next := auth.Authenticate(Route{}, chainOf(t, 0, string(BasicCredentials("old", "pass"))))
	require.NotNil(t, next)

	assert.Equal(t, []string{string(creds)}, next.Header.Values(HeaderProxyAuthorization))
}

func TestAuthenticatorKeepsBody(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, testTargetURL, strings.NewReader("message=hi"))
	require.NoError(t, err)
	resp := &http.Response{StatusCode: http.StatusProxyAuthRequired, Request: req}

	next := NewAuthenticator(BasicCredentials("u", "p")).Authenticate(Route{}, (*Attempt)(nil).Next(resp))
	require.NotNil(t, next)

	assert.Equal(t, http.MethodPost, next.Method)
	require.NotNil(t, next.GetBody)
	body, err := next.GetBody()
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "message=hi", string(data))
}

func TestAuthenticatorWithoutRequest(t *testing.T) {
	auth := NewAuthenticator(BasicCredentials("u", "p"))

	assert.Nil(t, auth.Authenticate(Route{}, nil))
	assert.Nil(t, auth.Authenticate(Route{}, &Attempt{Response: &http.Response{StatusCode: http.StatusProxyAuthRequired}}))
}

func TestAuthenticatorConcurrentUse(t *testing.T) {
	creds := BasicCredentials("u", "p")
	auth := NewAuthenticator(creds)

	chains := make([]*Attempt, 5)
	for n := range chains {
		chains[n] = chainOf(t, n, "")
	}

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			next := auth.Authenticate(Route{}, chains[n%5])
			if n%5 < MaxAuthAttempts {
				assert.Equal(t, string(creds), next.Header.Get(HeaderProxyAuthorization))
			} else {
				assert.Nil(t, next)
			}
		}(i)
	}
	wg.Wait()
}

func TestAuthenticatorFunc(t *testing.T) {
	called := false
	var auth Authenticator = AuthenticatorFunc(func(_ Route, _ *Attempt) *http.Request {
		called = true
		return nil
	})

	assert.Nil(t, auth.Authenticate(Route{}, nil))
	assert.True(t, called)
}
