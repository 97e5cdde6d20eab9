package proxy

import (
	"encoding/base64"
	"net/http"
)

const (
	// HeaderProxyAuthorization carries the credentials answering a proxy challenge.
	HeaderProxyAuthorization = "Proxy-Authorization"
	// MaxAuthAttempts bounds how many prior failed attempts an authenticator will answer.
	MaxAuthAttempts = 3
)

// Credentials is an encoded Proxy-Authorization value, scheme included.
type Credentials string

// BasicCredentials encodes username and password with the Basic scheme.
func BasicCredentials(username, password string) Credentials {
	return Credentials("Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password)))
}

// Route describes the connection being attempted when a challenge arrives.
type Route struct {
	Proxy *Descriptor
	// Target is the host:port the request is headed for.
	Target string
}

// Attempt is one failed response in the history of a single logical request.
// Prior points at the attempt whose retry produced this one; the first failure has a nil Prior.
// Attempts are built by the transport and never mutated.
type Attempt struct {
	Response *http.Response
	Prior    *Attempt
}

// Next records resp as a failure that followed a.
func (a *Attempt) Next(resp *http.Response) *Attempt {
	return &Attempt{Response: resp, Prior: a}
}

// PriorCount returns how many failures preceded this one.
func (a *Attempt) PriorCount() int {
	if a == nil {
		return 0
	}
	n := 0
	for p := a.Prior; p != nil; p = p.Prior {
		n++
	}
	return n
}

// Request returns the request that produced this attempt's response.
func (a *Attempt) Request() *http.Request {
	if a == nil || a.Response == nil {
		return nil
	}
	return a.Response.Request
}

// Authenticator answers proxy authentication challenges. It returns the request to
// retry with, or nil to give up and let the challenge reach the caller.
// Implementations must be safe for concurrent use.
type Authenticator interface {
	Authenticate(route Route, failed *Attempt) *http.Request
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(route Route, failed *Attempt) *http.Request

// Authenticate calls f(route, failed).
func (f AuthenticatorFunc) Authenticate(route Route, failed *Attempt) *http.Request {
	return f(route, failed)
}

type credentialsAuthenticator struct {
	credentials Credentials
}

// NewAuthenticator returns an Authenticator that answers challenges with credentials.
// It gives up when the rejected request already carried these credentials, or once
// MaxAuthAttempts failures precede the current one.
func NewAuthenticator(credentials Credentials) Authenticator {
	return &credentialsAuthenticator{credentials: credentials}
}

func (a *credentialsAuthenticator) Authenticate(_ Route, failed *Attempt) *http.Request {
	req := failed.Request()
	if req == nil {
		return nil
	}
	return a.authenticate(req, failed.PriorCount())
}

func (a *credentialsAuthenticator) authenticate(failed *http.Request, priorCount int) *http.Request {
	if failed.Header.Get(HeaderProxyAuthorization) == string(a.credentials) {
		return nil
	}
	if priorCount >= MaxAuthAttempts {
		return nil
	}

	next := failed.Clone(failed.Context())
	if next.Header == nil {
		next.Header = make(http.Header)
	}
	next.Header.Set(HeaderProxyAuthorization, string(a.credentials))
	return next
}
