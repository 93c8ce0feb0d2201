// Package authenticator names the gate the router puts in front of protected routes.
package authenticator

import "net/http"

// Authenticator rejects unauthenticated requests and attaches the caller's identity
// to the request context of those it lets through.
type Authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}
