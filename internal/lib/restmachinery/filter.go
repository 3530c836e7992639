package restmachinery

import "net/http"

// Filter is an interface for any component that can decorate an
// http.HandlerFunc with additional behavior, for instance authentication.
type Filter interface {
	// Decorate returns an http.HandlerFunc that wraps the provided
	// http.HandlerFunc with additional behavior.
	Decorate(http.HandlerFunc) http.HandlerFunc
}
