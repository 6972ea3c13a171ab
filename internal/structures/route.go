package structures

import "net/http"

// Route is one command endpoint. Method is enforced by Handler itself.
type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}
