// Package middleware holds HTTP middleware shared by the API and dashboard servers.
package middleware

import "net/http"

type Middleware func(next http.Handler) http.Handler
