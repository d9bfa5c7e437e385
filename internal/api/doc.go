// Package api exposes the task tracker over HTTP. Handlers read the caller
// from the token claims, delegate to the services and translate domain errors
// into status codes with messages safe to show to users.
package api
