// Package api contains the HTTP handlers for the service's REST surface.
package api
