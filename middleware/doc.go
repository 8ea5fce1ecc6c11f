// Package middleware adapts taskAuth.Engine to net/http handlers.
//
// [Authenticate] resolves the bearer token into a taskAuth.Principal and stores it
// in the request context. [RequireUser] and [RequireTask] read a chi URL parameter
// and run the matching Engine guard before the handler. [WriteError] renders any
// Engine error as a JSON body with the status its outcome maps to.
//
// This package makes no decisions of its own. Tokens are parsed and access is
// decided by the Engine.
package middleware
