// Package httpapi serves the authcore session lifecycle over HTTP.
//
// Routes:
//
//	POST /users/login     {"login","password"}; sets the refresh cookie
//	POST /users/refresh   rotates the refresh cookie
//	POST /users/logout    optional bearer token plus cookie; 204
//	POST /users/password  bearer token plus {"oldPassword","newPassword","confirmPassword"}
//	GET  /users/me        bearer access token; echoes the authenticated identity
//	GET  /healthz         200 when Redis answers
//	GET  /metrics         optional, when Options.Metrics is set
//
// Errors are written as {"status":<code>,"message":<text>} with the status
// chosen by [StatusFor]. The refresh token never appears in a response body.
package httpapi
