// Package jwt signs and parses the HS256 access and refresh tokens handed
// out for a session. It validates issuer, audience and expiry but knows
// nothing about whether the session behind a token is still alive.
package jwt
