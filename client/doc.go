// Package client holds the caller side of the session token lifecycle.
//
// [Tokens] persists an access/refresh pair in a [Storage] and [Transport]
// attaches the access token to outgoing requests, refreshing it once when the
// server answers 401.
package client
