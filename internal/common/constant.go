// Package common contains shared constants and small helpers used across
// dome components.
package common

// Header names attached to every outbound API request.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	AcceptLanguageHeader    = "Accept-Language"
	BearerScheme            = "Bearer"
)

// Keys of the local metadata store.
const (
	MetadataKeyToken    = "token"
	MetadataKeyEmail    = "email"
	MetadataKeyLanguage = "language"
)
