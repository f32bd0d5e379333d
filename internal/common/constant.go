package common

const (
	// AuthorizationHeaderName carries the bearer token on HTTP requests.
	AuthorizationHeaderName = "Authorization"

	// BearerTokenType is both the token_type returned by POST /token and
	// the scheme expected in the Authorization header.
	BearerTokenType = "bearer"

	// SchemaName identifies the data layout row written at database creation.
	SchemaName = "Weight Log"

	SchemaMajorVersion = 1
	SchemaMinorVersion = 1
)
