// Package api with the OpenSensors API versions and authentication definitions
// These definitions are shared by the REST gateway, the event stream reader and the commandline.
package api

// API versions supported by the OpenSensors REST and real-time API
const (
	APIVersion1 = "v1"
	APIVersion2 = "v2"
)

// SupportedVersions lists the API versions the gateway accepts
var SupportedVersions = []string{APIVersion1, APIVersion2}

// AuthMode determines how credentials are passed to a streaming endpoint
type AuthMode int

const (
	// AuthHeader passes the api key or token in the Authorization header.
	// Used by the device and topic event endpoints.
	AuthHeader AuthMode = iota
	// AuthQuery passes the api key as the 'api-key' query parameter without an Authorization header.
	// Used by the public event endpoints.
	AuthQuery
	// AuthNone sends no credentials
	AuthNone
)

// AuthSchemeAPIKey is the Authorization header scheme for api keys
const AuthSchemeAPIKey = "api-key"

// AuthSchemeBearer is the Authorization header scheme for JWT tokens obtained with login
const AuthSchemeBearer = "Bearer"

// QueryParamAPIKey is the query parameter holding the api key for AuthQuery
const QueryParamAPIKey = "api-key"

// IsSupportedVersion returns true if the version is one of the supported API versions
func IsSupportedVersion(version string) bool {
	for _, v := range SupportedVersions {
		if v == version {
			return true
		}
	}
	return false
}
