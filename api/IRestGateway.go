// Package api with the REST gateway interface definition
package api

import (
	"context"
	"net/url"

	"github.com/wostzone/osioclient-go/pkg/eventstream"
)

// Response of a non-streaming request
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// IRestGateway issues authenticated requests to the OpenSensors REST API and opens
// the streaming connections that the event stream reader consumes.
type IRestGateway interface {
	// APIVersion returns the API version used in endpoint paths, eg v1
	APIVersion() string

	// OpenStream opens a streaming endpoint on the real-time API.
	// A non-2xx response is returned as an error and the connection is closed.
	//  path of the endpoint including the version, eg /v1/events/topics/{topic}
	//  query parameters to include, nil for none
	//  auth selects whether the credentials go in the header or in the query
	// Returns the open connection for use with eventstream.Open
	OpenStream(ctx context.Context, path string, query url.Values, auth AuthMode) (*eventstream.StreamConnection, error)

	// Request issues an authenticated non-streaming request on the REST API.
	// Any HTTP status is returned in the response. Errors are for transport failures only.
	//  method is one of GET, POST, PUT, PATCH or DELETE
	//  path of the endpoint including the version, eg /v1/users/{user-id}
	//  query parameters to include, nil for none
	//  body is marshalled to JSON, nil for no body
	Request(ctx context.Context, method string, path string, query url.Values, body interface{}) (*Response, error)

	// RequestPublic is Request without credentials, for the public endpoints
	RequestPublic(ctx context.Context, method string, path string, query url.Values, body interface{}) (*Response, error)
}
