package osioclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	qs "github.com/google/go-querystring/query"
	"github.com/sirupsen/logrus"
	"github.com/wostzone/osioclient-go/api"
	"github.com/wostzone/osioclient-go/pkg/eventstream"
)

// API versions an endpoint is available in
var (
	versionsV1  = []string{api.APIVersion1}
	versionsV2  = []string{api.APIVersion2}
	versionsAll = []string{api.APIVersion1, api.APIVersion2}
)

// status codes for which the response body of a JSON endpoint is returned
var jsonResultCodes = []int{http.StatusOK, http.StatusNoContent, http.StatusUnprocessableEntity, http.StatusInternalServerError}

// status codes that count as success for an action endpoint
var actionResultCodes = []int{http.StatusOK, http.StatusNoContent, http.StatusUnprocessableEntity}

// OsioClient is the catalogue of OpenSensors API endpoints.
//
// JSON endpoints return the decoded response body as a tree of interface{} values.
// Action endpoints return true when the server accepted the request.
// Event endpoints return an open EventStreamReader that the caller must close.
type OsioClient struct {
	gateway    api.IRestGateway
	streamOpts []eventstream.Option
}

// call describes a single endpoint invocation
type call struct {
	op       string       // endpoint name used in errors
	method   string       // HTTP method
	versions []string     // API versions the endpoint is available in
	path     string       // path after the version with %s for each of the args
	args     []string     // path segments, escaped before use
	query    interface{}  // url.Values or a struct with url tags, nil for none
	body     interface{}  // request body, nil for none
	public   bool         // no credentials
	auth     api.AuthMode // streams only
}

// endpointPath returns the versioned path of the call, or ErrUnsupportedVersion
func (cl *OsioClient) endpointPath(c call) (string, error) {
	version := cl.gateway.APIVersion()
	supported := false
	for _, v := range c.versions {
		if v == version {
			supported = true
			break
		}
	}
	if !supported {
		return "", unsupportedVersion(c.op, version)
	}
	escaped := make([]interface{}, len(c.args))
	for i, arg := range c.args {
		escaped[i] = url.PathEscape(arg)
	}
	return "/" + version + "/" + fmt.Sprintf(c.path, escaped...), nil
}

// queryValues converts the call query into url values
func queryValues(query interface{}) (url.Values, error) {
	switch q := query.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return q, nil
	}
	return qs.Values(query)
}

func (cl *OsioClient) do(ctx context.Context, c call) (*api.Response, error) {
	path, err := cl.endpointPath(c)
	if err != nil {
		return nil, err
	}
	query, err := queryValues(c.query)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid query: %w", c.op, err)
	}
	if c.public {
		return cl.gateway.RequestPublic(ctx, c.method, path, query, c.body)
	}
	return cl.gateway.Request(ctx, c.method, path, query, c.body)
}

func hasStatus(statusCode int, codes []int) bool {
	for _, code := range codes {
		if code == statusCode {
			return true
		}
	}
	return false
}

func statusError(op string, resp *api.Response) error {
	return &GatewayError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(resp.Body)}
}

// decodeJSON decodes a response body. An empty body decodes as nil.
func decodeJSON(op string, body []byte) (interface{}, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var result interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON response: %w", op, err)
	}
	return result, nil
}

// jsonResult invokes a JSON endpoint
func (cl *OsioClient) jsonResult(ctx context.Context, c call) (interface{}, error) {
	resp, err := cl.do(ctx, c)
	if err != nil {
		return nil, err
	}
	if !hasStatus(resp.StatusCode, jsonResultCodes) {
		return nil, statusError(c.op, resp)
	}
	return decodeJSON(c.op, resp.Body)
}

// actionResult invokes an endpoint whose outcome is only the status
func (cl *OsioClient) actionResult(ctx context.Context, c call) (bool, error) {
	resp, err := cl.do(ctx, c)
	if err != nil {
		return false, err
	}
	if !hasStatus(resp.StatusCode, actionResultCodes) {
		return false, statusError(c.op, resp)
	}
	return true, nil
}

// textResult invokes an endpoint that returns plain text
func (cl *OsioClient) textResult(ctx context.Context, c call) (string, error) {
	resp, err := cl.do(ctx, c)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(c.op, resp)
	}
	return string(resp.Body), nil
}

// streamResult opens a real-time endpoint and wraps it in a reader
func (cl *OsioClient) streamResult(ctx context.Context, c call) (*eventstream.EventStreamReader, error) {
	path, err := cl.endpointPath(c)
	if err != nil {
		return nil, err
	}
	query, err := queryValues(c.query)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid query: %w", c.op, err)
	}
	conn, err := cl.gateway.OpenStream(ctx, path, query, c.auth)
	if err != nil {
		return nil, err
	}
	logrus.Infof("OsioClient.%s: stream opened on %s", c.op, conn.SourceURL())
	return eventstream.Open(ctx, conn, cl.streamOpts...), nil
}

// Gateway returns the gateway used to invoke the endpoints
func (cl *OsioClient) Gateway() api.IRestGateway {
	return cl.gateway
}

// NewOsioClient creates the endpoint catalogue on top of a gateway
//  gateway that issues the requests, usually a started *RestGateway
//  streamOpts are passed to each event stream reader, eg the logger or idle timeout
func NewOsioClient(gateway api.IRestGateway, streamOpts ...eventstream.Option) *OsioClient {
	return &OsioClient{
		gateway:    gateway,
		streamOpts: streamOpts,
	}
}
