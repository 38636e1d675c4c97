// Package osioclient with the OpenSensors REST gateway and API endpoint catalogue
package osioclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wostzone/osioclient-go/api"
	"github.com/wostzone/osioclient-go/pkg/eventstream"
)

// DefaultUserAgent is sent when the configuration has no user agent
const DefaultUserAgent = "osioclient-go/1.0"

// DefaultTimeout of REST requests. Streams have no overall timeout.
const DefaultTimeout = 10 * time.Second

// maxErrorBody limits how much of a failed stream response is kept in the error
const maxErrorBody = 4096

// GatewayConfig holds the connection settings of a RestGateway
type GatewayConfig struct {
	APIVersion      string        // v1 or v2, default v1
	BaseURL         string        // REST API base URL, eg https://api.opensensors.io/
	RealtimeBaseURL string        // real-time API base URL, eg https://realtime.opensensors.io/
	APIKey          string        // api key sent with each authenticated request
	Timeout         time.Duration // REST request timeout, default 10 seconds
	CaCertFile      string        // optional CA certificate in PEM format, default uses the system roots
	UserAgent       string        // optional user agent
}

// RestGateway issues authenticated requests to the OpenSensors API.
// Use Start/Stop to create and release the HTTP clients.
type RestGateway struct {
	config GatewayConfig

	updateMutex  sync.RWMutex
	apiVersion   string
	apiKey       string
	token        string
	tokenExpiry  time.Time
	restClient   *http.Client
	streamClient *http.Client
}

// APIVersion returns the API version used in endpoint paths
func (gw *RestGateway) APIVersion() string {
	gw.updateMutex.RLock()
	defer gw.updateMutex.RUnlock()
	return gw.apiVersion
}

// SetAPIVersion changes the API version used in endpoint paths.
// Only v1 and v2 are accepted. On error the current version remains in use.
func (gw *RestGateway) SetAPIVersion(version string) error {
	if !api.IsSupportedVersion(version) {
		logrus.Warningf("RestGateway.SetAPIVersion: Invalid API version '%s'", version)
		return unsupportedVersion("SetAPIVersion", version)
	}
	gw.updateMutex.Lock()
	defer gw.updateMutex.Unlock()
	gw.apiVersion = version
	return nil
}

// SetAPIKey replaces the api key, eg after it was rotated.
// Streams that are already open are not affected.
func (gw *RestGateway) SetAPIKey(apiKey string) {
	gw.updateMutex.Lock()
	defer gw.updateMutex.Unlock()
	gw.apiKey = apiKey
}

func (gw *RestGateway) currentAPIKey() string {
	gw.updateMutex.RLock()
	defer gw.updateMutex.RUnlock()
	return gw.apiKey
}

// SetToken uses a JWT obtained with login instead of the api key.
// Once the token expires authenticated requests fail with ErrTokenExpired.
// Use an empty token to revert to the api key.
func (gw *RestGateway) SetToken(token string) error {
	var expiry time.Time
	var err error
	if token != "" {
		expiry, err = TokenExpiry(token)
		if err != nil {
			logrus.Errorf("RestGateway.SetToken: Invalid token: %s", err)
			return err
		}
	}
	gw.updateMutex.Lock()
	defer gw.updateMutex.Unlock()
	gw.token = token
	gw.tokenExpiry = expiry
	return nil
}

// authorization returns the Authorization header value for authenticated requests
func (gw *RestGateway) authorization() (string, error) {
	gw.updateMutex.RLock()
	defer gw.updateMutex.RUnlock()
	if gw.token == "" {
		return api.AuthSchemeAPIKey + " " + gw.apiKey, nil
	}
	if !gw.tokenExpiry.IsZero() && time.Now().After(gw.tokenExpiry) {
		return "", ErrTokenExpired
	}
	return api.AuthSchemeBearer + " " + gw.token, nil
}

func (gw *RestGateway) clients() (rest *http.Client, stream *http.Client) {
	gw.updateMutex.RLock()
	defer gw.updateMutex.RUnlock()
	return gw.restClient, gw.streamClient
}

// joinURL appends the path and query to a base URL
func joinURL(baseURL string, path string, query url.Values) string {
	// careful, a double // in the path causes a redirect
	fullURL := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return fullURL
}

// newRequest creates the request with the headers used by all endpoints
func (gw *RestGateway) newRequest(ctx context.Context, method string, fullURL string, body interface{}) (*http.Request, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, fmt.Errorf("method '%s' is not supported", method)
	}
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, err
	}
	userAgent := gw.config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// Request issues an authenticated request on the REST API and reads the response.
// Any HTTP status is returned in the response. Errors are for transport failures only.
//  method is one of GET, POST, PUT, PATCH or DELETE
//  path of the endpoint including the version, eg /v1/users/{user-id}
//  query parameters to include, nil for none
//  body is marshalled to JSON, nil for no body
func (gw *RestGateway) Request(ctx context.Context, method string, path string, query url.Values, body interface{}) (*api.Response, error) {
	return gw.invoke(ctx, method, path, query, body, true)
}

// RequestPublic issues a request without credentials, for the public endpoints
func (gw *RestGateway) RequestPublic(ctx context.Context, method string, path string, query url.Values, body interface{}) (*api.Response, error) {
	return gw.invoke(ctx, method, path, query, body, false)
}

func (gw *RestGateway) invoke(ctx context.Context, method string, path string,
	query url.Values, body interface{}, withAuth bool) (*api.Response, error) {

	restClient, _ := gw.clients()
	if restClient == nil {
		logrus.Errorf("RestGateway.Request: '%s'. Gateway is not started", path)
		return nil, ErrNotStarted
	}
	fullURL := joinURL(gw.config.BaseURL, path, query)
	req, err := gw.newRequest(ctx, method, fullURL, body)
	if err != nil {
		logrus.Errorf("RestGateway.Request: %s %s: %s", method, path, err)
		return nil, err
	}
	if withAuth {
		auth, err := gw.authorization()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", auth)
	}
	logrus.Infof("RestGateway.Request: %s: %s", method, path)
	RequestsTotal.WithLabelValues(method).Inc()

	resp, err := restClient.Do(req)
	if err != nil {
		RequestFailuresTotal.WithLabelValues(method).Inc()
		logrus.Errorf("RestGateway.Request: %s %s: %s", method, path, err)
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		RequestFailuresTotal.WithLabelValues(method).Inc()
		logrus.Errorf("RestGateway.Request: %s %s: reading response: %s", method, path, err)
		return nil, err
	}
	if resp.StatusCode >= 400 {
		RequestFailuresTotal.WithLabelValues(method).Inc()
		logrus.Infof("RestGateway.Request: %s %s: %s", method, path, resp.Status)
	}
	return &api.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       respBody,
	}, nil
}

// OpenStream opens a streaming endpoint on the real-time API.
// A non-2xx response is returned as a *GatewayError and its body is closed.
//  path of the endpoint including the version, eg /v1/events/topics/{topic}
//  query parameters to include, nil for none
//  auth AuthHeader sends the credentials as header, AuthQuery adds the api key as query parameter
// Returns the open connection to pass to eventstream.Open
func (gw *RestGateway) OpenStream(ctx context.Context, path string, query url.Values, auth api.AuthMode) (*eventstream.StreamConnection, error) {
	_, streamClient := gw.clients()
	if streamClient == nil {
		logrus.Errorf("RestGateway.OpenStream: '%s'. Gateway is not started", path)
		return nil, ErrNotStarted
	}
	streamQuery := url.Values{}
	for k, v := range query {
		streamQuery[k] = v
	}
	if auth == api.AuthQuery {
		streamQuery.Set(api.QueryParamAPIKey, gw.currentAPIKey())
	}
	fullURL := joinURL(gw.config.RealtimeBaseURL, path, streamQuery)
	req, err := gw.newRequest(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", eventstream.ContentTypeSSE+", application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if auth == api.AuthHeader {
		authHeader, err := gw.authorization()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", authHeader)
	}
	logrus.Infof("RestGateway.OpenStream: %s", path)
	RequestsTotal.WithLabelValues(http.MethodGet).Inc()

	resp, err := streamClient.Do(req)
	if err != nil {
		RequestFailuresTotal.WithLabelValues(http.MethodGet).Inc()
		logrus.Errorf("RestGateway.OpenStream: %s: %s", path, err)
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		RequestFailuresTotal.WithLabelValues(http.MethodGet).Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		err = &GatewayError{
			Op:         "OpenStream " + path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		}
		logrus.Errorf("RestGateway.OpenStream: %s", err)
		return nil, err
	}
	StreamsOpenedTotal.Inc()
	// the source URL is logged, so leave out the api key
	sourceURL := joinURL(gw.config.RealtimeBaseURL, path, query)
	return eventstream.NewStreamConnection(sourceURL, resp.Header.Get("Content-Type"), resp.Body), nil
}

// Start the gateway.
// If a CA certificate file is configured then it is used to verify the server, otherwise
// the system roots are used.
func (gw *RestGateway) Start() error {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if gw.config.CaCertFile != "" {
		caCertPEM, err := os.ReadFile(gw.config.CaCertFile)
		if err != nil {
			logrus.Errorf("RestGateway.Start: Unable to read CA certificate '%s': %s", gw.config.CaCertFile, err)
			return err
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCertPEM) {
			err = fmt.Errorf("no certificates found in '%s'", gw.config.CaCertFile)
			logrus.Errorf("RestGateway.Start: %s", err)
			return err
		}
		logrus.Infof("RestGateway.Start: Using CA certificate in '%s' for server verification", gw.config.CaCertFile)
		tlsConfig.RootCAs = caCertPool
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	timeout := gw.config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	gw.updateMutex.Lock()
	defer gw.updateMutex.Unlock()
	gw.restClient = &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
	gw.streamClient = &http.Client{
		Transport: transport,
	}
	return nil
}

// Stop the gateway and close idle connections. Open streams are not affected.
func (gw *RestGateway) Stop() {
	logrus.Infof("RestGateway.Stop: Stopping gateway")
	gw.updateMutex.Lock()
	defer gw.updateMutex.Unlock()
	if gw.restClient != nil {
		gw.restClient.CloseIdleConnections()
		gw.restClient = nil
	}
	gw.streamClient = nil
}

// NewRestGateway creates a gateway instance. Use Start/Stop to run and release connections.
//  config with base URLs, credentials and the API version
func NewRestGateway(config GatewayConfig) *RestGateway {
	version := config.APIVersion
	if !api.IsSupportedVersion(version) {
		if version != "" {
			logrus.Warningf("NewRestGateway: Invalid API version '%s'. Using %s", version, api.APIVersion1)
		}
		version = api.APIVersion1
	}
	gw := &RestGateway{
		config:     config,
		apiVersion: version,
		apiKey:     config.APIKey,
	}
	return gw
}

// compile time check
var _ api.IRestGateway = (*RestGateway)(nil)
