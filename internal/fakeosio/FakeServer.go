// Package fakeosio with a fake OpenSensors REST and real-time server for testing
package fakeosio

import (
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vito/go-sse/sse"
)

// CaCertFile is the name of the PEM file written by StartTLS
const CaCertFile = "fakeosioCa.pem"

// Request as received by the fake server
type Request struct {
	Method  string
	Path    string            // decoded path
	RawPath string            // path as sent, with escapes
	Vars    map[string]string // decoded route variables
	Query   url.Values
	Header  http.Header
	Body    []byte
}

// FakeServer serves canned responses on OpenSensors endpoints and records the requests it received.
// Paths use gorilla/mux templates, eg /v1/users/{user}. Escaped slashes are kept inside a variable.
type FakeServer struct {
	apiKey     string
	router     *mux.Router
	httpServer *httptest.Server
	done       chan struct{}
	stopOnce   sync.Once

	mu       sync.Mutex
	requests []Request
}

// authenticated checks the api key when one is required.
// Public endpoints and login accept any request.
func (srv *FakeServer) authenticated(req *http.Request) bool {
	if srv.apiKey == "" || strings.Contains(req.URL.Path, "/public/") || strings.HasSuffix(req.URL.Path, "/login") {
		return true
	}
	auth := req.Header.Get("Authorization")
	if auth == "api-key "+srv.apiKey || strings.HasPrefix(auth, "Bearer ") {
		return true
	}
	return auth == "" && req.URL.Query().Get("api-key") == srv.apiKey
}

// AddHandler adds a handler for a method and path.
// The request is recorded and authenticated before the handler is invoked.
func (srv *FakeServer) AddHandler(method string, path string, handler http.HandlerFunc) {
	srv.router.HandleFunc(path, func(resp http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		vars := make(map[string]string)
		for k, v := range mux.Vars(req) {
			if unescaped, err := url.PathUnescape(v); err == nil {
				v = unescaped
			}
			vars[k] = v
		}
		srv.mu.Lock()
		srv.requests = append(srv.requests, Request{
			Method:  req.Method,
			Path:    req.URL.Path,
			RawPath: req.URL.EscapedPath(),
			Vars:    vars,
			Query:   req.URL.Query(),
			Header:  req.Header.Clone(),
			Body:    body,
		})
		srv.mu.Unlock()

		if !srv.authenticated(req) {
			logrus.Infof("FakeServer: %s %s is unauthorized", req.Method, req.URL.Path)
			http.Error(resp, "invalid api key", http.StatusUnauthorized)
			return
		}
		handler(resp, req)
	}).Methods(method)
}

// Reply responds to a method and path with a fixed status and JSON body
func (srv *FakeServer) Reply(method string, path string, statusCode int, body string) {
	srv.AddHandler(method, path, func(resp http.ResponseWriter, req *http.Request) {
		resp.Header().Set("Content-Type", "application/json")
		resp.WriteHeader(statusCode)
		_, _ = resp.Write([]byte(body))
	})
}

// ReplyText responds to a method and path with a fixed status and plain text body
func (srv *FakeServer) ReplyText(method string, path string, statusCode int, text string) {
	srv.AddHandler(method, path, func(resp http.ResponseWriter, req *http.Request) {
		resp.Header().Set("Content-Type", "text/plain")
		resp.WriteHeader(statusCode)
		_, _ = resp.Write([]byte(text))
	})
}

// hold keeps a stream open until the client goes away or the server stops
func (srv *FakeServer) hold(req *http.Request) {
	select {
	case <-req.Context().Done():
	case <-srv.done:
	}
}

// StreamLines streams newline terminated lines as application/json.
//  lines are written and flushed one at a time
//  hold keeps the stream open after the last line until the client disconnects
func (srv *FakeServer) StreamLines(path string, lines []string, hold bool) {
	srv.AddHandler(http.MethodGet, path, func(resp http.ResponseWriter, req *http.Request) {
		flusher := resp.(http.Flusher)
		resp.Header().Set("Content-Type", "application/json")
		resp.WriteHeader(http.StatusOK)
		flusher.Flush()
		for _, line := range lines {
			if _, err := io.WriteString(resp, line+"\n"); err != nil {
				return
			}
			flusher.Flush()
		}
		if hold {
			srv.hold(req)
		}
	})
}

// StreamEvents streams Server-Sent-Events frames as text/event-stream.
//  events are written and flushed one at a time
//  hold keeps the stream open after the last event until the client disconnects
func (srv *FakeServer) StreamEvents(path string, events []sse.Event, hold bool) {
	srv.AddHandler(http.MethodGet, path, func(resp http.ResponseWriter, req *http.Request) {
		flusher := resp.(http.Flusher)
		resp.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		resp.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		resp.WriteHeader(http.StatusOK)
		flusher.Flush()
		for _, ev := range events {
			if err := ev.Write(resp); err != nil {
				return
			}
			flusher.Flush()
		}
		if hold {
			srv.hold(req)
		}
	})
}

// Requests returns a copy of the requests received so far
func (srv *FakeServer) Requests() []Request {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return append([]Request(nil), srv.requests...)
}

// LastRequest returns the most recent request. ok is false if nothing was received.
func (srv *FakeServer) LastRequest() (req Request, ok bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.requests) == 0 {
		return Request{}, false
	}
	return srv.requests[len(srv.requests)-1], true
}

// Start the server on a local port and return its base URL
func (srv *FakeServer) Start() string {
	srv.httpServer = httptest.NewServer(srv.router)
	logrus.Infof("FakeServer.Start: listening on %s", srv.httpServer.URL)
	return srv.httpServer.URL + "/"
}

// StartTLS starts the server with a self signed certificate.
// The certificate is written in PEM format to CaCertFile in certFolder for use as CA.
// Returns the base URL and the CA certificate path.
func (srv *FakeServer) StartTLS(certFolder string) (baseURL string, caCertPath string, err error) {
	srv.httpServer = httptest.NewTLSServer(srv.router)
	caCertPath = path.Join(certFolder, CaCertFile)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.httpServer.Certificate().Raw})
	err = os.WriteFile(caCertPath, certPEM, 0644)
	if err != nil {
		logrus.Errorf("FakeServer.StartTLS: unable to write the CA certificate: %s", err)
		srv.Stop()
		return "", "", err
	}
	logrus.Infof("FakeServer.StartTLS: listening on %s", srv.httpServer.URL)
	return srv.httpServer.URL + "/", caCertPath, nil
}

// Stop the server. Streams that are held open are released.
func (srv *FakeServer) Stop() {
	srv.stopOnce.Do(func() {
		close(srv.done)
		if srv.httpServer != nil {
			srv.httpServer.Close()
		}
	})
}

// NewFakeServer creates a fake server. Use Start/Stop to run it.
//  apiKey that requests must present, "" to accept any request
func NewFakeServer(apiKey string) *FakeServer {
	router := mux.NewRouter()
	router.UseEncodedPath()
	srv := &FakeServer{
		apiKey: apiKey,
		router: router,
		done:   make(chan struct{}),
	}
	return srv
}
