package osioclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vito/go-sse/sse"

	"github.com/wostzone/osioclient-go/api"
	"github.com/wostzone/osioclient-go/internal/fakeosio"
	"github.com/wostzone/osioclient-go/pkg/eventstream"
	"github.com/wostzone/osioclient-go/pkg/osioclient"
)

func TestWhoAmI(t *testing.T) {
	srv, gw := startServer(t)
	srv.ReplyText(http.MethodGet, "/v1/whoami", http.StatusOK, "joe")
	srv.Reply(http.MethodGet, "/v2/whoami", http.StatusOK, `{"username":"joe","orgs":["acme"]}`)
	cl := osioclient.NewOsioClient(gw)

	result, err := cl.WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"username": "joe"}, result)

	require.NoError(t, gw.SetAPIVersion(api.APIVersion2))
	result, err = cl.WhoAmI(context.Background())
	require.NoError(t, err)
	fields := result.(map[string]interface{})
	assert.Equal(t, "joe", fields["username"])
	assert.Len(t, fields["orgs"], 1)
}

func TestLogin(t *testing.T) {
	srv, gw := startServer(t)
	token := createToken(t, time.Now().Add(time.Hour))
	srv.Reply(http.MethodPost, "/v1/login", http.StatusOK, `{"token":"`+token+`"}`)
	cl := osioclient.NewOsioClient(gw)

	result, err := cl.Login(context.Background(), testUserID, "secret")
	require.NoError(t, err)
	assert.Equal(t, token, osioclient.TokenFromLogin(result))
	req, _ := srv.LastRequest()
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.JSONEq(t, `{"username":"user1","password":"secret"}`, string(req.Body))

	require.NoError(t, gw.SetToken(osioclient.TokenFromLogin(result)))
	assert.Equal(t, "", osioclient.TokenFromLogin("not a map"))
}

func TestMessageQuery(t *testing.T) {
	srv, gw := startServer(t)
	srv.Reply(http.MethodGet, "/v1/messages/device/{client}", http.StatusOK, `{"items":[]}`)
	cl := osioclient.NewOsioClient(gw)

	query := &osioclient.MessageQuery{
		StartDate: "2016-01-01T00:00:00Z",
		Lat:       osioclient.Float64(51.5),
		Lon:       osioclient.Float64(0),
		Radius:    10,
	}
	_, err := cl.DeviceMessages(context.Background(), "dev1", query)
	require.NoError(t, err)
	req, _ := srv.LastRequest()
	assert.Equal(t, "2016-01-01T00:00:00Z", req.Query.Get("start-date"))
	assert.Equal(t, "51.5", req.Query.Get("lat"))
	assert.Equal(t, "10", req.Query.Get("radius"))
	// the meridian is a valid longitude
	assert.Equal(t, "0", req.Query.Get("lon"))
	// empty fields are left out
	assert.NotContains(t, req.Query, "elevation")
	assert.NotContains(t, req.Query, "user-id")

	_, err = cl.DeviceMessages(context.Background(), "dev1", nil)
	require.NoError(t, err)
	req, _ = srv.LastRequest()
	assert.Empty(t, req.Query)
}

func TestUnsupportedVersion(t *testing.T) {
	srv, gw := startServer(t)
	cl := osioclient.NewOsioClient(gw)

	// v2 only
	_, err := cl.DatasetMeta(context.Background(), "ds1")
	assert.ErrorIs(t, err, osioclient.ErrUnsupportedVersion)
	_, err = cl.PublicDatasetEvents(context.Background(), "ds1")
	assert.ErrorIs(t, err, osioclient.ErrUnsupportedVersion)

	// v1 only
	require.NoError(t, gw.SetAPIVersion(api.APIVersion2))
	_, err = cl.UserMeta(context.Background(), "joe")
	assert.ErrorIs(t, err, osioclient.ErrUnsupportedVersion)
	ok, err := cl.DeleteTopic(context.Background(), "temp")
	assert.ErrorIs(t, err, osioclient.ErrUnsupportedVersion)
	assert.False(t, ok)
	_, err = cl.APIKey(context.Background(), "joe")
	assert.ErrorIs(t, err, osioclient.ErrUnsupportedVersion)

	// nothing reached the server
	assert.Empty(t, srv.Requests())
}

func TestJSONResultStatus(t *testing.T) {
	srv, gw := startServer(t)
	srv.Reply(http.MethodGet, "/v1/orgs/{org}", http.StatusInternalServerError, `{"message":"oops"}`)
	srv.Reply(http.MethodGet, "/v1/orgs/{org}/members", http.StatusNotFound, `{"message":"no such org"}`)
	srv.Reply(http.MethodGet, "/v1/orgs/{org}/topics", http.StatusNoContent, ``)
	srv.Reply(http.MethodGet, "/v1/orgs/{org}/errors", http.StatusOK, `not json`)
	cl := osioclient.NewOsioClient(gw)

	// 500 returns the error body as result
	result, err := cl.OrgMeta(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "oops", result.(map[string]interface{})["message"])

	result, err = cl.OrgMembers(context.Background(), "acme")
	assert.Nil(t, result)
	var gwErr *osioclient.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusNotFound, gwErr.StatusCode)
	assert.Equal(t, "OrgMembers", gwErr.Op)

	result, err = cl.OrgTopics(context.Background(), "acme")
	assert.NoError(t, err)
	assert.Nil(t, result)

	_, err = cl.OrgDeviceErrors(context.Background(), "acme")
	assert.Error(t, err)
}

func TestActionResultStatus(t *testing.T) {
	srv, gw := startServer(t)
	srv.Reply(http.MethodDelete, "/v1/topics/{topic}", http.StatusNoContent, ``)
	srv.Reply(http.MethodPut, "/v1/topics/{topic}", http.StatusUnprocessableEntity, `{}`)
	srv.Reply(http.MethodPut, "/v1/orgs/{org}", http.StatusNotFound, `{}`)
	cl := osioclient.NewOsioClient(gw)

	ok, err := cl.DeleteTopic(context.Background(), "temp")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = cl.UpdateTopicMeta(context.Background(), "temp", map[string]string{"unit": "C"})
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = cl.UpdateOrg(context.Background(), "acme", map[string]string{"name": "Acme"})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestUnauthorizedEndpoint(t *testing.T) {
	srv := fakeosio.NewFakeServer("server-key")
	baseURL := srv.Start()
	defer srv.Stop()
	srv.Reply(http.MethodGet, "/v1/users/{user}", http.StatusOK, `{}`)

	gw := osioclient.NewRestGateway(osioclient.GatewayConfig{BaseURL: baseURL, APIKey: "wrong-key"})
	require.NoError(t, gw.Start())
	defer gw.Stop()
	cl := osioclient.NewOsioClient(gw)

	_, err := cl.UserMeta(context.Background(), "joe")
	assert.ErrorIs(t, err, osioclient.ErrUnauthorized)
}

func TestAPIKeyText(t *testing.T) {
	srv, gw := startServer(t)
	srv.ReplyText(http.MethodGet, "/v1/users/{user}/api-key", http.StatusOK, "current-key")
	srv.ReplyText(http.MethodPost, "/v1/users/{user}/api-key", http.StatusOK, "new-key")
	cl := osioclient.NewOsioClient(gw)

	key, err := cl.APIKey(context.Background(), "joe")
	require.NoError(t, err)
	assert.Equal(t, "current-key", key)

	key, err = cl.GenerateAPIKey(context.Background(), "joe")
	require.NoError(t, err)
	assert.Equal(t, "new-key", key)
	req, _ := srv.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
}

func TestPathEscaping(t *testing.T) {
	srv, gw := startServer(t)
	srv.Reply(http.MethodGet, "/v1/topics/{topic}", http.StatusOK, `{}`)
	cl := osioclient.NewOsioClient(gw)

	_, err := cl.TopicMeta(context.Background(), "/users/joe/temperature")
	require.NoError(t, err)
	req, _ := srv.LastRequest()
	assert.Equal(t, "/users/joe/temperature", req.Vars["topic"])
	assert.Equal(t, "/v1/topics/%2Fusers%2Fjoe%2Ftemperature", req.RawPath)
}

// Each endpoint uses the expected method and path
func TestEndpointRoutes(t *testing.T) {
	srv, gw := startServer(t)
	cl := osioclient.NewOsioClient(gw)
	ctx := context.Background()

	type route struct {
		method string
		path   string
		invoke func() error
	}
	jsonCall := func(f func() (interface{}, error)) func() error {
		return func() error { _, err := f(); return err }
	}
	actionCall := func(f func() (bool, error)) func() error {
		return func() error { _, err := f(); return err }
	}
	routes := []route{
		{"GET", "/v1/messages/topic/temp", jsonCall(func() (interface{}, error) { return cl.TopicMessages(ctx, "temp", nil) })},
		{"GET", "/v1/messages/user/joe", jsonCall(func() (interface{}, error) { return cl.UserMessages(ctx, "joe", nil) })},
		{"GET", "/v1/messages/dataset/ds1", jsonCall(func() (interface{}, error) { return cl.DatasetMessages(ctx, "ds1", nil) })},
		{"GET", "/v1/public/users/joe", jsonCall(func() (interface{}, error) { return cl.PublicUserMeta(ctx, "joe") })},
		{"PUT", "/v1/users/joe", actionCall(func() (bool, error) { return cl.UpdateUserMeta(ctx, "joe", map[string]string{}) })},
		{"PUT", "/v1/users/joe/bookmark/temp", actionCall(func() (bool, error) { return cl.BookmarkTopic(ctx, "joe", "temp") })},
		{"DELETE", "/v1/users/joe/bookmark/temp", actionCall(func() (bool, error) { return cl.DeleteBookmark(ctx, "joe", "temp") })},
		{"GET", "/v1/users/joe/bookmarks", jsonCall(func() (interface{}, error) { return cl.UserBookmarks(ctx, "joe") })},
		{"GET", "/v1/users/joe/bookmarks/followers", jsonCall(func() (interface{}, error) { return cl.UserBookmarkFollowers(ctx, "joe") })},
		{"PUT", "/v1/users/joe/claim-device/dev1", actionCall(func() (bool, error) { return cl.ClaimDevice(ctx, "joe", "dev1") })},
		{"GET", "/v1/users/joe/device-errors", jsonCall(func() (interface{}, error) { return cl.UserDeviceErrors(ctx, "joe") })},
		{"GET", "/v1/users/joe/invitations", jsonCall(func() (interface{}, error) { return cl.UserInvitations(ctx, "joe") })},
		{"GET", "/v1/users/joe/orgs", jsonCall(func() (interface{}, error) { return cl.UserOrgs(ctx, "joe") })},
		{"DELETE", "/v1/users/joe/orgs/acme", actionCall(func() (bool, error) { return cl.LeaveOrg(ctx, "joe", "acme") })},
		{"GET", "/v1/users/joe/owned-orgs", jsonCall(func() (interface{}, error) { return cl.UserOwnedOrgs(ctx, "joe") })},
		{"GET", "/v1/users/joe/topics", jsonCall(func() (interface{}, error) { return cl.UserTopics(ctx, "joe") })},
		{"GET", "/v1/users/joe/usage-stats", jsonCall(func() (interface{}, error) { return cl.UserStats(ctx, "joe") })},
		{"POST", "/v1/users/joe/devices", jsonCall(func() (interface{}, error) { return cl.CreateDevice(ctx, "joe", map[string]string{}) })},
		{"GET", "/v1/users/joe/devices", jsonCall(func() (interface{}, error) { return cl.UserDevices(ctx, "joe") })},
		{"GET", "/v1/users/joe/devices/dev1", jsonCall(func() (interface{}, error) { return cl.DeviceMeta(ctx, "joe", "dev1", nil) })},
		{"DELETE", "/v1/users/joe/devices/dev1", actionCall(func() (bool, error) { return cl.DeleteDevice(ctx, "joe", "dev1") })},
		{"PUT", "/v1/users/joe/devices/dev1", actionCall(func() (bool, error) { return cl.UpdateDeviceMeta(ctx, "joe", "dev1", map[string]string{}) })},
		{"POST", "/v1/users/joe/devices/dev1/reset-password", jsonCall(func() (interface{}, error) { return cl.ResetDevicePassword(ctx, "joe", "dev1") })},
		{"GET", "/v1/users/joe/devices/bulk", jsonCall(func() (interface{}, error) { return cl.DevicesInfo(ctx, "joe", nil) })},
		{"DELETE", "/v1/users/joe/devices/bulk", actionCall(func() (bool, error) { return cl.DeleteDevices(ctx, "joe", []string{}) })},
		{"PUT", "/v1/users/joe/devices/bulk", actionCall(func() (bool, error) { return cl.UpdateDevices(ctx, "joe", map[string]string{}) })},
		{"POST", "/v1/users/joe/devices/bulk", jsonCall(func() (interface{}, error) { return cl.CreateDevices(ctx, "joe", []string{}) })},
		{"GET", "/v1/public/topics/temp", jsonCall(func() (interface{}, error) { return cl.PublicTopicInfo(ctx, "temp") })},
		{"GET", "/v1/search/topics/temp", jsonCall(func() (interface{}, error) { return cl.SearchTopics(ctx, "temp") })},
		{"POST", "/v1/topics", jsonCall(func() (interface{}, error) { return cl.CreateTopic(ctx, map[string]string{}) })},
		{"POST", "/v1/topics/temp", jsonCall(func() (interface{}, error) { return cl.SendTopicMessage(ctx, "temp", map[string]int{"t": 20}) })},
		{"POST", "/v1/orgs", jsonCall(func() (interface{}, error) { return cl.CreateOrg(ctx, map[string]string{}) })},
		{"DELETE", "/v1/orgs/acme", actionCall(func() (bool, error) { return cl.DeleteOrg(ctx, "acme") })},
		{"GET", "/v1/orgs/acme/confirm-membership/tok", jsonCall(func() (interface{}, error) { return cl.AcceptOrgInvitation(ctx, "acme", "tok") })},
		{"GET", "/v1/orgs/acme/devices", jsonCall(func() (interface{}, error) { return cl.OrgDevices(ctx, "acme") })},
		{"GET", "/v1/orgs/acme/devices/b1/sensor", jsonCall(func() (interface{}, error) { return cl.FilteredOrgDevices(ctx, "acme", "b1", "sensor") })},
		{"GET", "/v1/orgs/acme/devices/dev1", jsonCall(func() (interface{}, error) { return cl.OrgDeviceMeta(ctx, "acme", "dev1") })},
		{"DELETE", "/v1/orgs/acme/devices/dev1", actionCall(func() (bool, error) { return cl.DeleteOrgDevice(ctx, "acme", "dev1") })},
		{"PUT", "/v1/orgs/acme/devices/dev1", actionCall(func() (bool, error) { return cl.UpdateOrgDevice(ctx, "acme", "dev1", map[string]string{}) })},
		{"GET", "/v1/orgs/acme/invitations", jsonCall(func() (interface{}, error) { return cl.OrgInvitations(ctx, "acme") })},
		{"POST", "/v1/orgs/acme/members/joe", jsonCall(func() (interface{}, error) { return cl.InviteOrgMember(ctx, "acme", "joe") })},
		{"DELETE", "/v1/orgs/acme/members/joe", actionCall(func() (bool, error) { return cl.RemoveOrgMember(ctx, "acme", "joe") })},
		{"POST", "/v1/orgs/acme/members/invitation-data/joe", jsonCall(func() (interface{}, error) { return cl.ReinviteOrgMember(ctx, "acme", "joe") })},
		{"GET", "/v1/orgs/acme/members/invitation-data/joe", jsonCall(func() (interface{}, error) { return cl.InvitationStatus(ctx, "acme", "joe") })},
		{"GET", "/v1/orgs/acme/usage-stats", jsonCall(func() (interface{}, error) { return cl.OrgStats(ctx, "acme") })},
		{"GET", "/v1/public/orgs/acme", jsonCall(func() (interface{}, error) { return cl.PublicOrgMeta(ctx, "acme") })},
	}
	srv.AddHandler("GET", "/{any:.*}", replyEmpty)
	srv.AddHandler("POST", "/{any:.*}", replyEmpty)
	srv.AddHandler("PUT", "/{any:.*}", replyEmpty)
	srv.AddHandler("DELETE", "/{any:.*}", replyEmpty)

	for _, r := range routes {
		err := r.invoke()
		require.NoError(t, err, r.path)
		req, ok := srv.LastRequest()
		require.True(t, ok)
		assert.Equal(t, r.method, req.Method, r.path)
		assert.Equal(t, r.path, req.Path)
	}
}

func TestEndpointRoutesV2(t *testing.T) {
	srv, gw := startServer(t)
	require.NoError(t, gw.SetAPIVersion(api.APIVersion2))
	cl := osioclient.NewOsioClient(gw)
	ctx := context.Background()
	srv.AddHandler("GET", "/{any:.*}", replyEmpty)
	srv.AddHandler("POST", "/{any:.*}", replyEmpty)

	calls := map[string]func() (interface{}, error){
		"/v2/datasets/ds1":                func() (interface{}, error) { return cl.DatasetMeta(ctx, "ds1") },
		"/v2/public/datasets/ds1":         func() (interface{}, error) { return cl.PublicDatasetMeta(ctx, "ds1") },
		"/v2/messages/dataset/bulk":       func() (interface{}, error) { return cl.BulkDatasetMessages(ctx, map[string]string{}) },
		"/v2/users/joe/datasets":          func() (interface{}, error) { return cl.UserDatasets(ctx, "joe") },
		"/v2/users/joe/topics/bulk":       func() (interface{}, error) { return cl.UserBulkTopics(ctx, "joe") },
		"/v2/orgs/acme/schemas":           func() (interface{}, error) { return cl.OrgSchemas(ctx, "acme") },
		"/v2/public/projects/p1":          func() (interface{}, error) { return cl.PublicProject(ctx, "p1") },
		"/v2/public/projects/p1/datasets": func() (interface{}, error) { return cl.PublicProjectDatasets(ctx, "p1") },
		"/v2/users/joe/devices":           func() (interface{}, error) { return cl.UserDevices(ctx, "joe") },
	}
	for path, invoke := range calls {
		_, err := invoke()
		require.NoError(t, err, path)
		req, _ := srv.LastRequest()
		assert.Equal(t, path, req.Path)
	}
}

func TestTopicEventsJSONLines(t *testing.T) {
	srv, gw := startServer(t)
	srv.StreamLines("/v1/events/topics/{topic}", []string{`{"n":1}`, ``, `garbage`, `{"n":2}`}, false)
	cl := osioclient.NewOsioClient(gw)

	reader, err := cl.TopicEvents(context.Background(), "temp")
	require.NoError(t, err)
	defer reader.Close()

	var values []float64
	for reader.Next() {
		values = append(values, reader.Event().Payload.(map[string]interface{})["n"].(float64))
	}
	assert.NoError(t, reader.Err())
	assert.Equal(t, []float64{1, 2}, values)
	assert.Equal(t, eventstream.StateClosed, reader.State())
}

func TestPublicTopicEventsSSE(t *testing.T) {
	srv, gw := startServer(t)
	srv.StreamEvents("/v1/public/events/topics/{topic}", []sse.Event{
		{Name: "message", ID: "1", Data: []byte(`{"x":1}`)},
		{Name: "message", ID: "2", Data: []byte(`not json`)},
		{Name: "message", ID: "3", Data: []byte(`{"x":3}`)},
	}, false)
	cl := osioclient.NewOsioClient(gw)

	reader, err := cl.PublicTopicEvents(context.Background(), "temp")
	require.NoError(t, err)
	defer reader.Close()

	var ids []string
	for reader.Next() {
		ids = append(ids, reader.Event().ID)
	}
	assert.NoError(t, reader.Err())
	assert.Equal(t, []string{"1", "3"}, ids)
	assert.Equal(t, 1, reader.Skipped())

	req, _ := srv.LastRequest()
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Equal(t, testAPIKey, req.Query.Get(api.QueryParamAPIKey))
}

func TestTopicEventsSSEWithJSONContentType(t *testing.T) {
	srv, gw := startServer(t)
	srv.AddHandler(http.MethodGet, "/v1/events/topics/{topic}", func(resp http.ResponseWriter, req *http.Request) {
		resp.Header().Set("Content-Type", "application/json")
		resp.WriteHeader(http.StatusOK)
		_, _ = resp.Write([]byte("event: message\ndata: {\"x\":1}\n\n: keep-alive\n\nevent: message\ndata: {\"x\":2}\n\n"))
	})
	cl := osioclient.NewOsioClient(gw)

	reader, err := cl.TopicEvents(context.Background(), "temp")
	require.NoError(t, err)
	defer reader.Close()

	var values []float64
	for reader.Next() {
		values = append(values, reader.Event().Payload.(map[string]interface{})["x"].(float64))
	}
	assert.NoError(t, reader.Err())
	assert.Equal(t, []float64{1, 2}, values)
	assert.Equal(t, 0, reader.Skipped())
}

func TestStreamCancelledByContext(t *testing.T) {
	srv, gw := startServer(t)
	srv.StreamLines("/v1/events/users/{user}/topics", []string{`{"n":1}`}, true)
	cl := osioclient.NewOsioClient(gw)

	ctx, cancel := context.WithCancel(context.Background())
	reader, err := cl.UserTopicEvents(ctx, "joe")
	require.NoError(t, err)

	require.True(t, reader.Next())
	time.AfterFunc(50*time.Millisecond, cancel)
	// blocks until the context is cancelled
	assert.False(t, reader.Next())
	assert.ErrorIs(t, reader.Err(), context.Canceled)
	assert.Equal(t, eventstream.StateCancelled, reader.State())
	assert.False(t, reader.Next())
}

func TestStreamServerStops(t *testing.T) {
	srv, gw := startServer(t)
	srv.StreamLines("/v1/debug-events/{client}", []string{`{"n":1}`}, true)
	cl := osioclient.NewOsioClient(gw)

	reader, err := cl.DeviceDebugEvents(context.Background(), "dev1")
	require.NoError(t, err)
	defer reader.Close()
	require.True(t, reader.Next())

	time.AfterFunc(50*time.Millisecond, srv.Stop)
	assert.False(t, reader.Next())
	assert.Contains(t, []eventstream.State{eventstream.StateClosed, eventstream.StateFailed}, reader.State())
}

func TestStreamEndpointsRoutes(t *testing.T) {
	srv, gw := startServer(t)
	srv.StreamLines("/{any:.*}", nil, false)
	cl := osioclient.NewOsioClient(gw)
	ctx := context.Background()

	calls := map[string]func() (*eventstream.EventStreamReader, error){
		"/v1/events/orgs/acme/topics":        func() (*eventstream.EventStreamReader, error) { return cl.OrgTopicEvents(ctx, "acme") },
		"/v1/events/users/joe/bookmarks":     func() (*eventstream.EventStreamReader, error) { return cl.UserBookmarkEvents(ctx, "joe") },
		"/v1/public/events/orgs/acme/topics": func() (*eventstream.EventStreamReader, error) { return cl.PublicOrgTopicEvents(ctx, "acme") },
		"/v1/public/events/users/joe/topics": func() (*eventstream.EventStreamReader, error) { return cl.PublicUserTopicEvents(ctx, "joe") },
	}
	for path, open := range calls {
		reader, err := open()
		require.NoError(t, err, path)
		assert.False(t, reader.Next())
		assert.NoError(t, reader.Err())
		req, _ := srv.LastRequest()
		assert.Equal(t, path, req.Path)
	}

	require.NoError(t, gw.SetAPIVersion(api.APIVersion2))
	reader, err := cl.PublicDatasetEvents(ctx, "ds1")
	require.NoError(t, err)
	reader.Close()
	req, _ := srv.LastRequest()
	assert.Equal(t, "/v2/public/events/datasets/ds1", req.Path)
}

func replyEmpty(resp http.ResponseWriter, req *http.Request) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusOK)
	_, _ = resp.Write([]byte(`{}`))
}
