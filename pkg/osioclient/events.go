package osioclient

import (
	"context"

	"github.com/wostzone/osioclient-go/api"
	"github.com/wostzone/osioclient-go/pkg/eventstream"
)

// The real-time endpoints return a reader on an open stream. The caller must Close it.
// Endpoints under /public pass the api key as query parameter, the others use the header.

// DeviceDebugEvents streams the debug events of a device, eg connects and publish errors
func (cl *OsioClient) DeviceDebugEvents(ctx context.Context, clientID string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "DeviceDebugEvents", versions: versionsAll,
		path: "debug-events/%s", args: []string{clientID}, auth: api.AuthHeader})
}

// PublicDatasetEvents streams the messages of a public dataset
func (cl *OsioClient) PublicDatasetEvents(ctx context.Context, datasetID string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "PublicDatasetEvents", versions: versionsV2,
		path: "public/events/datasets/%s", args: []string{datasetID}, auth: api.AuthQuery})
}

// OrgTopicEvents streams the messages on all topics of an organisation
func (cl *OsioClient) OrgTopicEvents(ctx context.Context, orgID string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "OrgTopicEvents", versions: versionsAll,
		path: "events/orgs/%s/topics", args: []string{orgID}, auth: api.AuthHeader})
}

// TopicEvents streams the messages on a topic
func (cl *OsioClient) TopicEvents(ctx context.Context, topic string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "TopicEvents", versions: versionsAll,
		path: "events/topics/%s", args: []string{topic}, auth: api.AuthHeader})
}

// UserBookmarkEvents streams the messages on the topics the user bookmarked
func (cl *OsioClient) UserBookmarkEvents(ctx context.Context, userID string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "UserBookmarkEvents", versions: versionsAll,
		path: "events/users/%s/bookmarks", args: []string{userID}, auth: api.AuthHeader})
}

// UserTopicEvents streams the messages on all topics of a user
func (cl *OsioClient) UserTopicEvents(ctx context.Context, userID string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "UserTopicEvents", versions: versionsAll,
		path: "events/users/%s/topics", args: []string{userID}, auth: api.AuthHeader})
}

// PublicOrgTopicEvents streams the messages on the public topics of an organisation
func (cl *OsioClient) PublicOrgTopicEvents(ctx context.Context, orgID string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "PublicOrgTopicEvents", versions: versionsAll,
		path: "public/events/orgs/%s/topics", args: []string{orgID}, auth: api.AuthQuery})
}

// PublicTopicEvents streams the messages on a public topic
func (cl *OsioClient) PublicTopicEvents(ctx context.Context, topic string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "PublicTopicEvents", versions: versionsAll,
		path: "public/events/topics/%s", args: []string{topic}, auth: api.AuthQuery})
}

// PublicUserTopicEvents streams the messages on the public topics of a user
func (cl *OsioClient) PublicUserTopicEvents(ctx context.Context, userID string) (*eventstream.EventStreamReader, error) {
	return cl.streamResult(ctx, call{op: "PublicUserTopicEvents", versions: versionsAll,
		path: "public/events/users/%s/topics", args: []string{userID}, auth: api.AuthQuery})
}
