package osioclient

import (
	"context"
	"net/http"
)

// PublicTopicInfo returns the description of a public topic
func (cl *OsioClient) PublicTopicInfo(ctx context.Context, topic string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "PublicTopicInfo", method: http.MethodGet, versions: versionsV1,
		path: "public/topics/%s", args: []string{topic}})
}

// SearchTopics searches the public topics
func (cl *OsioClient) SearchTopics(ctx context.Context, text string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "SearchTopics", method: http.MethodGet, versions: versionsV1,
		path: "search/topics/%s", args: []string{text}})
}

// CreateTopic creates a new topic
//  topic description with the name, description, unit and whether it is public
func (cl *OsioClient) CreateTopic(ctx context.Context, topic interface{}) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "CreateTopic", method: http.MethodPost, versions: versionsV1,
		path: "topics", body: topic})
}

// DeleteTopic removes a topic
func (cl *OsioClient) DeleteTopic(ctx context.Context, topic string) (bool, error) {
	return cl.actionResult(ctx, call{op: "DeleteTopic", method: http.MethodDelete, versions: versionsV1,
		path: "topics/%s", args: []string{topic}})
}

// TopicMeta returns the topic description
func (cl *OsioClient) TopicMeta(ctx context.Context, topic string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "TopicMeta", method: http.MethodGet, versions: versionsV1,
		path: "topics/%s", args: []string{topic}})
}

// UpdateTopicMeta updates the topic description
func (cl *OsioClient) UpdateTopicMeta(ctx context.Context, topic string, meta interface{}) (bool, error) {
	return cl.actionResult(ctx, call{op: "UpdateTopicMeta", method: http.MethodPut, versions: versionsAll,
		path: "topics/%s", args: []string{topic}, body: meta})
}

// SendTopicMessage publishes a message on a topic using the REST API
func (cl *OsioClient) SendTopicMessage(ctx context.Context, topic string, message interface{}) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "SendTopicMessage", method: http.MethodPost, versions: versionsAll,
		path: "topics/%s", args: []string{topic}, body: message})
}
