package osioclient

import (
	"context"
	"net/http"
)

// DeviceMessages returns stored messages published by a device
//  query filters the messages, nil for all
func (cl *OsioClient) DeviceMessages(ctx context.Context, clientID string, query *MessageQuery) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "DeviceMessages", method: http.MethodGet, versions: versionsV1,
		path: "messages/device/%s", args: []string{clientID}, query: query})
}

// TopicMessages returns stored messages published on a topic
func (cl *OsioClient) TopicMessages(ctx context.Context, topic string, query *MessageQuery) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "TopicMessages", method: http.MethodGet, versions: versionsV1,
		path: "messages/topic/%s", args: []string{topic}, query: query})
}

// UserMessages returns stored messages of a user's devices
func (cl *OsioClient) UserMessages(ctx context.Context, userID string, query *MessageQuery) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserMessages", method: http.MethodGet, versions: versionsV1,
		path: "messages/user/%s", args: []string{userID}, query: query})
}

// DatasetMessages returns messages of a public dataset
func (cl *OsioClient) DatasetMessages(ctx context.Context, datasetID string, query *MessageQuery) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "DatasetMessages", method: http.MethodGet, versions: versionsAll,
		path: "messages/dataset/%s", args: []string{datasetID}, query: query})
}

// BulkDatasetMessages returns messages of multiple public datasets in one call
//  input describes the datasets and time range
func (cl *OsioClient) BulkDatasetMessages(ctx context.Context, input interface{}) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "BulkDatasetMessages", method: http.MethodPost, versions: versionsV2,
		path: "messages/dataset/bulk", body: input})
}
