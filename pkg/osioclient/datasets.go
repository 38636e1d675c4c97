package osioclient

import (
	"context"
	"net/http"
)

// DatasetMeta returns the dataset description
func (cl *OsioClient) DatasetMeta(ctx context.Context, datasetID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "DatasetMeta", method: http.MethodGet, versions: versionsV2,
		path: "datasets/%s", args: []string{datasetID}})
}

// PublicDatasetMeta returns the public dataset description without authentication
func (cl *OsioClient) PublicDatasetMeta(ctx context.Context, datasetID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "PublicDatasetMeta", method: http.MethodGet, versions: versionsV2,
		path: "public/datasets/%s", args: []string{datasetID}, public: true})
}

// PublicProject returns the public project information
func (cl *OsioClient) PublicProject(ctx context.Context, projectID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "PublicProject", method: http.MethodGet, versions: versionsV2,
		path: "public/projects/%s", args: []string{projectID}})
}

// PublicProjectDatasets returns the datasets of a public project
func (cl *OsioClient) PublicProjectDatasets(ctx context.Context, projectID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "PublicProjectDatasets", method: http.MethodGet, versions: versionsV2,
		path: "public/projects/%s/datasets", args: []string{projectID}})
}
