package osioclient

import (
	"context"
	"net/http"
)

// PublicUserMeta returns the public profile of a user without authentication
func (cl *OsioClient) PublicUserMeta(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "PublicUserMeta", method: http.MethodGet, versions: versionsV1,
		path: "public/users/%s", args: []string{userID}, public: true})
}

// UserMeta returns the user profile
func (cl *OsioClient) UserMeta(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserMeta", method: http.MethodGet, versions: versionsV1,
		path: "users/%s", args: []string{userID}})
}

// UpdateUserMeta updates the user profile, eg name, email and description
func (cl *OsioClient) UpdateUserMeta(ctx context.Context, userID string, meta interface{}) (bool, error) {
	return cl.actionResult(ctx, call{op: "UpdateUserMeta", method: http.MethodPut, versions: versionsV1,
		path: "users/%s", args: []string{userID}, body: meta})
}

// APIKey returns the current api key of the user
func (cl *OsioClient) APIKey(ctx context.Context, userID string) (string, error) {
	return cl.textResult(ctx, call{op: "APIKey", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/api-key", args: []string{userID}})
}

// GenerateAPIKey replaces the api key of the user and returns the new key.
// The old key stops working immediately.
func (cl *OsioClient) GenerateAPIKey(ctx context.Context, userID string) (string, error) {
	return cl.textResult(ctx, call{op: "GenerateAPIKey", method: http.MethodPost, versions: versionsV1,
		path: "users/%s/api-key", args: []string{userID}})
}

// BookmarkTopic adds a topic to the user's bookmarks
func (cl *OsioClient) BookmarkTopic(ctx context.Context, userID string, topic string) (bool, error) {
	return cl.actionResult(ctx, call{op: "BookmarkTopic", method: http.MethodPut, versions: versionsV1,
		path: "users/%s/bookmark/%s", args: []string{userID, topic}})
}

// DeleteBookmark removes a topic from the user's bookmarks
func (cl *OsioClient) DeleteBookmark(ctx context.Context, userID string, topic string) (bool, error) {
	return cl.actionResult(ctx, call{op: "DeleteBookmark", method: http.MethodDelete, versions: versionsV1,
		path: "users/%s/bookmark/%s", args: []string{userID, topic}})
}

// UserBookmarks returns the topics the user bookmarked
func (cl *OsioClient) UserBookmarks(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserBookmarks", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/bookmarks", args: []string{userID}})
}

// UserBookmarkFollowers returns the followers of the user's topics
func (cl *OsioClient) UserBookmarkFollowers(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserBookmarkFollowers", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/bookmarks/followers", args: []string{userID}})
}

// ClaimDevice links an existing device to the user
func (cl *OsioClient) ClaimDevice(ctx context.Context, userID string, clientID string) (bool, error) {
	return cl.actionResult(ctx, call{op: "ClaimDevice", method: http.MethodPut, versions: versionsV1,
		path: "users/%s/claim-device/%s", args: []string{userID, clientID}})
}

// UserDeviceErrors returns the recent errors of the user's devices
func (cl *OsioClient) UserDeviceErrors(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserDeviceErrors", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/device-errors", args: []string{userID}})
}

// UserInvitations returns the pending organisation invitations of the user
func (cl *OsioClient) UserInvitations(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserInvitations", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/invitations", args: []string{userID}})
}

// UserOrgs returns the organisations the user is a member of
func (cl *OsioClient) UserOrgs(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserOrgs", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/orgs", args: []string{userID}})
}

// LeaveOrg removes the user from an organisation
func (cl *OsioClient) LeaveOrg(ctx context.Context, userID string, orgID string) (bool, error) {
	return cl.actionResult(ctx, call{op: "LeaveOrg", method: http.MethodDelete, versions: versionsV1,
		path: "users/%s/orgs/%s", args: []string{userID, orgID}})
}

// UserOwnedOrgs returns the organisations the user owns
func (cl *OsioClient) UserOwnedOrgs(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserOwnedOrgs", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/owned-orgs", args: []string{userID}})
}

// UserTopics returns the topics of the user
func (cl *OsioClient) UserTopics(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserTopics", method: http.MethodGet, versions: versionsAll,
		path: "users/%s/topics", args: []string{userID}})
}

// UserBulkTopics returns the topics of the user with their latest values
func (cl *OsioClient) UserBulkTopics(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserBulkTopics", method: http.MethodGet, versions: versionsV2,
		path: "users/%s/topics/bulk", args: []string{userID}})
}

// UserStats returns the message usage statistics of the user
func (cl *OsioClient) UserStats(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserStats", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/usage-stats", args: []string{userID}})
}

// UserDatasets returns the datasets of the user
func (cl *OsioClient) UserDatasets(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserDatasets", method: http.MethodGet, versions: versionsV2,
		path: "users/%s/datasets", args: []string{userID}})
}
