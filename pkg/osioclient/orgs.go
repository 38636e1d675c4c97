package osioclient

import (
	"context"
	"net/http"
)

// CreateOrg creates a new organisation
func (cl *OsioClient) CreateOrg(ctx context.Context, org interface{}) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "CreateOrg", method: http.MethodPost, versions: versionsAll,
		path: "orgs", body: org})
}

// UpdateOrg updates the organisation description
func (cl *OsioClient) UpdateOrg(ctx context.Context, orgID string, org interface{}) (bool, error) {
	return cl.actionResult(ctx, call{op: "UpdateOrg", method: http.MethodPut, versions: versionsAll,
		path: "orgs/%s", args: []string{orgID}, body: org})
}

// DeleteOrg removes an organisation
func (cl *OsioClient) DeleteOrg(ctx context.Context, orgID string) (bool, error) {
	return cl.actionResult(ctx, call{op: "DeleteOrg", method: http.MethodDelete, versions: versionsAll,
		path: "orgs/%s", args: []string{orgID}})
}

// OrgMeta returns the organisation description
func (cl *OsioClient) OrgMeta(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgMeta", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s", args: []string{orgID}})
}

// AcceptOrgInvitation confirms membership using the token of an invitation
func (cl *OsioClient) AcceptOrgInvitation(ctx context.Context, orgID string, token string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "AcceptOrgInvitation", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/confirm-membership/%s", args: []string{orgID, token}})
}

// OrgDevices returns the devices of the organisation
func (cl *OsioClient) OrgDevices(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgDevices", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/devices", args: []string{orgID}})
}

// FilteredOrgDevices returns the devices of the organisation with the given batch and device type
func (cl *OsioClient) FilteredOrgDevices(ctx context.Context, orgID string, batch string, deviceType string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "FilteredOrgDevices", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/devices/%s/%s", args: []string{orgID, batch, deviceType}})
}

// OrgDeviceMeta returns the description of an organisation device
func (cl *OsioClient) OrgDeviceMeta(ctx context.Context, orgID string, clientID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgDeviceMeta", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/devices/%s", args: []string{orgID, clientID}})
}

// DeleteOrgDevice removes a device from the organisation
func (cl *OsioClient) DeleteOrgDevice(ctx context.Context, orgID string, clientID string) (bool, error) {
	return cl.actionResult(ctx, call{op: "DeleteOrgDevice", method: http.MethodDelete, versions: versionsAll,
		path: "orgs/%s/devices/%s", args: []string{orgID, clientID}})
}

// UpdateOrgDevice updates the description of an organisation device
func (cl *OsioClient) UpdateOrgDevice(ctx context.Context, orgID string, clientID string, meta interface{}) (bool, error) {
	return cl.actionResult(ctx, call{op: "UpdateOrgDevice", method: http.MethodPut, versions: versionsAll,
		path: "orgs/%s/devices/%s", args: []string{orgID, clientID}, body: meta})
}

// OrgDeviceErrors returns the recent errors of the organisation devices
func (cl *OsioClient) OrgDeviceErrors(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgDeviceErrors", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/errors", args: []string{orgID}})
}

// OrgInvitations returns the pending invitations of the organisation
func (cl *OsioClient) OrgInvitations(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgInvitations", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/invitations", args: []string{orgID}})
}

// OrgMembers returns the members of the organisation
func (cl *OsioClient) OrgMembers(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgMembers", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/members", args: []string{orgID}})
}

// InviteOrgMember invites a user to join the organisation
func (cl *OsioClient) InviteOrgMember(ctx context.Context, orgID string, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "InviteOrgMember", method: http.MethodPost, versions: versionsAll,
		path: "orgs/%s/members/%s", args: []string{orgID, userID}})
}

// RemoveOrgMember removes a user from the organisation
func (cl *OsioClient) RemoveOrgMember(ctx context.Context, orgID string, userID string) (bool, error) {
	return cl.actionResult(ctx, call{op: "RemoveOrgMember", method: http.MethodDelete, versions: versionsAll,
		path: "orgs/%s/members/%s", args: []string{orgID, userID}})
}

// ReinviteOrgMember sends the invitation to a user again
func (cl *OsioClient) ReinviteOrgMember(ctx context.Context, orgID string, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "ReinviteOrgMember", method: http.MethodPost, versions: versionsAll,
		path: "orgs/%s/members/invitation-data/%s", args: []string{orgID, userID}})
}

// InvitationStatus returns the status of the invitation of a user
func (cl *OsioClient) InvitationStatus(ctx context.Context, orgID string, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "InvitationStatus", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/members/invitation-data/%s", args: []string{orgID, userID}})
}

// OrgTopics returns the topics of the organisation
func (cl *OsioClient) OrgTopics(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgTopics", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/topics", args: []string{orgID}})
}

// OrgStats returns the message usage statistics of the organisation
func (cl *OsioClient) OrgStats(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgStats", method: http.MethodGet, versions: versionsAll,
		path: "orgs/%s/usage-stats", args: []string{orgID}})
}

// PublicOrgMeta returns the public description of an organisation
func (cl *OsioClient) PublicOrgMeta(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "PublicOrgMeta", method: http.MethodGet, versions: versionsAll,
		path: "public/orgs/%s", args: []string{orgID}})
}

// OrgSchemas returns the message schemas of the organisation
func (cl *OsioClient) OrgSchemas(ctx context.Context, orgID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "OrgSchemas", method: http.MethodGet, versions: versionsV2,
		path: "orgs/%s/schemas", args: []string{orgID}})
}
