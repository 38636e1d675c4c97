package osioclient

import (
	"context"
	"net/http"
)

// CreateDevice registers a new device for the user and returns its credentials
//  device with the client-id, name, description, tags, location and password
func (cl *OsioClient) CreateDevice(ctx context.Context, userID string, device interface{}) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "CreateDevice", method: http.MethodPost, versions: versionsV1,
		path: "users/%s/devices", args: []string{userID}, body: device})
}

// UserDevices returns the devices of the user
func (cl *OsioClient) UserDevices(ctx context.Context, userID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "UserDevices", method: http.MethodGet, versions: versionsAll,
		path: "users/%s/devices", args: []string{userID}})
}

// DeviceMeta returns the device description
//  query with optional url parameters, nil for none
func (cl *OsioClient) DeviceMeta(ctx context.Context, userID string, clientID string, query interface{}) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "DeviceMeta", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/devices/%s", args: []string{userID, clientID}, query: query})
}

// DeleteDevice removes a device of the user
func (cl *OsioClient) DeleteDevice(ctx context.Context, userID string, clientID string) (bool, error) {
	return cl.actionResult(ctx, call{op: "DeleteDevice", method: http.MethodDelete, versions: versionsV1,
		path: "users/%s/devices/%s", args: []string{userID, clientID}})
}

// UpdateDeviceMeta updates the device description
func (cl *OsioClient) UpdateDeviceMeta(ctx context.Context, userID string, clientID string, meta interface{}) (bool, error) {
	return cl.actionResult(ctx, call{op: "UpdateDeviceMeta", method: http.MethodPut, versions: versionsV1,
		path: "users/%s/devices/%s", args: []string{userID, clientID}, body: meta})
}

// ResetDevicePassword generates a new MQTT password for the device
func (cl *OsioClient) ResetDevicePassword(ctx context.Context, userID string, clientID string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "ResetDevicePassword", method: http.MethodPost, versions: versionsV1,
		path: "users/%s/devices/%s/reset-password", args: []string{userID, clientID}})
}

// DevicesInfo returns the latest values of multiple devices in one call
func (cl *OsioClient) DevicesInfo(ctx context.Context, userID string, query interface{}) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "DevicesInfo", method: http.MethodGet, versions: versionsV1,
		path: "users/%s/devices/bulk", args: []string{userID}, query: query})
}

// DeleteDevices removes multiple devices in one transaction
//  devices is a list of {"client-id": id}
func (cl *OsioClient) DeleteDevices(ctx context.Context, userID string, devices interface{}) (bool, error) {
	return cl.actionResult(ctx, call{op: "DeleteDevices", method: http.MethodDelete, versions: versionsV1,
		path: "users/%s/devices/bulk", args: []string{userID}, body: devices})
}

// UpdateDevices updates the description, tags and location of multiple devices in one call
func (cl *OsioClient) UpdateDevices(ctx context.Context, userID string, update interface{}) (bool, error) {
	return cl.actionResult(ctx, call{op: "UpdateDevices", method: http.MethodPut, versions: versionsV1,
		path: "users/%s/devices/bulk", args: []string{userID}, body: update})
}

// CreateDevices registers multiple devices in one transaction
func (cl *OsioClient) CreateDevices(ctx context.Context, userID string, devices interface{}) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "CreateDevices", method: http.MethodPost, versions: versionsV1,
		path: "users/%s/devices/bulk", args: []string{userID}, body: devices})
}
