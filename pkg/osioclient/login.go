package osioclient

import (
	"context"
	"net/http"

	"github.com/wostzone/osioclient-go/api"
)

// WhoAmI returns the user the api key or token belongs to.
// Version v1 answers with plain text which is returned as {"username": text}.
func (cl *OsioClient) WhoAmI(ctx context.Context) (interface{}, error) {
	c := call{op: "WhoAmI", method: http.MethodGet, versions: versionsAll, path: "whoami"}
	if cl.gateway.APIVersion() == api.APIVersion1 {
		text, err := cl.textResult(ctx, c)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"username": text}, nil
	}
	return cl.jsonResult(ctx, c)
}

// Login with username and password to obtain a JWT.
// Use TokenFromLogin and RestGateway.SetToken to use the token in further requests.
func (cl *OsioClient) Login(ctx context.Context, userID string, password string) (interface{}, error) {
	return cl.jsonResult(ctx, call{op: "Login", method: http.MethodPost, versions: versionsAll,
		path: "login", public: true, body: Credentials{Username: userID, Password: password}})
}

// TokenFromLogin returns the token field of a login result, or "" if there is none
func TokenFromLogin(result interface{}) string {
	fields, ok := result.(map[string]interface{})
	if !ok {
		return ""
	}
	token, _ := fields["token"].(string)
	return token
}
