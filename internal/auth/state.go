package auth

import (
	"maguffin.dev/stackengine/internal/provider"
)

// tokenAccount is the fixed KeyStore account name for the single GitHub
// token this engine manages.
const tokenAccount = "github"

const userAgent = "maguffin-stackengine"

// githubClientID is the default OAuth app client id for the device flow,
// overridable via internal/config's MAGUFFIN_GITHUB_CLIENT_ID.
const githubClientID = "Ov23liYwNsRRRrKOQCvj"

const (
	deviceCodeURL = "https://github.com/login/device/code"
	tokenURL      = "https://github.com/login/oauth/access_token"
	userAPIURL    = "https://api.github.com/user"
)

// pollErrorCode mirrors the token endpoint's error field values.
type pollErrorCode string

const (
	pollAuthorizationPending pollErrorCode = "authorization_pending"
	pollSlowDown             pollErrorCode = "slow_down"
	pollExpiredToken         pollErrorCode = "expired_token"
	pollAccessDenied         pollErrorCode = "access_denied"
)

type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

type tokenErrorResponse struct {
	Error            pollErrorCode `json:"error"`
	ErrorDescription string        `json:"error_description"`
}

func (r *tokenErrorResponse) isPending() bool  { return r.Error == pollAuthorizationPending }
func (r *tokenErrorResponse) isSlowDown() bool { return r.Error == pollSlowDown }
func (r *tokenErrorResponse) isExpired() bool  { return r.Error == pollExpiredToken }
func (r *tokenErrorResponse) isDenied() bool   { return r.Error == pollAccessDenied }

type githubUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
	ID    int64  `json:"id"`
}

func githubUserToAuthState(u githubUser, token string) *provider.AuthState {
	return &provider.AuthState{
		Kind:  provider.AuthAuthenticated,
		Login: u.Login,
		Name:  u.Name,
		Email: u.Email,
		Token: token,
	}
}
