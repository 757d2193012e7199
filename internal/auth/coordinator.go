package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"

	"maguffin.dev/stackengine/internal/provider"
)

// Coordinator implements provider.AuthProvider as the 3-state device-flow
// machine: Unauthenticated -> Pending -> Authenticated,
// with self-loops on authorization_pending/slow_down.
type Coordinator struct {
	http     *http.Client
	keystore *KeyStore
	clientID string

	deviceCodeURL string
	tokenURL      string
	userAPIURL    string

	mu          sync.Mutex
	state       provider.AuthState
	deviceCode  string
	minInterval time.Duration
}

// NewCoordinator builds a Coordinator against the GitHub device-flow
// endpoints. clientID overrides githubClientID when non-empty (wired from
// internal/config's MAGUFFIN_GITHUB_CLIENT_ID environment override).
func NewCoordinator(keystore *KeyStore, clientID string) *Coordinator {
	if clientID == "" {
		clientID = githubClientID
	}
	return &Coordinator{
		http:          &http.Client{Timeout: 15 * time.Second},
		keystore:      keystore,
		clientID:      clientID,
		deviceCodeURL: deviceCodeURL,
		tokenURL:      tokenURL,
		userAPIURL:    userAPIURL,
		state:         provider.AuthState{Kind: provider.AuthUnauthenticated},
	}
}

// WithEndpoints overrides the device-flow endpoints, for tests that stand
// up a local httptest.Server instead of talking to github.com.
func (c *Coordinator) WithEndpoints(deviceCode, token, userAPI string) *Coordinator {
	c.deviceCodeURL, c.tokenURL, c.userAPIURL = deviceCode, token, userAPI
	return c
}

// AuthState returns the coordinator's current state.
func (c *Coordinator) AuthState() provider.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartAuth implements provider.AuthProvider.
func (c *Coordinator) StartAuth(ctx context.Context) (*provider.DeviceFlowPending, error) {
	form := url.Values{"client_id": {c.clientID}, "scope": {"repo"}}
	var resp deviceCodeResponse
	if err := c.postForm(ctx, c.deviceCodeURL, form, &resp); err != nil {
		return nil, &OAuthFailedError{Msg: err.Error()}
	}

	pending := &provider.DeviceFlowPending{
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		ExpiresAt:       time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Interval:        time.Duration(resp.Interval) * time.Second,
	}

	c.mu.Lock()
	c.deviceCode = resp.DeviceCode
	c.minInterval = pending.Interval
	c.state = provider.AuthState{Kind: provider.AuthPending, Pending: pending}
	c.mu.Unlock()

	return pending, nil
}

// PollAuth implements provider.AuthProvider. Outcomes:
// token -> Authenticated (persisted); authorization_pending/slow_down ->
// remain Pending (slow_down widens the minimum poll interval by >=5s,
// satisfying P7); expired_token/access_denied -> Unauthenticated with an
// OAuthFailedError.
func (c *Coordinator) PollAuth(ctx context.Context, deviceCode string) (*provider.AuthState, error) {
	form := url.Values{
		"client_id":   {c.clientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &OAuthFailedError{Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &OAuthFailedError{Msg: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &OAuthFailedError{Msg: err.Error()}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err == nil && tok.AccessToken != "" {
		return c.completeAuth(ctx, tok.AccessToken)
	}

	var pollErr tokenErrorResponse
	if err := json.Unmarshal(body, &pollErr); err == nil && pollErr.Error != "" {
		switch {
		case pollErr.isPending():
			return c.snapshotState(), nil
		case pollErr.isSlowDown():
			c.mu.Lock()
			c.minInterval += 5 * time.Second
			if c.state.Pending != nil {
				c.state.Pending.Interval = c.minInterval
			}
			c.mu.Unlock()
			return c.snapshotState(), nil
		case pollErr.isExpired():
			c.resetToUnauthenticated()
			return nil, &OAuthFailedError{Msg: "Device code expired"}
		case pollErr.isDenied():
			c.resetToUnauthenticated()
			return nil, &OAuthFailedError{Msg: "Access denied by user"}
		}
	}

	return nil, &OAuthFailedError{Msg: "unexpected device flow response: " + string(body)}
}

func (c *Coordinator) snapshotState() *provider.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	return &s
}

func (c *Coordinator) resetToUnauthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = provider.AuthState{Kind: provider.AuthUnauthenticated}
	c.deviceCode = ""
}

func (c *Coordinator) completeAuth(ctx context.Context, token string) (*provider.AuthState, error) {
	user, err := c.fetchUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.keystore.StoreToken(tokenAccount, token); err != nil {
		return nil, err
	}

	state := githubUserToAuthState(*user, token)
	c.mu.Lock()
	c.state = *state
	c.deviceCode = ""
	c.mu.Unlock()
	return state, nil
}

// RestoreAuth implements provider.AuthProvider: loads the stored token and
// validates it against /user; an invalid token is deleted and the
// coordinator reverts to Unauthenticated.
func (c *Coordinator) RestoreAuth(ctx context.Context) (*provider.AuthState, error) {
	has, err := c.keystore.HasToken(tokenAccount)
	if err != nil {
		return nil, err
	}
	if !has {
		return &provider.AuthState{Kind: provider.AuthUnauthenticated}, nil
	}

	token, _, err := c.keystore.GetToken(tokenAccount)
	if err != nil {
		return nil, err
	}

	user, err := c.fetchUser(ctx, token)
	if err != nil {
		logrus.WithError(err).Warn("stored token rejected by provider, clearing")
		_ = c.keystore.DeleteToken(tokenAccount)
		c.resetToUnauthenticated()
		return &provider.AuthState{Kind: provider.AuthUnauthenticated}, nil
	}

	state := githubUserToAuthState(*user, token)
	c.mu.Lock()
	c.state = *state
	c.mu.Unlock()
	return state, nil
}

// Logout implements provider.AuthProvider.
func (c *Coordinator) Logout(ctx context.Context) error {
	if err := c.keystore.DeleteToken(tokenAccount); err != nil {
		return err
	}
	c.resetToUnauthenticated()
	return nil
}

func (c *Coordinator) fetchUser(ctx context.Context, token string) (*githubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userAPIURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build user request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch user")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &TokenExpiredError{}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status fetching user: %d", resp.StatusCode)
	}

	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, errors.Wrap(err, "failed to decode user response")
	}
	return &u, nil
}

func (c *Coordinator) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.Errorf("device flow request to %s failed: %s", endpoint, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
