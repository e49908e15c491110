package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenSkew renews a token this long before it expires.
const tokenSkew = 30 * time.Second

func (c *ModelClient) ensureToken(ctx context.Context, cfg OAuth2Config) (string, error) {
	c.tokenLock.Lock()
	defer c.tokenLock.Unlock()
	if c.token != nil && time.Now().Add(tokenSkew).Before(c.token.expiresAt) {
		return c.token.accessToken, nil
	}
	tok, err := c.fetchToken(ctx, cfg)
	if err != nil {
		return "", err
	}
	c.token = tok
	return tok.accessToken, nil
}

func (c *ModelClient) fetchToken(ctx context.Context, cfg OAuth2Config) (*oauthToken, error) {
	values := url.Values{}
	values.Set("client_id", cfg.ClientID)
	values.Set("client_secret", cfg.Secret)
	values.Set("grant_type", "client_credentials")
	if cfg.Audience != "" {
		values.Set("audience", cfg.Audience)
	}
	if len(cfg.Scopes) > 0 {
		values.Set("scope", strings.Join(cfg.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.configLock.Lock()
	cli := c.httpClient
	c.configLock.Unlock()

	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oauth token request failed: %s", resp.Status)
	}

	var body struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int    `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	if body.Error != "" {
		return nil, fmt.Errorf("oauth error: %s - %s", body.Error, body.ErrorDescription)
	}
	return &oauthToken{
		accessToken: body.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
