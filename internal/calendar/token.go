package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTokenURL = "https://oauth2.googleapis.com/token"

// ErrInvalidGrant means the stored refresh token was revoked or expired.
// Fatal for the run; the user must reconnect their calendar.
var ErrInvalidGrant = errors.New("calendar: refresh token rejected")

// TokenSource exchanges a long-lived refresh token for a short-lived
// access token.
type TokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewTokenSource builds a TokenSource. tokenURL may be empty for the
// production endpoint.
func NewTokenSource(tokenURL, clientID, clientSecret string, timeout time.Duration) *TokenSource {
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: timeout},
	}
}

// Refresh performs the refresh_token grant and returns the access token.
func (t *TokenSource) Refresh(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {t.clientID},
		"client_secret": {t.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error == "invalid_grant" {
			return "", ErrInvalidGrant
		}
		return "", fmt.Errorf("token refresh: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token refresh: response carried no access token")
	}
	return tok.AccessToken, nil
}
