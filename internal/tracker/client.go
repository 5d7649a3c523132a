// Package tracker is the client for the spreadsheet-backed system of
// record that stores submitted items and their approval status.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const requestTimeout = 10 * time.Second

// Result is terminal: it drives exactly one reply to the sender. Transport
// failures and application-level rejections share the same shape, so the
// caller never needs to tell them apart (the logs still do).
type Result struct {
	Success bool
	Err     string
}

type submitRequest struct {
	Secret      string   `json:"secret"`
	DiscordUser string   `json:"discord_user"`
	Items       []string `json:"items"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type Client struct {
	url    string
	secret string
	http   *http.Client
	log    zerolog.Logger
}

func New(url, secret string, log zerolog.Logger) *Client {
	return &Client{
		url:    url,
		secret: secret,
		http:   &http.Client{Timeout: requestTimeout},
		log:    log,
	}
}

// Submit sends one submission to the tracker. Single attempt, no retry.
func (c *Client) Submit(ctx context.Context, user string, items []string) Result {
	body, err := json.Marshal(submitRequest{Secret: c.secret, DiscordUser: user, Items: items})
	if err != nil {
		return c.failure(user, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return c.failure(user, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.failure(user, err)
	}
	defer resp.Body.Close()

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return c.failure(user, err)
	}

	if !out.Success {
		if out.Error == "" {
			out.Error = "Unknown error"
		}
		return Result{Success: false, Err: out.Error}
	}
	return Result{Success: true}
}

// failure normalizes a transport-level error into the same shape as an
// upstream rejection.
func (c *Client) failure(user string, err error) Result {
	c.log.Warn().Str("user", user).Err(err).Msg("tracker request failed")
	return Result{Success: false, Err: err.Error()}
}
