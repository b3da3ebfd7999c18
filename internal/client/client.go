// Package client talks to the comment API over HTTP and websockets.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"elim/internal/models"
	"elim/internal/realtime"
	"elim/internal/thread"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// APIError is a non-2xx answer from the server. It unwraps to the matching
// model error so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.StatusCode)
	}
	return fmt.Sprintf("server answered %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return models.ErrEmptyContent
	case http.StatusUnauthorized:
		return models.ErrUnauthenticated
	case http.StatusNotFound:
		return models.ErrPostNotFound
	case http.StatusUnprocessableEntity:
		return models.ErrParentNotFound
	}
	return nil
}

type Client struct {
	baseURL string
	http    *resty.Client
}

func New(baseURL string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json").
			SetTimeout(15 * time.Second),
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&APIError{})
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.StatusCode = resp.StatusCode()
	return apiErr
}

// Login uses development sign-in; the session cookie is kept for later calls.
func (c *Client) Login(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	resp, err := c.request(ctx).
		SetBody(map[string]string{"username": username}).
		SetResult(&profile).
		Post("/api/session")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Me returns the signed-in profile, or nil when there is none.
func (c *Client) Me(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	resp, err := c.request(ctx).SetResult(&profile).Get("/api/me")
	if err == nil && resp.StatusCode() == http.StatusUnauthorized {
		return nil, nil
	}
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) ListComments(ctx context.Context, postID string) ([]*thread.Node, error) {
	var out struct {
		Comments []*thread.Node `json:"comments"`
	}
	resp, err := c.request(ctx).
		SetPathParam("id", postID).
		SetResult(&out).
		Get("/api/posts/{id}/comments")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if out.Comments == nil {
		out.Comments = []*thread.Node{}
	}
	return out.Comments, nil
}

func (c *Client) CreateComment(ctx context.Context, postID, content string, parentID *string) (*models.Comment, error) {
	var created models.Comment
	resp, err := c.request(ctx).
		SetPathParam("id", postID).
		SetBody(map[string]any{"content": content, "parentId": parentID}).
		SetResult(&created).
		Post("/api/posts/{id}/comments")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteComment reports whether a row was removed. Deleting someone else's
// comment is not an error.
func (c *Client) DeleteComment(ctx context.Context, id string) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Delete("/api/comments/{id}")
	if err := check(resp, err); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

// Subscribe streams change events of one post until ctx is done or the
// server goes away; the channel is closed then.
func (c *Client) Subscribe(ctx context.Context, postID string) (<-chan realtime.Event, error) {
	u, err := url.Parse(c.baseURL + "/api/posts/" + url.PathEscape(postID) + "/comments/live")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	dialer := *websocket.DefaultDialer
	dialer.Jar = c.http.GetClient().Jar
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe to post %s: %w", postID, err)
	}

	events := make(chan realtime.Event)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(events)
		defer close(done)
		for {
			var ev realtime.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
