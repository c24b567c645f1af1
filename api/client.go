// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package api is a typed client for the cynical circle REST backend.
package api

import (
	"bytes"
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

// DefaultBaseURL is where the backend listens in development
const DefaultBaseURL = "http://127.0.0.1:8000"

// Observer is told about every finished call
type Observer func(op, outcome string, dur time.Duration)

// Client talks to the backend. It has no timeout and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithObserver installs a callback invoked after every call
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do issues a request and hands a 2xx body to decode, if given
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload interface{}, decode func([]byte) error) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer(op, Outcome(err), time.Since(start))
		}
	}()

	uri := c.baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	var reqBody io.Reader
	if payload != nil {
		d, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("api: encoding %s payload: %w", op, err)
		}
		reqBody = bytes.NewReader(d)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, reqBody)
	if err != nil {
		return &ConnectivityError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectivityError{Err: err}
	}
	defer rsp.Body.Close()
	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return &ConnectivityError{Err: err}
	}

	switch {
	case rsp.StatusCode >= 200 && rsp.StatusCode < 300:
		if decode == nil {
			return nil
		}
		return decode(body)
	case rsp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case rsp.StatusCode == http.StatusUnprocessableEntity:
		return &ValidationError{Message: detailMessage(body)}
	default:
		return &StatusError{StatusCode: rsp.StatusCode, Message: detailMessage(body)}
	}
}

// decodeRecord returns a decoder that validates a single record into dst
func decodeRecord[T any, P interface {
	*T
	Validate() error
}](dst **T) func([]byte) error {
	return func(body []byte) error {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return &ConnectivityError{Err: err}
		}
		if err := P(&v).Validate(); err != nil {
			return &ConnectivityError{Err: err}
		}
		*dst = &v
		return nil
	}
}

// decodeList returns a decoder that validates every record of a list into dst
func decodeList[T any, P interface {
	*T
	Validate() error
}](dst *[]T) func([]byte) error {
	return func(body []byte) error {
		var list []T
		if err := json.Unmarshal(body, &list); err != nil {
			return &ConnectivityError{Err: err}
		}
		for i := range list {
			if err := P(&list[i]).Validate(); err != nil {
				return &ConnectivityError{Err: err}
			}
		}
		if list == nil {
			list = []T{}
		}
		*dst = list
		return nil
	}
}

// Ping checks that the backend answers on its root
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/", nil, nil, nil)
}

// ListUsers returns all users. The backend answers 404 when there are none,
// which is reported as an empty list.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := c.do(ctx, "list_users", http.MethodGet, "/users/", nil, nil, decodeList[User](&users))
	if errors.Is(err, ErrNotFound) {
		return []User{}, nil
	}
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns a user by id
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var u *User
	if err := c.do(ctx, "get_user", http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, decodeRecord[User](&u)); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser registers a new user
func (c *Client) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	var u *User
	if err := c.do(ctx, "create_user", http.MethodPost, "/users/", nil, nu, decodeRecord[User](&u)); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateStatus sets the status of a user. An empty status clears it.
func (c *Client) UpdateStatus(ctx context.Context, userID string, status Status) (*User, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {string(status)}}
	}
	var u *User
	path := "/users/" + url.PathEscape(userID) + "/status"
	if err := c.do(ctx, "update_status", http.MethodPut, path, q, nil, decodeRecord[User](&u)); err != nil {
		return nil, err
	}
	return u, nil
}

// ListPosts returns all posts, newest first. Returns ErrNotFound when
// the backend has no posts.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := c.do(ctx, "list_posts", http.MethodGet, "/posts/", nil, nil, decodeList[Post](&posts)); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns a post by id
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	var p *Post
	if err := c.do(ctx, "get_post", http.MethodGet, "/posts/"+url.PathEscape(id), nil, nil, decodeRecord[Post](&p)); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePost creates a post owned by userID
func (c *Client) CreatePost(ctx context.Context, userID string, np NewPost) (*Post, error) {
	q := url.Values{"user_id": {userID}}
	var p *Post
	if err := c.do(ctx, "create_post", http.MethodPost, "/posts/", q, np, decodeRecord[Post](&p)); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePost deletes a post
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, "delete_post", http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil, nil)
}

// React adds one reaction of type rt by userID and returns the
// updated post as the backend sees it
func (c *Client) React(ctx context.Context, postID, userID string, rt ReactionType) (*Post, error) {
	q := url.Values{
		"user_id":       {userID},
		"reaction_type": {string(rt)},
	}
	var p *Post
	path := "/posts/" + url.PathEscape(postID) + "/react"
	if err := c.do(ctx, "react", http.MethodPost, path, q, nil, decodeRecord[Post](&p)); err != nil {
		return nil, err
	}
	return p, nil
}

// ListComments returns comments of a post, oldest first
func (c *Client) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	var comments []Comment
	path := "/posts/" + url.PathEscape(postID) + "/comments/"
	if err := c.do(ctx, "list_comments", http.MethodGet, path, nil, nil, decodeList[Comment](&comments)); err != nil {
		return nil, err
	}
	return comments, nil
}

// AddComment adds a comment by userID to a post
func (c *Client) AddComment(ctx context.Context, postID, userID string, nc NewComment) (*Comment, error) {
	q := url.Values{"user_id": {userID}}
	var cm *Comment
	path := "/posts/" + url.PathEscape(postID) + "/comments/"
	if err := c.do(ctx, "add_comment", http.MethodPost, path, q, nc, decodeRecord[Comment](&cm)); err != nil {
		return nil, err
	}
	return cm, nil
}
