// Package socialclient talks to the social service comment API and
// implements threads.Backend for one signed-in session.
package socialclient

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

	"github.com/example/skin-platform/internal/platform/httpserver"
	"github.com/example/skin-platform/services/bff/internal/threads"
)

const userAgent = "skin-platform-bff/1.0"

// APIError is a non-2xx answer from the social service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("social: status %d %s: %s", e.Status, e.Code, e.Message)
}

// PublicMessage exposes the server message for client errors only.
func (e *APIError) PublicMessage() string {
	if e.Status >= 400 && e.Status < 500 {
		return e.Message
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the social service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token returns the bearer token to send; empty means anonymous.
	Token func() string
}

var _ threads.Backend = (*Client)(nil)

func New(baseURL string, token func() string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Token:      token,
	}
}

type listResponse struct {
	Comments []threads.Comment `json:"comments"`
}

type repliesResponse struct {
	Replies []threads.Reply `json:"replies"`
}

type textRequest struct {
	Text string `json:"text"`
}

func (c *Client) ListComments(ctx context.Context, subject threads.Subject) ([]threads.Comment, error) {
	var out listResponse
	if err := c.do(ctx, http.MethodGet, c.commentsPath(subject), nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (c *Client) GetUserComment(ctx context.Context, subject threads.Subject, authorID string) (*threads.Comment, error) {
	var out threads.Comment
	err := c.do(ctx, http.MethodGet, c.commentsPath(subject)+"/by/"+url.PathEscape(authorID), nil, &out)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PostComment(ctx context.Context, subject threads.Subject, text string) (threads.Comment, error) {
	var out threads.Comment
	err := c.do(ctx, http.MethodPost, c.commentsPath(subject), textRequest{Text: text}, &out)
	return out, err
}

func (c *Client) ListReplies(ctx context.Context, subject threads.Subject, commentID string) ([]threads.Reply, error) {
	var out repliesResponse
	if err := c.do(ctx, http.MethodGet, c.commentPath(subject, commentID)+"/replies", nil, &out); err != nil {
		return nil, err
	}
	return out.Replies, nil
}

func (c *Client) PostReply(ctx context.Context, subject threads.Subject, commentID, text string) (threads.Reply, error) {
	var out threads.Reply
	err := c.do(ctx, http.MethodPost, c.commentPath(subject, commentID)+"/replies", textRequest{Text: text}, &out)
	return out, err
}

func (c *Client) Like(ctx context.Context, subject threads.Subject, targetID, parentCommentID string) error {
	return c.do(ctx, http.MethodPost, c.targetPath(subject, targetID, parentCommentID)+"/like", nil, nil)
}

func (c *Client) Unlike(ctx context.Context, subject threads.Subject, targetID, parentCommentID string) error {
	return c.do(ctx, http.MethodPost, c.targetPath(subject, targetID, parentCommentID)+"/unlike", nil, nil)
}

func (c *Client) DeleteComment(ctx context.Context, subject threads.Subject, commentID string) error {
	return c.do(ctx, http.MethodDelete, c.commentPath(subject, commentID), nil, nil)
}

func (c *Client) DeleteReply(ctx context.Context, subject threads.Subject, commentID, replyID string) error {
	return c.do(ctx, http.MethodDelete, c.commentPath(subject, commentID)+"/replies/"+url.PathEscape(replyID), nil, nil)
}

func (c *Client) commentsPath(s threads.Subject) string {
	return fmt.Sprintf("%s/v1/%s/%s/comments", c.BaseURL, url.PathEscape(string(s.Type)), url.PathEscape(s.ID))
}

func (c *Client) commentPath(s threads.Subject, commentID string) string {
	return c.commentsPath(s) + "/" + url.PathEscape(commentID)
}

// targetPath addresses a comment, or a reply when parentID is set.
func (c *Client) targetPath(s threads.Subject, targetID, parentID string) string {
	if parentID == "" {
		return c.commentPath(s, targetID)
	}
	return c.commentPath(s, parentID) + "/replies/" + url.PathEscape(targetID)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("social: encode: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid := httpserver.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set(httpserver.RequestIDHeader, rid)
	}
	if c.Token != nil {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, b)
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("social: decode error: %w body=%q", err, string(b[:min(len(b), 200)]))
	}
	return nil
}

func decodeError(status int, b []byte) error {
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status, Code: "HTTP_" + fmt.Sprint(status)}
	if err := json.Unmarshal(b, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(b[:min(len(b), 200)]))
	}
	return apiErr
}
