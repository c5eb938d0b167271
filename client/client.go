// Package client talks to a finledger server on behalf of one user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guileen/finledger/codec"
	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/protocol/api"
	"github.com/guileen/finledger/tableview"
	"github.com/guileen/finledger/types"
)

// Client is a REST client. Calls that need an account use the session set
// with SetSession or obtained from Verify or Login.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithSession starts the client logged in.
func WithSession(s *Session) Option {
	return func(c *Client) {
		c.session = s
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the current session, or nil when logged out.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) SetSession(s *Session) {
	c.session = s
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, "client.Register", http.MethodPost, "/api/users", nil,
		api.CredentialsRequest{Email: email, Password: password}, nil)
}

// Verify confirms the e-mail code and keeps the returned session.
func (c *Client) Verify(ctx context.Context, email, code string) (*Session, error) {
	return c.authenticate(ctx, "client.Verify", "/api/users/verify", api.VerifyRequest{Email: email, Code: code})
}

// Login keeps the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "client.Login", "/api/users/validate", api.CredentialsRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, op, path string, body any) (*Session, error) {
	var out struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	if err := c.do(ctx, op, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	c.session = &Session{Token: out.Token, Username: out.Username, Server: c.baseURL}
	return c.session, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, "client.ForgotPassword", http.MethodPost, "/api/users/forgot-password", nil,
		api.ForgotPasswordRequest{Email: email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.do(ctx, "client.ResetPassword", http.MethodPost, "/api/users/reset-password", nil,
		api.ResetPasswordRequest{Email: email, Code: code, NewPassword: newPassword}, nil)
}

// List fetches every record of one type, typed by the record type's schema.
func (c *Client) List(ctx context.Context, rt types.RecordType) ([]types.Record, error) {
	const op = "client.List"
	schema, ok := types.SchemaFor(rt)
	if !ok {
		return nil, apperrors.NewValidationErrorf(op, "unknown record type %q", rt)
	}

	var raw []json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, "/api/"+string(rt), nil, nil, &raw); err != nil {
		return nil, err
	}
	records := make([]types.Record, 0, len(raw))
	for _, data := range raw {
		rec, err := codec.DecodeRecord(data, schema)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeFormat, op)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Submit inserts one record and returns it as stored.
func (c *Client) Submit(ctx context.Context, rt types.RecordType, input map[string]any) (types.Record, error) {
	const op = "client.Submit"
	schema, ok := types.SchemaFor(rt)
	if !ok {
		return nil, apperrors.NewValidationErrorf(op, "unknown record type %q", rt)
	}
	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodPost, "/api/"+string(rt), nil, input, &raw); err != nil {
		return nil, err
	}
	rec, err := codec.DecodeRecord(raw, schema)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeFormat, op)
	}
	return rec, nil
}

// Schema fetches the server's declared schema of a record type.
func (c *Client) Schema(ctx context.Context, rt types.RecordType) (types.Schema, error) {
	var schema types.Schema
	err := c.do(ctx, "client.Schema", http.MethodGet, "/api/"+string(rt)+"/schema", nil, nil, &schema)
	return schema, err
}

// View asks the server to filter, lay out and page a record type.
func (c *Client) View(ctx context.Context, rt types.RecordType, q api.ViewQuery) (*tableview.Rendered, error) {
	var out tableview.Rendered
	if err := c.do(ctx, "client.View", http.MethodGet, "/api/"+string(rt)+"/view", q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil && c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeUnknown, op, "request to %s failed", c.baseURL)
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeFormat, op, "unexpected response (HTTP %d)", resp.StatusCode)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return apperrors.New(codeForStatus(resp.StatusCode), op, msg)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	dataDec := json.NewDecoder(bytes.NewReader(env.Data))
	dataDec.UseNumber()
	if err := dataDec.Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeFormat, op)
	}
	return nil
}

// codeForStatus inverts errors.HTTPStatus.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrCodeValidation
	case http.StatusNotFound:
		return apperrors.ErrCodeNotFound
	case http.StatusConflict:
		return apperrors.ErrCodeConflict
	case http.StatusUnauthorized:
		return apperrors.ErrCodeUnauthorized
	case http.StatusTooManyRequests:
		return apperrors.ErrCodeRateLimited
	case http.StatusUnprocessableEntity:
		return apperrors.ErrCodeFormat
	default:
		return apperrors.ErrCodeUnknown
	}
}
