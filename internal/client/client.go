// Package client is an HTTP client for the contact manager REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/contactkeeper/internal/auth"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the server. Msg is the server's message, or the
// first field message of a validation failure.
type APIError struct {
	StatusCode int
	Msg        string
}

func (e *APIError) Error() string {
	return e.Msg
}

// Client talks to the API and remembers the token it sends as x-auth-token.
type Client struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// SetToken sets the token attached to later requests. An empty token removes it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" {
		req.SetHeader(auth.TokenHeader, c.token)
	}

	return req
}

func (c *Client) Register(ctx context.Context, request models.RegisterRequest) (string, error) {
	var result models.TokenResponse
	resp, err := c.request(ctx).SetBody(request).SetResult(&result).Post("/api/users")
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}

	return result.Token, nil
}

func (c *Client) Login(ctx context.Context, request models.LoginRequest) (string, error) {
	var result models.TokenResponse
	resp, err := c.request(ctx).SetBody(request).SetResult(&result).Post("/api/auth")
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}

	return result.Token, nil
}

// LoadUser returns the user the current token belongs to.
func (c *Client) LoadUser(ctx context.Context) (*models.User, error) {
	var result models.User
	resp, err := c.request(ctx).SetResult(&result).Get("/api/auth")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) GetContacts(ctx context.Context) ([]models.Contact, error) {
	var result []models.Contact
	resp, err := c.request(ctx).SetResult(&result).Get("/api/contacts")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) AddContact(ctx context.Context, request models.CreateContactRequest) (*models.Contact, error) {
	var result models.Contact
	resp, err := c.request(ctx).SetBody(request).SetResult(&result).Post("/api/contacts")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) UpdateContact(ctx context.Context, contactID string, request models.UpdateContactRequest) (*models.Contact, error) {
	var result models.Contact
	resp, err := c.request(ctx).
		SetBody(request).
		SetResult(&result).
		SetPathParam("id", contactID).
		Put("/api/contacts/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) DeleteContact(ctx context.Context, contactID string) error {
	resp, err := c.request(ctx).SetPathParam("id", contactID).Delete("/api/contacts/{id}")
	return checkResponse(resp, err)
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("in internal/client/client.go/checkResponse(): request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	return &APIError{
		StatusCode: resp.StatusCode(),
		Msg:        errorMessage(resp),
	}
}

func errorMessage(resp *resty.Response) string {
	var validation models.ValidationErrorsResponse
	if err := json.Unmarshal(resp.Body(), &validation); err == nil && len(validation.Errors) > 0 {
		return validation.Errors[0].Msg
	}

	var message models.MessageResponse
	if err := json.Unmarshal(resp.Body(), &message); err == nil && message.Msg != "" {
		return message.Msg
	}

	return http.StatusText(resp.StatusCode())
}
