package cmsapi

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

type Contact struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SubmitContact stores a message sent from the public contact form.
func (c *Client) SubmitContact(ctx context.Context, req ContactRequest) error {
	return c.sendJSON(ctx, "submit_contact", http.MethodPost, "/contacts", "", req, nil)
}

func (c *Client) ListContacts(ctx context.Context, token string) ([]Contact, error) {
	var resp envelope[[]Contact]
	if err := c.sendJSON(ctx, "list_contacts", http.MethodGet, "/contacts", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) DeleteContact(ctx context.Context, token, id string) error {
	return c.sendJSON(ctx, "delete_contact", http.MethodDelete, "/contacts/"+url.PathEscape(id), token, nil, nil)
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var resp envelope[[]User]
	if err := c.sendJSON(ctx, "list_users", http.MethodGet, "/users", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) CreateUser(ctx context.Context, token string, req CreateUserRequest) (User, error) {
	var resp envelope[User]
	if err := c.sendJSON(ctx, "create_user", http.MethodPost, "/users", token, req, &resp); err != nil {
		return User{}, err
	}
	return resp.Data, nil
}

func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	return c.sendJSON(ctx, "delete_user", http.MethodDelete, "/users/"+url.PathEscape(id), token, nil, nil)
}
