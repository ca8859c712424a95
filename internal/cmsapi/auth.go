package cmsapi

import (
	"context"
	"errors"
	"net/http"
)

var errMissingToken = errors.New("backend response carried no token")

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RequestOTP asks the backend to email a one time password to an admin address.
func (c *Client) RequestOTP(ctx context.Context, email string) error {
	return c.sendJSON(ctx, "request_otp", http.MethodPost, "/auth/admin/request-otp/", "", otpRequest{Email: email}, nil)
}

// VerifyOTP exchanges an OTP for a short lived session token.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	var resp struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := c.sendJSON(ctx, "verify_otp", http.MethodPost, "/auth/admin/verify-otp/", "", otpRequest{Email: email, OTP: otp}, &resp); err != nil {
		return "", err
	}
	if resp.SessionToken == "" {
		return "", errMissingToken
	}
	return resp.SessionToken, nil
}

// Login trades the session token and password for the admin auth token.
func (c *Client) Login(ctx context.Context, email, password, sessionToken string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.sendJSON(ctx, "login", http.MethodPost, "/auth/admin/login/", sessionToken, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errMissingToken
	}
	return resp.Token, nil
}
