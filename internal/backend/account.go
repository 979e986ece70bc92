package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/credentials"
)

// User is the profile the backend keeps for a shopper.
type User struct {
	UserID       ID     `json:"userId"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	MobileNumber string `json:"mobileNumber"`
	Image        string `json:"image,omitempty"`
}

type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Image     *File // optional avatar
}

// UserUpdate carries the profile fields to change. Empty fields are left out of
// the request; a password change is sent on its own.
type UserUpdate struct {
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	MobileNumber string `json:"mobileNumber,omitempty"`
	Email        string `json:"email,omitempty"`
	Password     string `json:"password,omitempty"`
}

// Register creates an account. It does not sign the new user in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	const op = "register"
	fields := []formField{
		{name: "email", value: reg.Email},
		{name: "password", value: reg.Password},
		{name: "firstName", value: reg.FirstName},
		{name: "lastName", value: reg.LastName},
		{name: "phone", value: reg.Phone},
	}
	if reg.Image != nil {
		fields = append(fields, formField{name: "image", file: reg.Image})
	}
	body, contentType, err := encodeForm(fields...)
	if err != nil {
		return fmt.Errorf("%s: encode form: %w", op, err)
	}

	_, err = c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        "/register",
		body:        body,
		contentType: contentType,
	})
	return err
}

func (c *Client) GetUserByEmail(ctx context.Context, cred credentials.Credential, email string) (*User, error) {
	const op = "get user"
	token, err := authed(op, cred)
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/public/users/email/" + segment(email),
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, cred credentials.Credential, userID string, update UserUpdate) error {
	const op = "update user"
	token, err := authed(op, cred)
	if err != nil {
		return err
	}
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	_, err = c.do(ctx, call{
		op:          op,
		method:      http.MethodPut,
		path:        "/public/users/" + segment(userID),
		body:        body,
		contentType: "application/json",
		token:       token,
	})
	return err
}

// UploadAvatar replaces the profile picture of userID.
func (c *Client) UploadAvatar(ctx context.Context, cred credentials.Credential, userID string, image File) error {
	const op = "upload avatar"
	token, err := authed(op, cred)
	if err != nil {
		return err
	}
	body, contentType, err := encodeForm(formField{name: "image", file: &image})
	if err != nil {
		return fmt.Errorf("%s: encode form: %w", op, err)
	}

	_, err = c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        fmt.Sprintf("/public/users/%s/image", segment(userID)),
		body:        body,
		contentType: contentType,
		token:       token,
	})
	return err
}
