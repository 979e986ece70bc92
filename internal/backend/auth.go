package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// LoginResult is what the login endpoint hands back. The token key differs between
// backend versions.
type LoginResult struct {
	Token  string   `json:"-"`
	Email  string   `json:"email"`
	UserID ID       `json:"userId"`
	Roles  []string `json:"roles"`
}

type loginResponse struct {
	JWTTokenDash string   `json:"jwt-token"`
	JWTToken     string   `json:"jwtToken"`
	Token        string   `json:"token"`
	Email        string   `json:"email"`
	UserID       ID       `json:"userId"`
	Roles        []string `json:"roles"`
}

func (r loginResponse) token() string {
	for _, t := range []string{r.JWTTokenDash, r.JWTToken, r.Token} {
		if t != "" {
			return t
		}
	}
	return ""
}

// Login posts the credentials as a multipart form. A response without any token is
// treated as a rejected login.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "login"
	body, contentType, err := encodeForm(
		formField{name: "email", value: email},
		formField{name: "password", value: password},
	)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%s: encode form: %w", op, err)
	}

	data, err := c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        "/login",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return LoginResult{}, err
	}

	var resp loginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return LoginResult{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	token := resp.token()
	if token == "" {
		return LoginResult{}, fmt.Errorf("%s: no token in response: %w", op, ErrUnauthenticated)
	}

	result := LoginResult{
		Token:  token,
		Email:  resp.Email,
		UserID: resp.UserID,
		Roles:  resp.Roles,
	}
	if result.Email == "" {
		result.Email = email
	}
	return result, nil
}
