package examprep

import (
	"context"
	"fmt"

	"github.com/p-n-ai/pai-quiz/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials against the remote user service.
func (c *Client) Login(ctx context.Context, username, password string) (session.User, error) {
	var user session.User
	if err := c.postJSON(ctx, pathLogin, loginRequest{Username: username, Password: password}, loginSchema, &user); err != nil {
		return session.User{}, fmt.Errorf("login: %w", err)
	}
	return user, nil
}
