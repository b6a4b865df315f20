package service

import (
	"context"
	"net/http"
)

// AuthResult is the body of a register or login response
type AuthResult struct {
	Success bool   `json:"success"`
	Token   string `json:"data"`
	Message string `json:"message,omitempty"`
}

// AuthService calls the register and login endpoints. The returned token is
// opaque; building the user profile is up to the caller.
type AuthService struct {
	api Caller
}

func NewAuthService(api Caller) *AuthService {
	return &AuthService{api: api}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	var res AuthResult
	err := s.api.Do(ctx, http.MethodPost, registerPath, registerRequest{Name: name, Email: email, Password: password}, &res)
	return res, err
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var res AuthResult
	err := s.api.Do(ctx, http.MethodPost, loginPath, loginRequest{Email: email, Password: password}, &res)
	return res, err
}
