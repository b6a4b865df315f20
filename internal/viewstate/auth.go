package viewstate

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/tgienger/taskmgr/internal/apiclient"
	"github.com/tgienger/taskmgr/internal/models"
	"github.com/tgienger/taskmgr/internal/service"
)

// ErrRejected is returned when the server answers but refuses the credentials
var ErrRejected = errors.New("rejected")

// Authenticator is the part of the auth service the login screen uses
type Authenticator interface {
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	Register(ctx context.Context, name, email, password string) (service.AuthResult, error)
}

// SessionWriter persists a successful login
type SessionWriter interface {
	Login(token string, user models.User) error
}

// Auth drives the login and register forms. The profile stored with the
// token is built from the form input since the server returns only a token.
type Auth struct {
	api  Authenticator
	sess SessionWriter
}

func NewAuth(api Authenticator, sess SessionWriter) *Auth {
	return &Auth{api: api, sess: sess}
}

// RejectedError carries the server's reason for refusing a login or register
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }
func (e *RejectedError) Unwrap() error { return ErrRejected }

func (a *Auth) Login(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, &ValidationError{Field: "email", Message: "Email and password are required"}
	}
	res, err := a.api.Login(ctx, email, password)
	user := models.User{Email: email}
	return user, a.finish("login", res, err, user, "Login failed")
}

// Register creates the account and signs in with the returned token
func (a *Auth) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return models.User{}, &ValidationError{Field: "name", Message: "Name, email and password are required"}
	}
	res, err := a.api.Register(ctx, name, email, password)
	user := models.User{Name: name, Email: email}
	return user, a.finish("register", res, err, user, "Registration failed")
}

func (a *Auth) finish(op string, res service.AuthResult, err error, user models.User, fallback string) error {
	if err != nil {
		log.Printf("%s %s: %v", op, user.Email, err)
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Status != 0 {
			msg := apiErr.Message
			if msg == "" {
				msg = fallback
			}
			return &RejectedError{Message: msg}
		}
		return err
	}
	if !res.Success || res.Token == "" {
		msg := res.Message
		if msg == "" {
			msg = fallback
		}
		return &RejectedError{Message: msg}
	}
	if err := a.sess.Login(res.Token, user); err != nil {
		return err
	}
	return nil
}
