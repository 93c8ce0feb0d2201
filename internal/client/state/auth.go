package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/contactkeeper/internal/client"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

type AuthActionType int

const (
	RegisterSuccess AuthActionType = iota + 1
	RegisterFail
	UserLoaded
	AuthError
	LoginSuccess
	LoginFail
	Logout
	ClearErrors
)

type AuthAction struct {
	Type  AuthActionType
	Token string
	User  *models.User
	Error string
}

// AuthState mirrors the session. IsAuthenticated is nil until the session has been
// checked at least once.
type AuthState struct {
	Token           string
	IsAuthenticated *bool
	Loading         bool
	User            *models.User
	Error           string
}

func boolPtr(b bool) *bool {
	return &b
}

func ReduceAuth(state AuthState, action AuthAction) AuthState {
	switch action.Type {
	case UserLoaded:
		state.IsAuthenticated = boolPtr(true)
		state.Loading = false
		state.User = action.User

	case RegisterSuccess, LoginSuccess:
		state.Token = action.Token
		state.IsAuthenticated = boolPtr(true)
		state.Loading = false

	case RegisterFail, AuthError, LoginFail, Logout:
		state.Token = ""
		state.IsAuthenticated = boolPtr(false)
		state.Loading = false
		state.User = nil
		state.Error = action.Error

	case ClearErrors:
		state.Error = ""
	}

	return state
}

// TokenStore keeps the token between runs.
type TokenStore interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	ClearToken() error
}

type authAPI interface {
	SetToken(token string)
	Register(ctx context.Context, request models.RegisterRequest) (string, error)
	Login(ctx context.Context, request models.LoginRequest) (string, error)
	LoadUser(ctx context.Context) (*models.User, error)
}

type AuthContext struct {
	*Store[AuthState, AuthAction]

	api    authAPI
	tokens TokenStore
}

// NewAuthContext restores the persisted token, if any. The session is not verified
// until LoadUser is called.
func NewAuthContext(api authAPI, tokens TokenStore) (*AuthContext, error) {
	token, err := tokens.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("in internal/client/state/auth.go/NewAuthContext(): error while `tokens.LoadToken()` calling: %w", err)
	}

	return &AuthContext{
		Store:  NewStore(AuthState{Token: token, Loading: true}, ReduceAuth),
		api:    api,
		tokens: tokens,
	}, nil
}

// LoadUser verifies the current token against the server. A rejected token only marks
// the session as logged out; no error message is recorded.
func (a *AuthContext) LoadUser(ctx context.Context) error {
	a.api.SetToken(a.State().Token)

	usr, err := a.api.LoadUser(ctx)
	if err != nil {
		a.api.SetToken("")
		a.Dispatch(AuthAction{Type: AuthError})
		if clearErr := a.tokens.ClearToken(); clearErr != nil {
			return clearErr
		}

		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return nil
		}

		return err
	}

	a.Dispatch(AuthAction{Type: UserLoaded, User: usr})

	return nil
}

func (a *AuthContext) Register(ctx context.Context, request models.RegisterRequest) error {
	token, err := a.api.Register(ctx, request)

	return a.startSession(ctx, token, err, RegisterSuccess, RegisterFail)
}

func (a *AuthContext) Login(ctx context.Context, request models.LoginRequest) error {
	token, err := a.api.Login(ctx, request)

	return a.startSession(ctx, token, err, LoginSuccess, LoginFail)
}

func (a *AuthContext) startSession(
	ctx context.Context,
	token string,
	callErr error,
	success AuthActionType,
	fail AuthActionType,
) error {
	if callErr != nil {
		a.Dispatch(AuthAction{Type: fail, Error: callErr.Error()})
		if err := a.tokens.ClearToken(); err != nil {
			return err
		}

		return callErr
	}

	if err := a.tokens.SaveToken(token); err != nil {
		return fmt.Errorf("in internal/client/state/auth.go/startSession(): error while `a.tokens.SaveToken()` calling: %w", err)
	}
	a.Dispatch(AuthAction{Type: success, Token: token})

	return a.LoadUser(ctx)
}

func (a *AuthContext) Logout() error {
	a.api.SetToken("")
	a.Dispatch(AuthAction{Type: Logout})

	return a.tokens.ClearToken()
}

func (a *AuthContext) ClearErrors() {
	a.Dispatch(AuthAction{Type: ClearErrors})
}
