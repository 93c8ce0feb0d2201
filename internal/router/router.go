// Package router exposes the contact manager REST API under /api.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactkeeper/internal/auth"
	"github.com/patric-chuzhbe/contactkeeper/internal/authenticator"
	"github.com/patric-chuzhbe/contactkeeper/internal/gzippedhttp"
	"github.com/patric-chuzhbe/contactkeeper/internal/logger"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

const (
	welcomeMessage        = "Welcome to the Contact Manager API"
	contactRemovedMessage = "Contact removed"
	serverErrorMessage    = "Server Error"
)

// errMalformedBody is returned for request bodies that are not valid JSON.
var errMalformedBody = errors.New("Malformed request body")

type contactManager interface {
	Register(ctx context.Context, request models.RegisterRequest) (models.TokenResponse, error)
	Login(ctx context.Context, request models.LoginRequest) (models.TokenResponse, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	ListContacts(ctx context.Context, userID string) ([]models.Contact, error)
	CreateContact(ctx context.Context, userID string, request models.CreateContactRequest) (*models.Contact, error)
	UpdateContact(ctx context.Context, userID string, contactID string, request models.UpdateContactRequest) (*models.Contact, error)
	DeleteContact(ctx context.Context, userID string, contactID string) error
	Ping(ctx context.Context) error
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
}

type trustedNetworkGate interface {
	TrustedOnly(h http.Handler) http.Handler
}

type Router struct {
	service contactManager
}

// New builds the /api routes. Protected routes pass through authMiddleware; the
// internal stats route passes through ipChecker instead.
func New(
	authMiddleware authenticator.Authenticator,
	ipChecker trustedNetworkGate,
	contactService contactManager,
) *chi.Mux {
	myRouter := Router{
		service: contactService,
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		gzippedhttp.Decompress,
		gzippedhttp.Compress,
	)

	router.Route("/api", func(r chi.Router) {
		r.Get("/", myRouter.GetAPI)
		r.Get("/ping", myRouter.GetPing)

		r.Post("/users", myRouter.PostUsers)
		r.Post("/auth", myRouter.PostAuth)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthenticateUser)

			r.Get("/auth", myRouter.GetAuth)
			r.Get("/contacts", myRouter.GetContacts)
			r.Post("/contacts", myRouter.PostContacts)
			r.Put("/contacts/{id}", myRouter.PutContact)
			r.Delete("/contacts/{id}", myRouter.DeleteContact)
		})

		r.With(ipChecker.TrustedOnly).Get("/internal/stats", myRouter.GetInternalStats)
	})

	return router
}

// GetAPI answers with a welcome message.
func (router *Router) GetAPI(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusOK, models.MessageResponse{Msg: welcomeMessage})
}

// GetPing answers 200 when the storage is reachable and 500 otherwise.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Ping(request.Context()); err != nil {
		logger.Log.Errorw("storage ping failed", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// PostUsers registers a user and answers with its token.
func (router *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	var payload models.RegisterRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeError(response, request, err)
		return
	}

	token, err := router.service.Register(request.Context(), payload)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, token)
}

// PostAuth logs a user in and answers with a token.
func (router *Router) PostAuth(response http.ResponseWriter, request *http.Request) {
	var payload models.LoginRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeError(response, request, err)
		return
	}

	token, err := router.service.Login(request.Context(), payload)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, token)
}

// GetAuth answers with the authenticated user, without the password.
func (router *Router) GetAuth(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		writeError(response, request, models.ErrNoToken)
		return
	}

	usr, err := router.service.CurrentUser(request.Context(), userID)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, usr)
}

// GetContacts lists the caller's contacts, newest first.
func (router *Router) GetContacts(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		writeError(response, request, models.ErrNoToken)
		return
	}

	contacts, err := router.service.ListContacts(request.Context(), userID)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, contacts)
}

// PostContacts creates a contact owned by the caller.
func (router *Router) PostContacts(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		writeError(response, request, models.ErrNoToken)
		return
	}

	var payload models.CreateContactRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeError(response, request, err)
		return
	}

	contact, err := router.service.CreateContact(request.Context(), userID, payload)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, contact)
}

// PutContact applies a partial update to one of the caller's contacts.
func (router *Router) PutContact(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		writeError(response, request, models.ErrNoToken)
		return
	}

	var payload models.UpdateContactRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeError(response, request, err)
		return
	}

	contact, err := router.service.UpdateContact(request.Context(), userID, chi.URLParam(request, "id"), payload)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, contact)
}

// DeleteContact removes one of the caller's contacts.
func (router *Router) DeleteContact(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		writeError(response, request, models.ErrNoToken)
		return
	}

	if err := router.service.DeleteContact(request.Context(), userID, chi.URLParam(request, "id")); err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Msg: contactRemovedMessage})
}

// GetInternalStats answers with the number of users and contacts.
func (router *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.service.GetInternalStats(request.Context())
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func decodeJSON(request *http.Request, target any) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return errMalformedBody
	}

	return nil
}

func writeJSON(response http.ResponseWriter, statusCode int, payload any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)

	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugw("unable to write response body", zap.Error(err))
	}
}

func writeError(response http.ResponseWriter, request *http.Request, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(response, http.StatusBadRequest, models.ValidationErrorsResponse{Errors: validationErr.Fields})
		return
	}

	statusCode, message := statusOf(err)
	if statusCode == http.StatusInternalServerError {
		logger.Log.Errorw(
			"request failed",
			"request_id", middleware.GetReqID(request.Context()),
			"uri", request.RequestURI,
			zap.Error(err),
		)
	}

	writeJSON(response, statusCode, models.MessageResponse{Msg: message})
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errMalformedBody),
		errors.Is(err, models.ErrUserExists),
		errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusBadRequest, rootMessage(err)

	case errors.Is(err, models.ErrNoToken),
		errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrNotOwner):
		return http.StatusUnauthorized, rootMessage(err)

	case errors.Is(err, models.ErrContactNotFound),
		errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, rootMessage(err)
	}

	return http.StatusInternalServerError, serverErrorMessage
}

// rootMessage drops any wrapping context so clients only see the sentinel's text.
func rootMessage(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}
