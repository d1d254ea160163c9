// Package web serves the account pages, the dashboard and the JSON endpoints
// used by the book form.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/a3tai/pdf-bookmaker/internal/api"
	"github.com/a3tai/pdf-bookmaker/internal/auth"
	"github.com/a3tai/pdf-bookmaker/internal/book"
	"github.com/a3tai/pdf-bookmaker/internal/library"
	"github.com/a3tai/pdf-bookmaker/internal/store"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Users is the account storage the server needs
type Users interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error)
	UserByUsername(ctx context.Context, username string) (*store.User, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	UserByID(ctx context.Context, id int64) (*store.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	CreateReset(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	ResetByToken(ctx context.Context, token string) (*store.Reset, error)
	DeleteReset(ctx context.Context, token string) error
}

// Server holds the handlers' dependencies
type Server struct {
	users   Users
	issuer  *auth.Issuer
	books   *book.Service
	library *library.Library
	pages   *pageSet
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a server
func New(users Users, issuer *auth.Issuer, books *book.Service, lib *library.Library, logger *zap.Logger) (*Server, error) {
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		users:   users,
		issuer:  issuer,
		books:   books,
		library: lib,
		pages:   pages,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Handler returns the routed handler with logging and authentication applied
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.authenticate)

	r.HandleFunc("/", s.home).Methods(http.MethodGet)
	r.HandleFunc("/signup", s.signupPage).Methods(http.MethodGet)
	r.HandleFunc("/signup", s.signup).Methods(http.MethodPost)
	r.HandleFunc("/login", s.loginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.requireUser(s.logout)).Methods(http.MethodGet)
	r.HandleFunc("/forgot-password", s.forgotPasswordPage).Methods(http.MethodGet)
	r.HandleFunc("/forgot-password", s.forgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/reset-password/{token}", s.resetPasswordPage).Methods(http.MethodGet)
	r.HandleFunc("/reset-password/{token}", s.resetPassword).Methods(http.MethodPost)
	r.HandleFunc("/dashboard", s.requireUser(s.dashboard)).Methods(http.MethodGet)

	r.HandleFunc("/api/login", s.apiLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/files", s.requireUser(s.apiFiles)).Methods(http.MethodGet)
	r.HandleFunc(api.GeneratePath, s.requireUser(s.generate)).Methods(http.MethodPost)
	r.HandleFunc("/files/{filename}", s.requireUser(s.serveFile)).Methods(http.MethodGet)
	r.HandleFunc("/delete-file/{filename}", s.requireUser(s.deleteFile)).Methods(http.MethodPost)

	r.NotFoundHandler = s.logRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantsJSON(r) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		http.NotFound(w, r)
	}))

	return r
}
