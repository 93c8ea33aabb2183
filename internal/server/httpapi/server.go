// Package httpapi exposes the vault over HTTP/JSON. It owns the router,
// the session middleware and the translation of service errors into
// status codes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// AccountService is the slice of the account service the transport needs.
type AccountService interface {
	Register(ctx context.Context, email, displayName, accountSecret, masterSecret string) (*services.Session, error)
	Login(ctx context.Context, email, accountSecret string) (*services.Session, error)
	Authenticate(ctx context.Context, token string) (*models.Account, error)
	VerifyMaster(account *models.Account, masterSecret string) bool
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newAccountSecret string) error
	ChangeAccountSecret(ctx context.Context, account *models.Account, currentSecret, newSecret string) error
	ChangeMasterSecret(ctx context.Context, account *models.Account, currentMaster, newMaster string) error
}

// VaultService is the slice of the vault service the transport needs.
type VaultService interface {
	Create(ctx context.Context, accountID string, params services.CreateCredentialParams) (*models.Credential, error)
	Get(ctx context.Context, accountID, id string) (*models.Credential, string, error)
	List(ctx context.Context, accountID string, filter models.ListFilter) ([]*models.Credential, error)
	Update(ctx context.Context, accountID, id string, params services.UpdateCredentialParams) (*models.Credential, error)
	Delete(ctx context.Context, accountID, id string) error
	ToggleFavorite(ctx context.Context, accountID, id string) (bool, error)
}

// Server is the HTTP front of the vault.
type Server struct {
	addr     string
	logger   logging.Logger
	accounts AccountService
	vault    VaultService
}

// NewServer constructs a Server listening on addr once Run is called.
func NewServer(addr string, logger logging.Logger, accounts AccountService, vault VaultService) *Server {
	return &Server{
		addr:     addr,
		logger:   logger.With("module", "httpapi"),
		accounts: accounts,
		vault:    vault,
	}
}

// Router assembles all routes. Split out from Run so tests can drive the
// handler chain without a listener.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestIDMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/reset-request", s.handleResetRequest)
		r.Post("/auth/reset", s.handleReset)

		r.Post("/passwords/generate", s.handleGenerate)
		r.Post("/passwords/score", s.handleScore)

		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)

			r.Post("/auth/verify-master", s.handleVerifyMaster)
			r.Post("/auth/change-secret", s.handleChangeSecret)
			r.Post("/auth/change-master", s.handleChangeMaster)

			r.Get("/credentials", s.handleListCredentials)
			r.Post("/credentials", s.handleCreateCredential)
			r.Get("/credentials/{id}", s.handleGetCredential)
			r.Put("/credentials/{id}", s.handleUpdateCredential)
			r.Delete("/credentials/{id}", s.handleDeleteCredential)
			r.Post("/credentials/{id}/favorite", s.handleToggleFavorite)
			r.Post("/credentials/{id}/reveal", s.handleRevealCredential)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
