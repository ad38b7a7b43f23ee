// Package api exposes the HTTP surface of the atendente service: the
// browser chat endpoints, the WhatsApp webhook, the catalog admin
// endpoints and a liveness probe.
//
// Web conversations live in an in-memory store keyed by an opaque
// session cookie; WhatsApp conversations are persisted per phone in the
// durable store. Both channels run the same intake machine.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/seguroscampos/atendente/internal/intake"
	"github.com/seguroscampos/atendente/internal/messaging"
	"github.com/seguroscampos/atendente/internal/models"
	"github.com/seguroscampos/atendente/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

const sessionCookieName = "atendente_session"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the store, intake machine, responder and outbound sender
// behind the HTTP endpoints.
type Server struct {
	addr      string
	st        store.Store
	sessions  store.Store
	machine   *intake.Machine
	responder intake.Responder
	sender    messaging.Sender
}

// NewServer creates an API server. st backs the customer directory,
// catalog, memory and WhatsApp conversations; web conversations get
// their own in-memory store.
func NewServer(st store.Store, machine *intake.Machine, responder intake.Responder, sender messaging.Sender, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		addr:      cfg.Addr,
		st:        st,
		sessions:  store.NewInMemoryStore(),
		machine:   machine,
		responder: responder,
		sender:    sender,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.homeHandler)
	r.Post("/chat", s.chatHandler)
	r.Post("/webhook", s.webhookHandler)
	r.Get("/produtos", s.listProductsHandler)
	r.Post("/produtos", s.addProductHandler)
	r.Get("/health", s.healthHandler)
	return r
}

// Run starts the HTTP server and blocks until the context is canceled
// or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("API server shutting down")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	}
}

// sessionConversation restores the visitor's conversation from the
// session cookie, minting a new session when none exists yet. The
// returned key must be passed back to saveSession after the turn.
func (s *Server) sessionConversation(w http.ResponseWriter, r *http.Request) (string, *models.Conversation) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		conv, err := s.sessions.GetConversation(c.Value)
		if err != nil {
			slog.Error("Server.sessionConversation: restore failed", "error", err)
		}
		if conv != nil {
			return c.Value, conv
		}
		// Expired or unknown session id: fall through and mint a new one.
	}

	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
	})
	return key, models.NewConversation()
}

func (s *Server) saveSession(key string, conv *models.Conversation) {
	if err := s.sessions.SaveConversation(key, conv); err != nil {
		slog.Error("Server.saveSession: failed to persist session conversation", "error", err)
	}
}
