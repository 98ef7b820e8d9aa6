package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/xivishop/xivi/internal/config"
	"github.com/xivishop/xivi/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)
	r.Use(h.CORS)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// Public storefront endpoints.
	orders := r.PathPrefix("/api/orders").Subrouter()
	orders.HandleFunc("/create", h.CreateOrder).Methods("POST", "OPTIONS").Name("orders.create")
	orders.HandleFunc("/verify", h.VerifyPayment).Methods("POST", "OPTIONS").Name("orders.verify")

	// Operator endpoints. OPTIONS preflights are answered by the CORS
	// middleware before the operator check runs.
	operator := r.PathPrefix("/api/orders").Subrouter()
	operator.Use(h.RequireOperator)
	operator.HandleFunc("/update-status", h.UpdateStatus).Methods("POST", "OPTIONS").Name("orders.update_status")
	operator.HandleFunc("/cleanup", h.Cleanup).Methods("POST", "OPTIONS").Name("orders.cleanup")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"Not found"}`))
	})

	return r
}
