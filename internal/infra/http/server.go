package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-style-bot/internal/config"
	"telegram-style-bot/internal/usecase"
)

// Server exposes the ops surface: health, metrics and the payment return
// page users land on after checkout. Payment settlement itself rides the
// tracker's polling loop, not this server.
type Server struct {
	cfg    *config.Config
	userUC usecase.UserUseCase
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(cfg *config.Config, userUC usecase.UserUseCase, logger *zerolog.Logger) *Server {
	return &Server{cfg: cfg, userUC: userUC, log: logger}
}

func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/payment/return", s.handlePaymentReturn)
	r.Get("/stats", s.handleStats)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Ops.Port),
		Handler: r,
	}

	s.log.Info().Int("port", s.cfg.Ops.Port).Msg("ops server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handlePaymentReturn is where YooKassa redirects users after checkout. The
// page only points back to the bot; crediting happens when the tracker (or
// the user's "check payment" button) observes the paid status.
func (s *Server) handlePaymentReturn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head>
	<title>Payment</title>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
	</style>
</head>
<body>
	<h1>Thank you!</h1>
	<p>Return to the Telegram bot and tap "Check payment" to receive your tokens.</p>
</body>
</html>`)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.userUC.Count(r.Context())
	if err != nil {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"users":%d}`, count)
}
