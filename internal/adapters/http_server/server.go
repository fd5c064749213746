package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// RequestTimeout bounds a whole request; page fetches have their own shorter timeout.
	RequestTimeout time.Duration
	// RatePerHour is the per-IP budget for /api routes. 0 disables limiting.
	RatePerHour int
}

type Server struct {
	mux *chi.Mux
	rl  *RateLimiter
}

func New(opt Options) *Server {
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 60 * time.Second
	}
	m := chi.NewRouter()

	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(opt.RequestTimeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	s := &Server{mux: m}
	if opt.RatePerHour > 0 {
		s.rl = NewRateLimiter(PerHour(opt.RatePerHour))
	}
	return s
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.rl != nil {
		s.rl.Stop()
	}
}
