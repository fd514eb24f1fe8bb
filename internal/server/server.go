// Package server exposes the sequence generator, the stored sequences and
// their ratings over HTTP.
package server

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Garik-/musicgen/internal/store"
	"github.com/Garik-/musicgen/pkg/sequence"
)

// Store is what the handlers need from the persistence layer.
type Store interface {
	InsertSequence(ctx context.Context, seq *sequence.Sequence, filePath string) (*store.Sequence, error)
	ListSequences(ctx context.Context, p store.ListParams) ([]store.Sequence, int, error)
	GetSequence(ctx context.Context, id string) (*store.Sequence, error)
	FilePath(ctx context.Context, id string) (path, filename string, err error)
	InsertRating(ctx context.Context, r store.NewRating) (*store.Rating, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

// Server holds the handler dependencies. Construct with New, mount with
// Handler.
type Server struct {
	store        Store
	sequencesDir string
	log          *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithRand sets the random source used for random configs, mainly for
// deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Server) { s.rng = rng }
}

func New(st Store, sequencesDir string, opts ...Option) *Server {
	s := &Server{
		store:        st,
		sequencesDir: sequencesDir,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Handler builds the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/generate", s.handleGenerate)
			r.Post("/batch", s.handleBatch)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Get("/midi", s.handleMidi)
				r.Post("/rate", s.handleRate)
			})
		})
	})

	return r
}

// randomConfig draws a config from the shared rng. The lock keeps parallel
// requests from interleaving reads of the same source.
func (s *Server) randomConfig() sequence.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sequence.RandomConfig(s.rng)
}

func (s *Server) generatorSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int63()
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}
