package server

import (
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Garik-/musicgen/internal/store"
	"github.com/Garik-/musicgen/pkg/sequence"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxBatchCount  = 100
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGenerate creates one sequence. The body may be empty (fully random
// config), contain partial overrides of a random config, or set
// "random": false to start from the defaults instead.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	random := true
	if len(body) > 0 {
		var probe struct {
			Random *bool `json:"random"`
		}
		if err = json.Unmarshal(body, &probe); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if probe.Random != nil {
			random = *probe.Random
		}
	}

	cfg := sequence.DefaultConfig()
	if random {
		cfg = s.randomConfig()
	}
	if len(body) > 0 {
		// fields present in the body override the base config
		if err = json.Unmarshal(body, &cfg); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	row, err := s.generateAndStore(r, cfg)
	if err != nil {
		if errors.Is(err, sequence.ErrInvalidConfig) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("generate failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError,
			map[string]any{"success": false, "error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "sequence": row})
}

// handleBatch generates up to maxBatchCount random sequences and stores
// them all, reporting per-item failures instead of aborting.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Count int `json:"count"`
	}{Count: 10}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Count > maxBatchCount {
		req.Count = maxBatchCount
	}

	inserted := 0
	errs := []string{}
	for i := 0; i < req.Count; i++ {
		if _, err := s.generateAndStore(r, s.randomConfig()); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		inserted++
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{"inserted": inserted, "errors": errs})
}

func (s *Server) generateAndStore(r *http.Request, cfg sequence.Config) (*store.Sequence, error) {
	gen, err := sequence.NewGenerator(cfg,
		sequence.WithRand(rand.New(rand.NewSource(s.generatorSeed()))),
		sequence.WithLogger(s.log))
	if err != nil {
		return nil, err
	}

	seq := gen.Generate()
	path := filepath.Join(s.sequencesDir, seq.Filename())
	if err = os.WriteFile(path, seq.Data, 0o644); err != nil {
		return nil, err
	}

	return s.store.InsertSequence(r.Context(), seq, path)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p := store.ListParams{
		Page:         queryInt(q.Get("page"), 1),
		PerPage:      queryInt(q.Get("per_page"), defaultPerPage),
		Scale:        q.Get("scale"),
		Key:          q.Get("key"),
		UnratedFirst: q.Get("unrated_first") != "false",
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}

	rows, total, err := s.store.ListSequences(r.Context(), p)
	if err != nil {
		s.log.Error("list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []store.Sequence{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sequences": rows,
		"total":     total,
		"page":      p.Page,
		"per_page":  p.PerPage,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	row, err := s.store.GetSequence(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "sequence not found")
		return
	}
	if err != nil {
		s.log.Error("get failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, row)
}

// handleMidi serves the raw SMF bytes of a stored sequence.
func (s *Server) handleMidi(w http.ResponseWriter, r *http.Request) {
	path, filename, err := s.store.FilePath(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "sequence not found")
		return
	}
	if err != nil {
		s.log.Error("file path lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Error("sequence file unreadable",
			zap.String("path", path), zap.Error(err))
		s.writeError(w, http.StatusNotFound, "sequence file missing")
		return
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating         int      `json:"rating"`
		Notes          string   `json:"notes"`
		ListenDuration *float64 `json:"listen_duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		s.writeError(w, http.StatusBadRequest, "rating must be 1-5")
		return
	}

	row, err := s.store.InsertRating(r.Context(), store.NewRating{
		SequenceID:     chi.URLParam(r, "id"),
		Rating:         req.Rating,
		Notes:          req.Notes,
		ListenDuration: req.ListenDuration,
	})
	if err != nil {
		s.log.Error("rate failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "rating": row})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.log.Error("stats failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encoding failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
