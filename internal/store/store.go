// Package store persists generated sequences and their ratings in
// PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Garik-/musicgen/pkg/sequence"
)

// ErrNotFound is returned when a sequence id has no row.
var ErrNotFound = errors.New("not found")

// Sequence is a stored sequence row joined with its rating aggregate.
type Sequence struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	FilePath    string          `json:"file_path"`
	Config      sequence.Config `json:"config"`
	Stats       sequence.Stats  `json:"stats"`
	RatingCount int             `json:"rating_count"`
	AvgRating   *float64        `json:"avg_rating"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Rating is one submitted rating row.
type Rating struct {
	ID             int64     `json:"id"`
	SequenceID     string    `json:"sequence_id"`
	Rating         int       `json:"rating"`
	Notes          string    `json:"notes"`
	ListenDuration *float64  `json:"listen_duration"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewRating is the payload for InsertRating.
type NewRating struct {
	SequenceID     string
	Rating         int
	Notes          string
	ListenDuration *float64
}

// ListParams select and order a page of sequences.
type ListParams struct {
	Page         int
	PerPage      int
	Scale        string
	Key          string
	UnratedFirst bool
}

// ScaleStat is one row of the per-scale dashboard breakdown.
type ScaleStat struct {
	Scale     string   `json:"scale"`
	Count     int      `json:"count"`
	AvgRating *float64 `json:"avg_rating"`
}

// Stats bundles the dashboard numbers.
type Stats struct {
	TotalSequences     int         `json:"total_sequences"`
	TotalRatings       int         `json:"total_ratings"`
	UnratedSequences   int         `json:"unrated_sequences"`
	RatedSequences     int         `json:"rated_sequences"`
	RatingDistribution map[int]int `json:"rating_distribution"`
	ScaleStats         []ScaleStat `json:"scale_stats"`
}

// Store wraps a pgx connection pool. Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &Store{pool: pool, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// InsertSequence stores a generated sequence and returns the row as the API
// serves it (zero ratings yet).
func (s *Store) InsertSequence(ctx context.Context, seq *sequence.Sequence, filePath string) (*Sequence, error) {
	const q = `
		INSERT INTO sequences (
			id, filename, file_path,
			key_signature, scale, tempo,
			time_sig_num, time_sig_den, num_bars,
			octave_low, octave_high, rhythm_pattern,
			duration_variety, rest_probability, instrument,
			velocity_variation, note_count, duration_seconds,
			config_json, stats_json
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		RETURNING created_at`

	cfg := seq.Config
	row := &Sequence{
		ID:       seq.ID,
		Filename: seq.Filename(),
		FilePath: filePath,
		Config:   cfg,
		Stats:    seq.Stats,
	}

	err := s.pool.QueryRow(ctx, q,
		seq.ID, seq.Filename(), filePath,
		cfg.Key, cfg.Scale, cfg.Tempo,
		cfg.TimeSignatureNum, cfg.TimeSignatureDen, cfg.NumBars,
		cfg.OctaveLow, cfg.OctaveHigh, cfg.RhythmPattern,
		cfg.DurationVariety, cfg.RestProbability, cfg.Instrument,
		cfg.VelocityVariation, seq.Stats.NoteCount, seq.Stats.DurationSeconds,
		cfg, seq.Stats,
	).Scan(&row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert sequence: %w", err)
	}

	s.log.Debug("sequence stored", zap.String("id", seq.ID))
	return row, nil
}

// ListSequences returns one page plus the total number of stored sequences.
// With UnratedFirst, sequences with fewer ratings come first.
func (s *Store) ListSequences(ctx context.Context, p ListParams) ([]Sequence, int, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 20
	}

	where := ""
	args := []any{}
	if p.Scale != "" {
		args = append(args, p.Scale)
		where += fmt.Sprintf(" AND s.scale = $%d", len(args))
	}
	if p.Key != "" {
		args = append(args, p.Key)
		where += fmt.Sprintf(" AND s.key_signature = $%d", len(args))
	}

	order := "s.created_at DESC"
	if p.UnratedFirst {
		order = "COUNT(r.id) ASC, s.created_at DESC"
	}

	args = append(args, p.PerPage, (p.Page-1)*p.PerPage)
	q := fmt.Sprintf(`
		SELECT s.id, s.filename, s.file_path, s.config_json, s.stats_json,
		       COUNT(r.id)::int AS rating_count,
		       ROUND(AVG(r.rating), 2)::float8 AS avg_rating,
		       s.created_at
		FROM sequences s
		LEFT JOIN ratings r ON r.sequence_id = s.id
		WHERE true%s
		GROUP BY s.id
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, where, order, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var out []Sequence
	for rows.Next() {
		var seq Sequence
		if err = rows.Scan(&seq.ID, &seq.Filename, &seq.FilePath, &seq.Config,
			&seq.Stats, &seq.RatingCount, &seq.AvgRating, &seq.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan sequence: %w", err)
		}
		out = append(out, seq)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sequences`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sequences: %w", err)
	}

	return out, total, nil
}

// GetSequence returns one row with its rating aggregate, or ErrNotFound.
func (s *Store) GetSequence(ctx context.Context, id string) (*Sequence, error) {
	const q = `
		SELECT s.id, s.filename, s.file_path, s.config_json, s.stats_json,
		       COUNT(r.id)::int AS rating_count,
		       ROUND(AVG(r.rating), 2)::float8 AS avg_rating,
		       s.created_at
		FROM sequences s
		LEFT JOIN ratings r ON r.sequence_id = s.id
		WHERE s.id = $1
		GROUP BY s.id`

	var seq Sequence
	err := s.pool.QueryRow(ctx, q, id).Scan(&seq.ID, &seq.Filename, &seq.FilePath,
		&seq.Config, &seq.Stats, &seq.RatingCount, &seq.AvgRating, &seq.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return &seq, nil
}

// FilePath returns the stored file path and filename of a sequence.
func (s *Store) FilePath(ctx context.Context, id string) (path, filename string, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT file_path, filename FROM sequences WHERE id = $1`, id,
	).Scan(&path, &filename)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("file path: %w", err)
	}
	return path, filename, nil
}

// InsertRating stores one rating and returns the created row.
func (s *Store) InsertRating(ctx context.Context, r NewRating) (*Rating, error) {
	const q = `
		INSERT INTO ratings (sequence_id, rating, notes, listen_duration)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	row := &Rating{
		SequenceID:     r.SequenceID,
		Rating:         r.Rating,
		Notes:          r.Notes,
		ListenDuration: r.ListenDuration,
	}
	err := s.pool.QueryRow(ctx, q, r.SequenceID, r.Rating, r.Notes, r.ListenDuration).
		Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert rating: %w", err)
	}
	return row, nil
}

// Stats collects the dashboard numbers in one round of queries.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{RatingDistribution: map[int]int{}}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sequences`).
		Scan(&st.TotalSequences); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings`).
		Scan(&st.TotalRatings); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT rating, COUNT(*)::int FROM ratings GROUP BY rating ORDER BY rating`)
	if err != nil {
		return nil, fmt.Errorf("rating distribution: %w", err)
	}
	for rows.Next() {
		var rating, count int
		if err = rows.Scan(&rating, &count); err != nil {
			rows.Close()
			return nil, err
		}
		st.RatingDistribution[rating] = count
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT s.scale, COUNT(DISTINCT s.id)::int,
		       ROUND(AVG(r.rating), 2)::float8
		FROM sequences s
		LEFT JOIN ratings r ON r.sequence_id = s.id
		GROUP BY s.scale
		ORDER BY 3 DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("scale stats: %w", err)
	}
	for rows.Next() {
		var sc ScaleStat
		if err = rows.Scan(&sc.Scale, &sc.Count, &sc.AvgRating); err != nil {
			rows.Close()
			return nil, err
		}
		st.ScaleStats = append(st.ScaleStats, sc)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM sequences s
		WHERE NOT EXISTS (SELECT 1 FROM ratings r WHERE r.sequence_id = s.id)`).
		Scan(&st.UnratedSequences); err != nil {
		return nil, fmt.Errorf("unrated count: %w", err)
	}
	st.RatedSequences = st.TotalSequences - st.UnratedSequences

	return st, nil
}
