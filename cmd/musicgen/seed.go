package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/Garik-/musicgen/internal/store"
)

// seedDatabase inserts the generated sequences, skipping the ones the
// database rejects instead of aborting the whole run.
func seedDatabase(ctx context.Context, dbURL string, results []*result) (int, error) {
	st, err := store.New(ctx, dbURL, store.WithLogger(seedLog))
	if err != nil {
		return 0, err
	}
	defer st.Close()

	inserted := 0
	for _, r := range results {
		if _, err := st.InsertSequence(ctx, r.seq, r.path); err != nil {
			seedLog.Warn("skipped sequence",
				zap.String("id", r.seq.ID), zap.Error(err))
			continue
		}
		inserted++
	}

	return inserted, nil
}
