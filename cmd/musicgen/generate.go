package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Garik-/musicgen/pkg/sequence"
)

type result struct {
	seq  *sequence.Sequence
	path string
	err  error
}

func generateOne(outputDir string, seed int64) *result {
	rng := rand.New(rand.NewSource(seed))

	gen, err := sequence.NewGenerator(sequence.RandomConfig(rng),
		sequence.WithRand(rng),
		sequence.WithLogger(generateLog))
	if err != nil {
		return &result{err: err}
	}

	seq := gen.Generate()
	path := filepath.Join(outputDir, seq.Filename())
	if err = os.WriteFile(path, seq.Data, 0o644); err != nil {
		return &result{err: err}
	}

	return &result{seq: seq, path: path}
}

func seeds(count int) <-chan int64 {
	out := make(chan int64)

	base := time.Now().UnixNano()
	go func() {
		for i := 0; i < count; i++ {
			out <- base + int64(i)
		}
		close(out)
	}()

	return out
}

func generateWorker(ctx context.Context, seeds <-chan int64, outputDir string, cntRoutines int) (<-chan *result, <-chan struct{}) {
	out := make(chan *result)
	done := make(chan struct{}, 1)

	go func() {
		var wg sync.WaitGroup
		goroutines := make(chan struct{}, cntRoutines)

	loop:
		for seed := range seeds {
			select {
			case goroutines <- struct{}{}:
			case <-ctx.Done():
				log.Println("generateWorker context done")
				break loop
			}
			wg.Add(1)
			go func(ctx context.Context, seed int64, goroutines <-chan struct{}, out chan<- *result, wg *sync.WaitGroup) {
				defer wg.Done()

				select {
				case out <- generateOne(outputDir, seed):
				case <-ctx.Done():
					log.Printf("generateOne %d context done\n", seed)
				}
				<-goroutines

			}(ctx, seed, goroutines, out, &wg)
		}

		wg.Wait()
		close(goroutines)
		close(out)

		done <- struct{}{}
		close(done)
	}()

	return out, done
}

func generateBatch(parent context.Context, count int, outputDir string, cntRoutines int) ([]*result, error) {
	ctx, cancel := context.WithCancel(parent)
	results, done := generateWorker(ctx, seeds(count), outputDir, cntRoutines)

	defer func() {
		cancel()
		<-done // wait generateWorker closed
	}()

	out := make([]*result, 0, count)
	for result := range results {
		if result.err != nil {
			return nil, result.err
		}
		out = append(out, result)
	}

	return out, nil
}
