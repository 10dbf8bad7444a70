package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultBatchSize is used when Config.BatchSize is zero.
const DefaultBatchSize = 1000

// CopyFn abstracts a backend's bulk insert. It inserts rows aligned to
// columns and returns the number of rows reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error encountered.
//
// Cancellation returns (total, ctx.Err()). Progress is logged on each
// successful flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Printf("loader: copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
			batches,
			rps,
			n,
			total,
			now.Sub(start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// LoadTable creates the target table through repo and inserts every row as
// text. Rows shorter than columns are padded with empty strings.
func LoadTable(ctx context.Context, repo Repository, columns []string, rows [][]string, batchSize int) (int64, error) {
	if repo == nil {
		return 0, fmt.Errorf("storage: nil repository")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if err := repo.EnsureTable(ctx, columns); err != nil {
		return 0, fmt.Errorf("storage: ensure table: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, batchSize)
	go func() {
		defer close(in)
		for _, r := range rows {
			rec := make([]any, len(columns))
			for i := range rec {
				if i < len(r) {
					rec[i] = r[i]
				} else {
					rec[i] = ""
				}
			}
			select {
			case in <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	total, err := LoadBatches(ctx, columns, in, batchSize, repo.CopyFrom)
	if err != nil {
		return total, err
	}
	log.Printf("loader: done total_inserted=%d", total)
	return total, nil
}
