package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// maxRangeDays bounds a single chunked load when no explicit chunk limit is configured.
const maxRangeDays = 366

type chunkOutcome[T any] struct {
	index int
	rng   DateRange
	items []T
	err   error
}

// chunkLimit is the largest number of chunks one load may fan out to.
func chunkLimit(maxChunks, chunkDays int) int {
	if maxChunks > 0 {
		return maxChunks
	}
	return (maxRangeDays + chunkDays - 1) / chunkDays
}

// planChunks splits [start, end] and refuses ranges that would exceed limit chunks.
func planChunks(rng DateRange, chunkDays, limit int) ([]DateRange, error) {
	chunks := SplitRange(rng.Start, rng.End, chunkDays)
	if len(chunks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must not be after end_date")
	}
	if len(chunks) > limit {
		return nil, appErrors.Clone(appErrors.ErrOutOfRange,
			fmt.Sprintf("range %s needs %d chunks, at most %d are allowed", rng, len(chunks), limit))
	}
	return chunks, nil
}

// fetchChunks calls fetch once per chunk with at most parallel calls in flight.
// Outcomes are delivered in completion order and the channel closes after the last one.
func fetchChunks[T any](ctx context.Context, chunks []DateRange, parallel int, observe func(ok bool, d time.Duration), fetch func(context.Context, DateRange) ([]T, error)) <-chan chunkOutcome[T] {
	results := make(chan chunkOutcome[T], len(chunks))
	g := new(errgroup.Group)
	g.SetLimit(parallel)
	go func() {
		for i, rng := range chunks {
			i, rng := i, rng
			g.Go(func() error {
				started := time.Now()
				items, err := fetch(ctx, rng)
				if observe != nil {
					observe(err == nil, time.Since(started))
				}
				results <- chunkOutcome[T]{index: i, rng: rng, items: items, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()
	return results
}

// collectChunks drains outcomes into merged items. With ordered set, items follow chunk order
// instead of completion order. It returns ErrAllChunksFailed when no chunk succeeded.
func collectChunks[T any](outcomes <-chan chunkOutcome[T], total int, ordered bool, onFailure func(DateRange, error)) ([]T, []ChunkFailure, error) {
	var (
		items    []T
		failures []ChunkFailure
		held     []chunkOutcome[T]
	)
	for res := range outcomes {
		if res.err != nil {
			if onFailure != nil {
				onFailure(res.rng, res.err)
			}
			failures = append(failures, ChunkFailure{
				Range: res.rng,
				Err:   appErrors.Wrap(res.err, appErrors.ErrChunkFailed.Code, appErrors.ErrChunkFailed.Status, appErrors.ErrChunkFailed.Message),
			})
			continue
		}
		if ordered {
			held = append(held, res)
			continue
		}
		items = append(items, res.items...)
	}

	if ordered {
		sort.Slice(held, func(i, j int) bool { return held[i].index < held[j].index })
		for _, res := range held {
			items = append(items, res.items...)
		}
	}
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Range.Start.Before(failures[j].Range.Start)
	})

	if total > 0 && len(failures) == total {
		return items, failures, appErrors.Wrap(failures[0].Err, appErrors.ErrAllChunksFailed.Code, appErrors.ErrAllChunksFailed.Status, appErrors.ErrAllChunksFailed.Message)
	}
	return items, failures, nil
}

// clampToWindow narrows rng to the selectable window around today.
// A range lying wholly outside the window is refused.
func clampToWindow(rules *DateRuleService, rng DateRange) (DateRange, error) {
	first, last := rules.Window(rules.Today())
	if rng.End.Before(first) || rng.Start.After(last) {
		return rng, appErrors.Clone(appErrors.ErrOutOfRange,
			fmt.Sprintf("range %s is outside the selectable window %s..%s", rng, first, last))
	}
	if rng.Start.Before(first) {
		rng.Start = first
	}
	if rng.End.After(last) {
		rng.End = last
	}
	return rng, nil
}
