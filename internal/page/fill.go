package page

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/TravelMesh/read_layer/internal/ledger"
	"github.com/TravelMesh/read_layer/internal/schema"
	"github.com/TravelMesh/read_layer/pkg/logger"
)

// Filler drives records of one collection page through resolution and
// validation, buckets the outcomes, and pulls further into the collection
// when hard failures leave the page short of the requested size.
type Filler struct {
	// Resolve shapes one record; failures come back as error-shaped records
	// carrying an "error" key, never as panics or aborts.
	Resolve func(ctx context.Context, h ledger.Handle) map[string]any
	// Validate checks one shaped record; nil, warning-flagged or hard
	// *schema.ValidationError.
	Validate func(rec map[string]any) error
	// Finalize strips control fields from a record before it is emitted.
	Finalize func(rec map[string]any) map[string]any
	// Trusted reports whether a record passes the trustworthiness test.
	// Untrusted records are dropped from listings silently. Nil trusts all.
	Trusted func(rec map[string]any) bool
	// Concurrent resolves page items in parallel instead of sequentially.
	// Output order follows collection order either way.
	Concurrent bool

	Log *logger.Logger
}

// Result is the aggregate of one filled page.
type Result struct {
	Items     []map[string]any `json:"items"`
	Warnings  []map[string]any `json:"warnings,omitempty"`
	Errors    []map[string]any `json:"errors"`
	Next      string           `json:"next,omitempty"`
	NextStart string           `json:"-"`
}

type outcome struct {
	rec map[string]any
	err error
}

// Fill resolves pages starting at startWith until the requested limit is
// satisfied, the collection is exhausted, or a page completes without hard
// failures. The top-up is an accumulator loop so pathological collections
// cannot grow the stack.
func (f *Filler) Fill(ctx context.Context, basePath string, mappedFields []string, handles []ledger.Handle, limit int, startWith string) (Result, error) {
	res := Result{
		Items:  []map[string]any{},
		Errors: []map[string]any{},
	}

	start := startWith
	remaining := limit
	for {
		pg, err := Paginate(handles, remaining, start)
		if err != nil {
			return Result{}, err
		}

		outcomes := f.processPage(ctx, pg.Items)
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		hardFailures, dropped := f.bucket(outcomes, &res)
		res.NextStart = pg.NextStart

		successes := len(res.Items) + len(res.Warnings)
		if pg.NextStart == "" || successes >= limit || (hardFailures == 0 && dropped == 0) {
			break
		}
		remaining = limit - successes
		start = pg.NextStart
	}

	if res.NextStart != "" {
		res.Next = fmt.Sprintf("%s?limit=%d&fields=%s&startWith=%s",
			basePath, limit, strings.Join(mappedFields, ","), url.QueryEscape(res.NextStart))
	}
	return res, nil
}

// processPage resolves and validates every handle of one page, sequentially
// or concurrently per the filler's strategy. Outcomes come back in collection
// order regardless of scheduling.
func (f *Filler) processPage(ctx context.Context, items []ledger.Handle) []outcome {
	outcomes := make([]outcome, len(items))
	if !f.Concurrent {
		for i, h := range items {
			outcomes[i] = f.processOne(ctx, h)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i, h := range items {
		wg.Add(1)
		go func(i int, h ledger.Handle) {
			defer wg.Done()
			outcomes[i] = f.processOne(ctx, h)
		}(i, h)
	}
	wg.Wait()
	return outcomes
}

func (f *Filler) processOne(ctx context.Context, h ledger.Handle) outcome {
	rec := f.Resolve(ctx, h)
	if _, failed := rec["error"]; failed {
		return outcome{rec: rec}
	}
	return outcome{rec: rec, err: f.Validate(rec)}
}

// bucket distributes outcomes into items, warnings and errors, returning the
// number of hard failures and of silently dropped (untrusted) records.
func (f *Filler) bucket(outcomes []outcome, res *Result) (hardFailures, dropped int) {
	for _, out := range outcomes {
		if _, failed := out.rec["error"]; failed {
			res.Errors = append(res.Errors, out.rec)
			hardFailures++
			continue
		}
		if f.Trusted != nil && !f.Trusted(out.rec) {
			dropped++
			continue
		}

		if out.err == nil {
			res.Items = append(res.Items, f.finalize(out.rec))
			continue
		}

		var verr *schema.ValidationError
		if errors.As(out.err, &verr) && verr.Warning() {
			res.Warnings = append(res.Warnings, map[string]any{
				"warning": verr.Error(),
				"data":    f.finalize(out.rec),
			})
			continue
		}

		id, _ := out.rec["id"]
		res.Errors = append(res.Errors, map[string]any{
			"error":         "Upstream data validation failed",
			"originalError": out.err.Error(),
			"data":          map[string]any{"id": id},
		})
		hardFailures++
	}
	return hardFailures, dropped
}

func (f *Filler) finalize(rec map[string]any) map[string]any {
	if f.Finalize == nil {
		return rec
	}
	return f.Finalize(rec)
}
