package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// Adapter normalizes one external provider into ProviderRecords
type Adapter interface {
	Name() string
	Tier() entity.Tier
	Supports(kind entity.KeyKind) bool
	IsConfigured() bool
	Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error)
}

// Settled is the terminal state of one adapter call: exactly one of Record or Err is set
type Settled struct {
	Provider string
	Record   *entity.ProviderRecord
	Err      *entity.AdapterError
}

// Dispatch calls every adapter concurrently and waits for all of them.
// A failing or slow adapter never cancels the others; results keep adapter order.
func Dispatch(ctx context.Context, key entity.Key, adapters []Adapter, timeout time.Duration) []Settled {
	results := make([]Settled, len(adapters))

	var g errgroup.Group
	for i, adapter := range adapters {
		g.Go(func() error {
			results[i] = call(ctx, key, adapter, timeout)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type fetchResult struct {
	record *entity.ProviderRecord
	err    error
}

func call(ctx context.Context, key entity.Key, adapter Adapter, timeout time.Duration) Settled {
	name := adapter.Name()

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Buffered so an adapter that ignores its context can still finish after we give up on it
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		record, err := adapter.Fetch(callCtx, key)
		done <- fetchResult{record: record, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		select {
		case res = <-done:
		default:
			res.err = callCtx.Err()
		}
	}

	if res.err == nil && res.record == nil {
		res.err = errors.New("adapter returned no record")
	}
	if res.err != nil {
		if !errors.Is(res.err, entity.ErrMissingCredential) {
			switch {
			case errors.Is(callCtx.Err(), context.DeadlineExceeded):
				res.err = fmt.Errorf("%w after %s: %v", entity.ErrTimeout, timeout, res.err)
			case isTimeout(res.err):
				res.err = fmt.Errorf("%w: %v", entity.ErrTimeout, res.err)
			}
		}
		return Settled{Provider: name, Err: entity.NewAdapterError(name, res.err)}
	}

	res.record.Provider = name
	return Settled{Provider: name, Record: res.record}
}

// isTimeout reports deadline errors raised below the dispatcher, such as an http.Client timeout
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
