package discovery

import (
	"context"
	"fmt"
	"time"
)

// Browser streams endpoints as they are discovered.
type Browser interface {
	// Browse emits every endpoint found until ctx is done. The
	// returned channel is closed when browsing stops.
	Browse(ctx context.Context) (<-chan Endpoint, error)
}

// Collect browses for up to timeout and returns the endpoints found.
// A timeout of zero or less means BrowseTimeout. The window elapsing
// is not an error; cancellation of ctx is.
func Collect(ctx context.Context, b Browser, timeout time.Duration) ([]Endpoint, error) {
	if timeout <= 0 {
		timeout = BrowseTimeout
	}
	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := b.Browse(browseCtx)
	if err != nil {
		return nil, err
	}

	var found []Endpoint
	for {
		select {
		case ep, ok := <-results:
			if !ok {
				return found, nil
			}
			found = append(found, ep)
		case <-browseCtx.Done():
			if ctx.Err() != nil {
				return found, ctx.Err()
			}
			return found, nil
		}
	}
}

// FindInstance browses until an endpoint with the given instance name
// shows up. It returns ErrNotFound when the window closes without a
// match.
func FindInstance(ctx context.Context, b Browser, instance string, timeout time.Duration) (Endpoint, error) {
	if timeout <= 0 {
		timeout = BrowseTimeout
	}
	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := b.Browse(browseCtx)
	if err != nil {
		return Endpoint{}, err
	}

	for {
		select {
		case ep, ok := <-results:
			if !ok {
				return Endpoint{}, fmt.Errorf("%w: %s", ErrNotFound, instance)
			}
			if ep.Instance == instance {
				return ep, nil
			}
		case <-browseCtx.Done():
			if ctx.Err() != nil {
				return Endpoint{}, ctx.Err()
			}
			return Endpoint{}, fmt.Errorf("%w: %s", ErrNotFound, instance)
		}
	}
}
