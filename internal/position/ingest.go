package position

import (
	"context"
	"sync"
	"time"
)

// IngestSource is the browser-geolocation fallback. The web client samples
// navigator.geolocation itself and pushes fixes over HTTP; the ingest
// endpoint forwards them here. Permission state is whatever the browser
// last reported.
type IngestSource struct {
	subs *subscribers

	mu         sync.Mutex
	permission Permission
	oneShot    []chan Sample
}

func NewIngestSource() *IngestSource {
	return &IngestSource{
		subs:       newSubscribers(),
		permission: PermissionPrompt,
	}
}

// Push feeds one client-reported sample into the source. Invalid samples are
// surfaced on the error channel, never delivered to watchers.
func (s *IngestSource) Push(sample Sample) {
	if !validSample(sample) {
		s.subs.dispatchError(ErrLocationUnavailable)
		return
	}

	s.mu.Lock()
	waiters := s.oneShot
	s.oneShot = nil
	s.mu.Unlock()
	for _, ch := range waiters {
		ch <- sample
	}

	s.subs.dispatch(sample)
}

// PushError reports a client-side geolocation failure (timeout, signal loss).
func (s *IngestSource) PushError(err error) {
	s.subs.dispatchError(err)
}

// SetPermission records the permission state the browser reported.
func (s *IngestSource) SetPermission(p Permission) {
	s.mu.Lock()
	s.permission = p
	s.mu.Unlock()
}

func (s *IngestSource) CheckPermission(_ context.Context) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission, nil
}

// RequestPermission cannot prompt through the server; the browser prompts on
// its own getCurrentPosition call. Reports the current state instead.
func (s *IngestSource) RequestPermission(ctx context.Context) (bool, error) {
	p, _ := s.CheckPermission(ctx)
	return p == PermissionGranted, nil
}

// GetOnce waits for the next pushed sample.
func (s *IngestSource) GetOnce(ctx context.Context) (Sample, error) {
	wait := make(chan Sample, 1)
	s.mu.Lock()
	if s.permission == PermissionDenied {
		s.mu.Unlock()
		return Sample{}, ErrLocationUnavailable
	}
	s.oneShot = append(s.oneShot, wait)
	s.mu.Unlock()

	select {
	case sample := <-wait:
		return sample, nil
	case <-time.After(oneShotTimeout):
		s.dropWaiter(wait)
		return Sample{}, ErrLocationUnavailable
	case <-ctx.Done():
		s.dropWaiter(wait)
		return Sample{}, ctx.Err()
	}
}

// dropWaiter removes an abandoned one-shot waiter so the slice stays bounded
// by in-flight calls. The channel is buffered, so a concurrent Push that
// already snapshotted the waiters still completes its send.
func (s *IngestSource) dropWaiter(ch chan Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.oneShot {
		if w == ch {
			s.oneShot = append(s.oneShot[:i], s.oneShot[i+1:]...)
			return
		}
	}
}

func (s *IngestSource) Watch(onSample Handler, onError ErrorHandler) (Subscription, error) {
	return s.subs.add(onSample, onError), nil
}

func (s *IngestSource) Unwatch(sub Subscription) {
	s.subs.remove(sub)
}

var _ Source = (*IngestSource)(nil)
