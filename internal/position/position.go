// Package position abstracts continuous location sampling. Two sources exist:
// an MQTT-fed source for native devices streaming GPS over the broker, and an
// ingest source fed by the browser-geolocation fallback over HTTP. Both
// normalize to the same Sample shape and permission vocabulary.
package position

import (
	"context"
	"errors"
	"sync"
)

// Permission is the normalized location-permission state reported by a device.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
)

// ErrLocationUnavailable is returned by one-shot queries on timeout or denial.
var ErrLocationUnavailable = errors.New("location unavailable")

// Sample is one timestamped position fix.
type Sample struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	AccuracyMeters  float64 `json:"accuracy"`
	TimestampMillis int64   `json:"timestamp"`
}

// Handler receives samples from a watch subscription. It must not be invoked
// after Unwatch returns for its subscription.
type Handler func(Sample)

// ErrorHandler receives transient source errors. Errors never surface by
// panicking out of the sample path.
type ErrorHandler func(error)

// Subscription identifies one active watch.
type Subscription int

// Source is the capability set a geofence engine needs from a location
// provider.
type Source interface {
	CheckPermission(ctx context.Context) (Permission, error)
	RequestPermission(ctx context.Context) (bool, error)
	GetOnce(ctx context.Context) (Sample, error)
	Watch(onSample Handler, onError ErrorHandler) (Subscription, error)
	Unwatch(sub Subscription)
}

// subscribers is the shared watch registry used by both source variants.
// Dispatch is serialized by each source's single receive path, so handlers
// see samples in arrival order.
type subscribers struct {
	mu     sync.RWMutex
	next   Subscription
	onFix  map[Subscription]Handler
	onFail map[Subscription]ErrorHandler
}

func newSubscribers() *subscribers {
	return &subscribers{
		onFix:  make(map[Subscription]Handler),
		onFail: make(map[Subscription]ErrorHandler),
	}
}

func (s *subscribers) add(h Handler, eh ErrorHandler) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.onFix[id] = h
	if eh != nil {
		s.onFail[id] = eh
	}
	return id
}

func (s *subscribers) remove(id Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.onFix, id)
	delete(s.onFail, id)
}

func (s *subscribers) dispatch(sample Sample) {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.onFix))
	for _, h := range s.onFix {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()
	for _, h := range handlers {
		h(sample)
	}
}

func (s *subscribers) dispatchError(err error) {
	s.mu.RLock()
	handlers := make([]ErrorHandler, 0, len(s.onFail))
	for _, h := range s.onFail {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()
	for _, h := range handlers {
		h(err)
	}
}

func validSample(s Sample) bool {
	if s.Latitude < -90 || s.Latitude > 90 {
		return false
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return false
	}
	return s.TimestampMillis > 0
}
