package position

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// MQTT topic layout. Devices publish fixes and permission changes, the
// service publishes commands (one-shot fix requests, permission prompts).
const (
	positionTopicFmt   = "minaret/device/%s/position"
	permissionTopicFmt = "minaret/device/%s/permission"
	commandTopicFmt    = "minaret/device/%s/commands"
)

const oneShotTimeout = 10 * time.Second

type permissionMessage struct {
	State string `json:"state"`
}

type commandMessage struct {
	Type string `json:"type"`
}

// MQTTSource is the native-device position source. One instance per tracked
// device; it subscribes to the device's position and permission topics on the
// shared broker client.
type MQTTSource struct {
	client   mqtt.Client
	deviceID string
	subs     *subscribers

	mu         sync.Mutex
	permission Permission
	oneShot    []chan Sample
	permWait   []chan Permission
}

func NewMQTTSource(client mqtt.Client, deviceID string) (*MQTTSource, error) {
	s := &MQTTSource{
		client:     client,
		deviceID:   deviceID,
		subs:       newSubscribers(),
		permission: PermissionPrompt,
	}

	posTopic := fmt.Sprintf(positionTopicFmt, deviceID)
	if token := client.Subscribe(posTopic, 1, s.handlePosition); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", posTopic, token.Error())
	}
	permTopic := fmt.Sprintf(permissionTopicFmt, deviceID)
	if token := client.Subscribe(permTopic, 1, s.handlePermission); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", permTopic, token.Error())
	}
	return s, nil
}

// Close drops the broker subscriptions. Watch handlers receive nothing after
// Close returns.
func (s *MQTTSource) Close() {
	token := s.client.Unsubscribe(
		fmt.Sprintf(positionTopicFmt, s.deviceID),
		fmt.Sprintf(permissionTopicFmt, s.deviceID),
	)
	token.Wait()
}

func (s *MQTTSource) handlePosition(_ mqtt.Client, msg mqtt.Message) {
	var sample Sample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		log.Warn().Err(err).Str("device", s.deviceID).Msg("invalid position payload")
		s.subs.dispatchError(fmt.Errorf("%w: %v", ErrLocationUnavailable, err))
		return
	}
	if !validSample(sample) {
		log.Warn().Str("device", s.deviceID).Msg("position payload out of range")
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

func (s *MQTTSource) handlePermission(_ mqtt.Client, msg mqtt.Message) {
	var pm permissionMessage
	if err := json.Unmarshal(msg.Payload(), &pm); err != nil {
		log.Warn().Err(err).Str("device", s.deviceID).Msg("invalid permission payload")
		return
	}
	perm := Permission(pm.State)
	switch perm {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
	default:
		log.Warn().Str("device", s.deviceID).Str("state", pm.State).Msg("unknown permission state")
		return
	}

	s.mu.Lock()
	s.permission = perm
	waiters := s.permWait
	s.permWait = nil
	s.mu.Unlock()
	for _, ch := range waiters {
		ch <- perm
	}
}

func (s *MQTTSource) CheckPermission(_ context.Context) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission, nil
}

// RequestPermission asks the device to prompt the user and waits for the
// reported outcome.
func (s *MQTTSource) RequestPermission(ctx context.Context) (bool, error) {
	wait := make(chan Permission, 1)
	s.mu.Lock()
	if s.permission == PermissionGranted {
		s.mu.Unlock()
		return true, nil
	}
	s.permWait = append(s.permWait, wait)
	s.mu.Unlock()

	if err := s.publishCommand("permission_request"); err != nil {
		return false, err
	}

	select {
	case perm := <-wait:
		return perm == PermissionGranted, nil
	case <-time.After(oneShotTimeout):
		s.dropPermWaiter(wait)
		return false, nil
	case <-ctx.Done():
		s.dropPermWaiter(wait)
		return false, ctx.Err()
	}
}

// GetOnce requests a single fix and waits for the next published sample.
func (s *MQTTSource) GetOnce(ctx context.Context) (Sample, error) {
	wait := make(chan Sample, 1)
	s.mu.Lock()
	if s.permission == PermissionDenied {
		s.mu.Unlock()
		return Sample{}, ErrLocationUnavailable
	}
	s.oneShot = append(s.oneShot, wait)
	s.mu.Unlock()

	if err := s.publishCommand("position_request"); err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	select {
	case sample := <-wait:
		return sample, nil
	case <-time.After(oneShotTimeout):
		s.dropFixWaiter(wait)
		return Sample{}, ErrLocationUnavailable
	case <-ctx.Done():
		s.dropFixWaiter(wait)
		return Sample{}, ctx.Err()
	}
}

// abandoned waiters are removed so the slices stay bounded by in-flight
// calls; the buffered channels keep concurrent handler sends non-blocking.

func (s *MQTTSource) dropFixWaiter(ch chan Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.oneShot {
		if w == ch {
			s.oneShot = append(s.oneShot[:i], s.oneShot[i+1:]...)
			return
		}
	}
}

func (s *MQTTSource) dropPermWaiter(ch chan Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.permWait {
		if w == ch {
			s.permWait = append(s.permWait[:i], s.permWait[i+1:]...)
			return
		}
	}
}

func (s *MQTTSource) Watch(onSample Handler, onError ErrorHandler) (Subscription, error) {
	return s.subs.add(onSample, onError), nil
}

func (s *MQTTSource) Unwatch(sub Subscription) {
	s.subs.remove(sub)
}

func (s *MQTTSource) publishCommand(kind string) error {
	payload, err := json.Marshal(commandMessage{Type: kind})
	if err != nil {
		return err
	}
	topic := fmt.Sprintf(commandTopicFmt, s.deviceID)
	token := s.client.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

var _ Source = (*MQTTSource)(nil)
