package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munivet/campo-api/internal/models"
)

type fakeSubscription struct {
	messages chan []byte
	closed   bool
	mu       sync.Mutex
}

func (s *fakeSubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.messages)
	}
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeTransport struct {
	mu         sync.Mutex
	subs       map[string]*fakeSubscription
	published  map[string][][]byte
	subscribes int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		subs:      make(map[string]*fakeSubscription),
		published: make(map[string][][]byte),
	}
}

func (t *fakeTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	t.mu.Lock()
	t.published[topic] = append(t.published[topic], payload)
	sub := t.subs[topic]
	t.mu.Unlock()
	if sub != nil && !sub.isClosed() {
		sub.messages <- payload
	}
	return nil
}

func (t *fakeTransport) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribes++
	sub := &fakeSubscription{messages: make(chan []byte, 16)}
	t.subs[topic] = sub
	return sub, nil
}

func (t *fakeTransport) subFor(topic string) *fakeSubscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subs[topic]
}

func (t *fakeTransport) publishedOn(topic string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.published[topic])
}

func locationEvent(t *testing.T, workerID string, lat, lng float64) []byte {
	t.Helper()
	payload, err := json.Marshal(models.ChannelEvent{
		Type:     models.EventLocationUpdate,
		Location: &models.LocationUpdate{WorkerID: workerID, Lat: lat, Lng: lng},
	})
	require.NoError(t, err)
	return payload
}

func TestChannelJoinDeliversUpdates(t *testing.T) {
	transport := newFakeTransport()
	ch := NewChannel(transport, "campo:campana", nil)

	require.NoError(t, ch.Join(context.Background(), "c1"))
	assert.Equal(t, "c1", ch.Joined())

	require.NoError(t, transport.Publish(context.Background(), Topic("campo:campana", "c1"), locationEvent(t, "7", -17.78, -63.18)))

	select {
	case update := <-ch.Updates():
		assert.Equal(t, "7", update.WorkerID)
		assert.Equal(t, -17.78, update.Lat)
	case <-time.After(time.Second):
		t.Fatal("expected a location update")
	}
}

func TestChannelJoinSameCampaignIsNoop(t *testing.T) {
	transport := newFakeTransport()
	ch := NewChannel(transport, "campo:campana", nil)

	require.NoError(t, ch.Join(context.Background(), "c1"))
	require.NoError(t, ch.Join(context.Background(), "c1"))
	assert.Equal(t, 1, transport.subscribes)
}

func TestChannelJoinOtherCampaignLeavesFirst(t *testing.T) {
	transport := newFakeTransport()
	ch := NewChannel(transport, "campo:campana", nil)

	require.NoError(t, ch.Join(context.Background(), "c1"))
	first := transport.subFor(Topic("campo:campana", "c1"))

	require.NoError(t, ch.Join(context.Background(), "c2"))
	assert.Equal(t, "c2", ch.Joined())
	assert.True(t, first.isClosed())
}

func TestChannelPublishWithoutTopicIsDropped(t *testing.T) {
	transport := newFakeTransport()
	ch := NewChannel(transport, "campo:campana", nil)

	require.NoError(t, ch.Publish(context.Background(), models.LocationUpdate{WorkerID: "7"}))
	assert.Empty(t, transport.published)
}

func TestChannelPublishReachesTopic(t *testing.T) {
	transport := newFakeTransport()
	ch := NewChannel(transport, "campo:campana", nil)

	require.NoError(t, ch.Join(context.Background(), "c1"))
	require.NoError(t, ch.Publish(context.Background(), models.LocationUpdate{WorkerID: "7", Lat: -17.78, Lng: -63.18}))
	assert.Equal(t, 1, transport.publishedOn(Topic("campo:campana", "c1")))
}

func TestChannelLeaveRunsHookAndClears(t *testing.T) {
	transport := newFakeTransport()
	ch := NewChannel(transport, "campo:campana", nil)

	left := false
	ch.OnLeave(func() { left = true })

	require.NoError(t, ch.Join(context.Background(), "c1"))
	ch.Leave(context.Background())

	assert.True(t, left)
	assert.Empty(t, ch.Joined())
}

type leakySubscription struct {
	messages chan []byte
}

func (s *leakySubscription) Messages() <-chan []byte { return s.messages }
func (s *leakySubscription) Close() error            { return nil }

// leakyTransport keeps delivering buffered payloads after Close, the way
// a pub/sub client can hand over in-flight messages after unsubscribe.
type leakyTransport struct {
	mu   sync.Mutex
	subs map[string]*leakySubscription
}

func newLeakyTransport() *leakyTransport {
	return &leakyTransport{subs: make(map[string]*leakySubscription)}
}

func (t *leakyTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	return nil
}

func (t *leakyTransport) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := &leakySubscription{messages: make(chan []byte, 16)}
	t.subs[topic] = sub
	return sub, nil
}

func (t *leakyTransport) subOn(topic string) *leakySubscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subs[topic]
}

func TestChannelRejoinDropsStaleBacklog(t *testing.T) {
	transport := newLeakyTransport()
	ch := NewChannel(transport, "campo:campana", nil)

	require.NoError(t, ch.Join(context.Background(), "c1"))
	stale := transport.subOn(Topic("campo:campana", "c1"))

	require.NoError(t, ch.Join(context.Background(), "c2"))
	fresh := transport.subOn(Topic("campo:campana", "c2"))

	stale.messages <- locationEvent(t, "old", 1, 1)
	fresh.messages <- locationEvent(t, "9", 2, 3)

	select {
	case update := <-ch.Updates():
		assert.Equal(t, "9", update.WorkerID)
	case <-time.After(time.Second):
		t.Fatal("expected the active campaign's update")
	}
	select {
	case update := <-ch.Updates():
		t.Fatalf("unexpected update for worker %s", update.WorkerID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelIgnoresNonLocationEvents(t *testing.T) {
	transport := newFakeTransport()
	ch := NewChannel(transport, "campo:campana", nil)

	require.NoError(t, ch.Join(context.Background(), "c1"))
	join, err := json.Marshal(models.ChannelEvent{Type: models.EventJoinCampaign})
	require.NoError(t, err)
	require.NoError(t, transport.Publish(context.Background(), Topic("campo:campana", "c1"), join))
	require.NoError(t, transport.Publish(context.Background(), Topic("campo:campana", "c1"), locationEvent(t, "7", 1, 2)))

	select {
	case update := <-ch.Updates():
		assert.Equal(t, "7", update.WorkerID)
	case <-time.After(time.Second):
		t.Fatal("expected the location update to pass through")
	}
}
