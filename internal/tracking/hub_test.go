package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munivet/campo-api/internal/models"
)

type fakeHubSnapshots struct {
	mu        sync.Mutex
	positions map[string][]models.LocationUpdate
	stored    []models.LocationUpdate
}

func (s *fakeHubSnapshots) Positions(ctx context.Context, campaignID string) ([]models.LocationUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[campaignID], nil
}

func (s *fakeHubSnapshots) Store(ctx context.Context, campaignID string, update models.LocationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, update)
	return nil
}

func (s *fakeHubSnapshots) storedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

func (s *fakeHubSnapshots) lastStored() models.LocationUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored[len(s.stored)-1]
}

type fakeHubMetrics struct {
	mu      sync.Mutex
	active  int
	updates int
}

func (m *fakeHubMetrics) SetActiveTopics(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = n
}

func (m *fakeHubMetrics) IncLocationUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
}

func (m *fakeHubMetrics) activeTopics() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *fakeHubMetrics) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func newTestHub(transport Transport, snapshots *fakeHubSnapshots, metrics *fakeHubMetrics) *Hub {
	return NewHub(transport, snapshots, metrics, HubConfig{Prefix: "campo:campana"})
}

func TestHubOpenSeedsSessionFromSnapshot(t *testing.T) {
	transport := newFakeTransport()
	snapshots := &fakeHubSnapshots{positions: map[string][]models.LocationUpdate{
		"c1": {
			{WorkerID: "7", Name: "Ana", Lat: -17.78, Lng: -63.18},
			{WorkerID: "9", Name: "Luis", Lat: -17.80, Lng: -63.20},
		},
	}}
	metrics := &fakeHubMetrics{}
	hub := newTestHub(transport, snapshots, metrics)

	session, err := hub.Open(context.Background(), "c1", "7", "Ana", false)
	require.NoError(t, err)
	defer session.Close(context.Background())

	points := session.InitialPoints()
	require.Len(t, points, 2)
	assert.Equal(t, "vet_7", points[0].Key)
	assert.Equal(t, "vet_9", points[1].Key)
	assert.Equal(t, 1, metrics.activeTopics())
}

func TestHubSessionForwardsTopicUpdates(t *testing.T) {
	transport := newFakeTransport()
	hub := newTestHub(transport, &fakeHubSnapshots{}, &fakeHubMetrics{})

	session, err := hub.Open(context.Background(), "c1", "1", "Ana", false)
	require.NoError(t, err)
	defer session.Close(context.Background())

	require.NoError(t, transport.Publish(context.Background(), Topic("campo:campana", "c1"), locationEvent(t, "9", 2, 3)))

	select {
	case update := <-session.Updates():
		assert.Equal(t, "9", update.WorkerID)
		session.Apply(update)
	case <-time.After(time.Second):
		t.Fatal("expected the published update on the session")
	}

	points := session.InitialPoints()
	require.Len(t, points, 1)
	assert.Equal(t, "vet_9", points[0].Key)
}

func TestHubOfferRoutesToBroadcastingSession(t *testing.T) {
	transport := newFakeTransport()
	snapshots := &fakeHubSnapshots{}
	metrics := &fakeHubMetrics{}
	hub := newTestHub(transport, snapshots, metrics)

	session, err := hub.Open(context.Background(), "c1", "7", "Ana", true)
	require.NoError(t, err)
	defer session.Close(context.Background())

	require.True(t, hub.Offer("c1", "7", Position{Lat: -17.78, Lng: -63.18}))

	require.Eventually(t, func() bool {
		return snapshots.storedCount() == 1 && metrics.total() == 1
	}, time.Second, 5*time.Millisecond)

	stored := snapshots.lastStored()
	assert.Equal(t, "7", stored.WorkerID)
	assert.Equal(t, "Ana", stored.Name)
	assert.False(t, stored.Timestamp.IsZero())
	assert.Equal(t, 1, transport.publishedOn(Topic("campo:campana", "c1")))
}

func TestHubOfferWithoutBroadcastSessionIsFalse(t *testing.T) {
	transport := newFakeTransport()
	hub := newTestHub(transport, &fakeHubSnapshots{}, &fakeHubMetrics{})

	assert.False(t, hub.Offer("c1", "7", Position{Lat: 1, Lng: 2}))

	session, err := hub.Open(context.Background(), "c1", "7", "Ana", true)
	require.NoError(t, err)
	defer session.Close(context.Background())

	// Session bound to c1 must not soak reports aimed at another campaign.
	assert.False(t, hub.Offer("c2", "7", Position{Lat: 1, Lng: 2}))
}

func TestHubCloseStopsBroadcastAndReleases(t *testing.T) {
	transport := newFakeTransport()
	metrics := &fakeHubMetrics{}
	hub := newTestHub(transport, &fakeHubSnapshots{}, metrics)

	session, err := hub.Open(context.Background(), "c1", "7", "Ana", true)
	require.NoError(t, err)
	require.True(t, session.broadcaster.Active())

	session.Close(context.Background())

	assert.False(t, session.broadcaster.Active())
	assert.False(t, hub.Offer("c1", "7", Position{Lat: 1, Lng: 2}))
	assert.Equal(t, 0, metrics.activeTopics())

	// Close is idempotent.
	session.Close(context.Background())
	assert.Equal(t, 0, metrics.activeTopics())
}

func TestHubTracksTopicRefcounts(t *testing.T) {
	transport := newFakeTransport()
	metrics := &fakeHubMetrics{}
	hub := newTestHub(transport, &fakeHubSnapshots{}, metrics)

	first, err := hub.Open(context.Background(), "c1", "1", "Ana", false)
	require.NoError(t, err)
	second, err := hub.Open(context.Background(), "c1", "2", "Luis", false)
	require.NoError(t, err)
	third, err := hub.Open(context.Background(), "c2", "3", "Mario", false)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.activeTopics())

	first.Close(context.Background())
	assert.Equal(t, 2, metrics.activeTopics())
	second.Close(context.Background())
	assert.Equal(t, 1, metrics.activeTopics())
	third.Close(context.Background())
	assert.Equal(t, 0, metrics.activeTopics())
}
