package tracking

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
	appErrors "github.com/munivet/campo-api/pkg/errors"
)

type hubSnapshots interface {
	Positions(ctx context.Context, campaignID string) ([]models.LocationUpdate, error)
	Store(ctx context.Context, campaignID string, update models.LocationUpdate) error
}

type hubMetrics interface {
	SetActiveTopics(n int)
	IncLocationUpdate()
}

// HubConfig tunes the session hub.
type HubConfig struct {
	Prefix string
	Logger *zap.Logger
}

// Hub opens live map sessions. Each session owns its own channel and
// point set; the hub only tracks which campaign topics are active and
// routes position reports to broadcasting sessions.
type Hub struct {
	transport Transport
	snapshots hubSnapshots
	metrics   hubMetrics
	prefix    string
	logger    *zap.Logger

	mu       sync.Mutex
	topics   map[string]int
	emitters map[string]*Session
}

// NewHub constructs a hub over the pub/sub transport and the snapshot
// store.
func NewHub(transport Transport, snapshots hubSnapshots, metrics hubMetrics, cfg HubConfig) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Hub{
		transport: transport,
		snapshots: snapshots,
		metrics:   metrics,
		prefix:    cfg.Prefix,
		logger:    cfg.Logger,
		topics:    make(map[string]int),
		emitters:  make(map[string]*Session),
	}
}

// Open joins the campaign topic and seeds a fresh reconciler from the
// last-known-position snapshot. With broadcast set, position reports the
// worker submits over REST are re-published through the session's
// channel until it closes.
func (h *Hub) Open(ctx context.Context, campaignID, workerID, workerName string, broadcast bool) (*Session, error) {
	channel := NewChannel(h.transport, h.prefix, h.logger)
	if err := channel.Join(ctx, campaignID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join campaign topic")
	}

	positions, err := h.snapshots.Positions(ctx, campaignID)
	if err != nil {
		channel.Leave(ctx)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load position snapshot")
	}
	reconciler := NewReconciler()
	for _, update := range positions {
		reconciler.UpsertFieldWorker(update)
	}

	session := &Session{
		hub:        h,
		campaignID: campaignID,
		workerID:   workerID,
		channel:    channel,
		reconciler: reconciler,
	}
	if broadcast {
		session.source = newPushSource()
		publisher := &sessionPublisher{
			channel:    channel,
			snapshots:  h.snapshots,
			metrics:    h.metrics,
			campaignID: campaignID,
		}
		session.broadcaster = NewBroadcaster(session.source, publisher, h.logger)
		channel.OnLeave(session.broadcaster.Stop)
		if err := session.broadcaster.Start(ctx, workerID, workerName); err != nil {
			channel.Leave(ctx)
			return nil, err
		}
	}

	h.mu.Lock()
	h.topics[campaignID]++
	if broadcast {
		h.emitters[workerID] = session
	}
	active := len(h.topics)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SetActiveTopics(active)
	}
	return session, nil
}

// Offer routes a REST position report to the worker's broadcasting
// session. False when the worker holds no such session for the campaign.
func (h *Hub) Offer(campaignID, workerID string, pos Position) bool {
	h.mu.Lock()
	session := h.emitters[workerID]
	h.mu.Unlock()
	if session == nil || session.campaignID != campaignID {
		return false
	}
	return session.source.Offer(pos)
}

func (h *Hub) release(s *Session) {
	h.mu.Lock()
	if h.emitters[s.workerID] == s {
		delete(h.emitters, s.workerID)
	}
	h.topics[s.campaignID]--
	if h.topics[s.campaignID] <= 0 {
		delete(h.topics, s.campaignID)
	}
	active := len(h.topics)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SetActiveTopics(active)
	}
}

// Session is one live map view over a campaign, bound to the connection
// that opened it.
type Session struct {
	hub         *Hub
	campaignID  string
	workerID    string
	channel     *Channel
	reconciler  *Reconciler
	broadcaster *Broadcaster
	source      *pushSource
	closeOnce   sync.Once
}

// InitialPoints returns the seeded point set for the initial bulk event.
func (s *Session) InitialPoints() []models.MapPoint {
	return s.reconciler.Snapshot()
}

// Updates exposes the inbound location stream.
func (s *Session) Updates() <-chan models.LocationUpdate {
	return s.channel.Updates()
}

// Apply folds one inbound update into the session's point set.
func (s *Session) Apply(update models.LocationUpdate) {
	s.reconciler.UpsertFieldWorker(update)
}

// Close leaves the topic, stops a running broadcast and clears the live
// worker points. Idempotent.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.channel.Leave(ctx)
		s.reconciler.ClearFieldWorkers()
		s.hub.release(s)
	})
}

// sessionPublisher mirrors the ingest fan-out for in-session broadcasts:
// publish on the joined topic, refresh the snapshot hash, count the
// update.
type sessionPublisher struct {
	channel    *Channel
	snapshots  hubSnapshots
	metrics    hubMetrics
	campaignID string
}

func (p *sessionPublisher) Publish(ctx context.Context, update models.LocationUpdate) error {
	if err := p.channel.Publish(ctx, update); err != nil {
		return err
	}
	if err := p.snapshots.Store(ctx, p.campaignID, update); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.IncLocationUpdate()
	}
	return nil
}

// pushSource adapts position reports arriving over REST into a
// PositionSource, so a broadcasting session reuses the watch pipeline.
type pushSource struct {
	mu     sync.Mutex
	ch     chan Position
	last   *Position
	closed bool
}

func newPushSource() *pushSource {
	return &pushSource{ch: make(chan Position, 16)}
}

func (s *pushSource) Supported() bool { return true }

func (s *pushSource) Current(ctx context.Context) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Position{}, errors.New("no position reported yet")
	}
	return *s.last, nil
}

func (s *pushSource) Watch(ctx context.Context) (<-chan Position, func(), error) {
	return s.ch, s.close, nil
}

// Offer queues one position. Dropped when the source is closed or the
// buffer is full; there is no waiting, matching the no-buffering rule
// for broadcasts.
func (s *pushSource) Offer(pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.last = &pos
	select {
	case s.ch <- pos:
		return true
	default:
		return false
	}
}

func (s *pushSource) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
