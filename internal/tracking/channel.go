package tracking

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
)

// Transport abstracts the pub/sub fabric so the channel runs against
// Redis in production and an in-memory fake in tests.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription is one active topic subscription. Messages is closed by
// Close.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Channel is a per-campaign location channel. Each instance is owned by
// the session viewing a campaign map; it holds at most one active topic.
type Channel struct {
	transport Transport
	prefix    string
	logger    *zap.Logger

	mu         sync.Mutex
	campaignID string
	sub        Subscription
	onLeave    func()

	updates chan models.LocationUpdate
}

// NewChannel constructs a channel. The prefix namespaces campaign topics.
func NewChannel(transport Transport, prefix string, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		transport: transport,
		prefix:    prefix,
		logger:    logger,
		updates:   make(chan models.LocationUpdate, 64),
	}
}

// Topic returns the wire topic for a campaign.
func Topic(prefix, campaignID string) string {
	return prefix + ":" + campaignID
}

// Join subscribes to a campaign's topic. Joining while another campaign
// is active leaves it first; at most one topic per channel.
func (c *Channel) Join(ctx context.Context, campaignID string) error {
	c.mu.Lock()
	if c.campaignID == campaignID {
		c.mu.Unlock()
		return nil
	}
	var hook func()
	if c.campaignID != "" {
		hook = c.leaveLocked()
	}

	sub, err := c.transport.Subscribe(ctx, Topic(c.prefix, campaignID))
	if err != nil {
		c.mu.Unlock()
		if hook != nil {
			hook()
		}
		return err
	}
	c.campaignID = campaignID
	c.sub = sub
	go c.read(sub)
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.logger.Sugar().Infow("joined campaign topic", "campaign_id", campaignID)
	return nil
}

// Leave unsubscribes from the active topic and stops the local position
// broadcast when one is running.
func (c *Channel) Leave(ctx context.Context) {
	c.mu.Lock()
	hook := c.leaveLocked()
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Publish broadcasts the local device's position to the joined topic.
// While not joined (or disconnected) the update is dropped silently; the
// broadcast resumes on the next watch tick.
func (c *Channel) Publish(ctx context.Context, update models.LocationUpdate) error {
	c.mu.Lock()
	campaignID := c.campaignID
	c.mu.Unlock()

	if campaignID == "" {
		c.logger.Sugar().Debugw("dropping location update, no active topic", "worker_id", update.WorkerID)
		return nil
	}

	payload, err := json.Marshal(models.ChannelEvent{Type: models.EventLocationUpdate, Location: &update})
	if err != nil {
		return err
	}
	if err := c.transport.Publish(ctx, Topic(c.prefix, campaignID), payload); err != nil {
		// Dropped on purpose: no buffering while disconnected.
		c.logger.Sugar().Debugw("dropping location update, publish failed", "worker_id", update.WorkerID, "error", err)
	}
	return nil
}

// Updates delivers inbound location events in arrival order. Per-sender
// order is inherited from the transport; no global order across senders.
func (c *Channel) Updates() <-chan models.LocationUpdate {
	return c.updates
}

// OnLeave registers a hook run when the channel leaves its topic. The
// broadcaster uses it to stop the position watch.
func (c *Channel) OnLeave(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLeave = fn
}

// Joined returns the active campaign id, empty when not joined.
func (c *Channel) Joined() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.campaignID
}

// leaveLocked closes the subscription and returns the leave hook. The
// caller runs it after unlocking: the hook's stop path may call Publish.
func (c *Channel) leaveLocked() func() {
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			c.logger.Sugar().Debugw("closing subscription", "error", err)
		}
		c.sub = nil
	}
	if c.campaignID != "" {
		c.logger.Sugar().Infow("left campaign topic", "campaign_id", c.campaignID)
	}
	c.campaignID = ""
	return c.onLeave
}

func (c *Channel) read(sub Subscription) {
	for payload := range sub.Messages() {
		var event models.ChannelEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.Sugar().Debugw("discarding malformed channel event", "error", err)
			continue
		}
		if event.Type != models.EventLocationUpdate || event.Location == nil {
			continue
		}
		// A left subscription may still drain buffered payloads; drop
		// them instead of interleaving a stale campaign into updates.
		if !c.owns(sub) {
			return
		}
		c.updates <- *event.Location
	}
}

func (c *Channel) owns(sub Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub == sub
}
