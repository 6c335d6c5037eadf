package tracking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
	appErrors "github.com/munivet/campo-api/pkg/errors"
)

// Position is one coordinate sample from the device.
type Position struct {
	Lat float64
	Lng float64
}

// PositionSource abstracts the device geolocation capability so the
// broadcaster can be tested with a fake source. cancel stops the watch.
type PositionSource interface {
	Supported() bool
	Current(ctx context.Context) (Position, error)
	Watch(ctx context.Context) (positions <-chan Position, cancel func(), err error)
}

type locationPublisher interface {
	Publish(ctx context.Context, update models.LocationUpdate) error
}

// Broadcaster drives the local position broadcast. One watch per device:
// starting while a watch is active stops the previous one first.
type Broadcaster struct {
	source  PositionSource
	channel locationPublisher
	logger  *zap.Logger

	mu     sync.Mutex
	cancel func()
	done   chan struct{}
}

// NewBroadcaster constructs a broadcaster bound to a channel.
func NewBroadcaster(source PositionSource, channel locationPublisher, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{source: source, channel: channel, logger: logger}
}

// Start begins broadcasting the device position tagged with the worker's
// identity. When the source is unavailable the error is surfaced once and
// the broadcast simply does not start.
func (b *Broadcaster) Start(ctx context.Context, workerID, name string) error {
	if !b.source.Supported() {
		return appErrors.Clone(appErrors.ErrGeolocationDenied, "")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()

	positions, cancel, err := b.source.Watch(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrGeolocationDenied.Code, appErrors.ErrGeolocationDenied.Status, "failed to start position watch")
	}

	done := make(chan struct{})
	b.cancel = cancel
	b.done = done

	go func() {
		defer close(done)
		for pos := range positions {
			update := models.LocationUpdate{
				WorkerID:  workerID,
				Name:      name,
				Lat:       pos.Lat,
				Lng:       pos.Lng,
				Timestamp: time.Now().UTC(),
			}
			if err := b.channel.Publish(ctx, update); err != nil {
				b.logger.Sugar().Debugw("position publish failed", "worker_id", workerID, "error", err)
			}
		}
	}()

	b.logger.Sugar().Infow("position broadcast started", "worker_id", workerID)
	return nil
}

// Stop ends the broadcast. Idempotent.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

// Active reports whether a watch is running.
func (b *Broadcaster) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

func (b *Broadcaster) stopLocked() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
	b.cancel = nil
	b.done = nil
}
