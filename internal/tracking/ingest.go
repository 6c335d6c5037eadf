package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
	"github.com/munivet/campo-api/pkg/jobs"
)

type positionStore interface {
	Store(ctx context.Context, campaignID string, update models.LocationUpdate) error
}

type ingestMetrics interface {
	IncLocationUpdate()
}

// IngestorConfig tunes the ingest pipeline.
type IngestorConfig struct {
	Prefix     string
	BufferSize int
	Logger     *zap.Logger
}

// Ingestor takes location reports submitted over REST, fans them out on
// the campaign topic and refreshes the last-known-position snapshot.
type Ingestor struct {
	transport Transport
	store     positionStore
	metrics   ingestMetrics
	prefix    string
	logger    *zap.Logger
	queue     *jobs.Queue
}

type ingestPayload struct {
	CampaignID string
	Update     models.LocationUpdate
}

// NewIngestor builds the ingest pipeline. A single worker drains the
// queue so per-sender publish order is preserved end to end.
func NewIngestor(transport Transport, store positionStore, metrics ingestMetrics, cfg IngestorConfig) *Ingestor {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	i := &Ingestor{
		transport: transport,
		store:     store,
		metrics:   metrics,
		prefix:    cfg.Prefix,
		logger:    cfg.Logger,
	}
	i.queue = jobs.NewQueue("tracking_ingest", i.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.BufferSize,
		Logger:     cfg.Logger,
	})
	return i
}

// Start begins queue consumption.
func (i *Ingestor) Start(ctx context.Context) {
	i.queue.Start(ctx)
}

// Stop drains the workers.
func (i *Ingestor) Stop() {
	i.queue.Stop()
}

// Submit enqueues one position report for fan-out.
func (i *Ingestor) Submit(campaignID string, update models.LocationUpdate) error {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	return i.queue.Enqueue(jobs.Job{
		ID:      fmt.Sprintf("%s-%s-%d", campaignID, update.WorkerID, update.Timestamp.UnixNano()),
		Type:    models.EventSendLocation,
		Payload: ingestPayload{CampaignID: campaignID, Update: update},
	})
}

func (i *Ingestor) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ingestPayload)
	if !ok {
		i.logger.Sugar().Warnw("discarding malformed ingest job", "job_id", job.ID)
		return nil
	}

	event, err := json.Marshal(models.ChannelEvent{Type: models.EventLocationUpdate, Location: &payload.Update})
	if err != nil {
		return fmt.Errorf("encode channel event: %w", err)
	}
	if err := i.transport.Publish(ctx, Topic(i.prefix, payload.CampaignID), event); err != nil {
		return fmt.Errorf("publish location update: %w", err)
	}
	if err := i.store.Store(ctx, payload.CampaignID, payload.Update); err != nil {
		return fmt.Errorf("store location snapshot: %w", err)
	}
	if i.metrics != nil {
		i.metrics.IncLocationUpdate()
	}
	return nil
}
