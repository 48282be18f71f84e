package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/dispensary-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeCatalogPublished is emitted after a catalog has been written.
	EventTypeCatalogPublished EventType = "CATALOG_PUBLISHED"

	DefaultStream = "stream:catalog"
)

// CatalogPublishedPayload describes a freshly written catalog.
type CatalogPublishedPayload struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Run        *models.Run    `json:"run"`
	OutputPath string         `json:"output_path"`
	ByCategory map[string]int `json:"by_category"`
	Source     string         `json:"source"`
}

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher writes catalog events to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// NewCatalogPublished builds the payload for a written catalog.
func NewCatalogPublished(run *models.Run, outputPath string, products []*models.Product) *CatalogPublishedPayload {
	byCategory := make(map[string]int)
	for _, p := range products {
		byCategory[p.Category]++
	}

	return &CatalogPublishedPayload{
		Run:        run,
		OutputPath: outputPath,
		ByCategory: byCategory,
	}
}

// PublishCatalog adds a CATALOG_PUBLISHED entry to the stream and returns
// its stream id.
func (p *Publisher) PublishCatalog(ctx context.Context, payload *CatalogPublishedPayload) (string, error) {
	// Set event metadata
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeCatalogPublished)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	if payload.Source == "" {
		payload.Source = "dispensary-scraper"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	values := map[string]any{
		"data":       string(data),
		"type":       payload.EventType,
		"event_type": payload.EventType,
		"timestamp":  fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		"event_id":   payload.EventID,
	}
	if payload.Run != nil {
		values["run_id"] = payload.Run.ID.String()
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{Stream: p.stream, Values: values}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"stream", p.stream,
		"stream_id", id,
	)

	return id, nil
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}
