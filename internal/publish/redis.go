// Package publish sends run summaries to Redis for dashboards and
// downstream consumers.
//
//	cpueff run                                  Redis
//	┌─────────────┐  PUBLISH cpueff:summary:U  ┌─────────────┐
//	│   Redis     │ ─────────────────────────▶ │  Pub/Sub    │ → live dashboards
//	│  Publisher  │                            └─────────────┘
//	│             │  XADD cpueff:summary:stream┌─────────────┐
//	│             │ ─────────────────────────▶ │  Streams    │ → batch consumers
//	└─────────────┘                            └─────────────┘
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aceteam-ai/cpueff/internal/history"
)

// MessageVersion is the schema version carried by every message.
const MessageVersion = "1.0"

// DefaultStream is the stream summaries are appended to.
const DefaultStream = "cpueff:summary:stream"

// streamMaxLen caps the stream so it cannot grow without bound.
const streamMaxLen = 10000

// userPattern validates user names before they become part of a channel name.
var userPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// SummaryMessage is the payload published for one report run.
type SummaryMessage struct {
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	RunID     string `json:"runId"`
	User      string `json:"user"`
	Host      string `json:"host,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Policy    string `json:"policy"`

	Threshold        float64  `json:"threshold"`
	Efficiency       *float64 `json:"efficiency"` // null when undefined
	ConsumedSeconds  float64  `json:"consumedSeconds"`
	AllocatedSeconds float64  `json:"allocatedSeconds"`

	Jobs      int `json:"jobs"`
	Low       int `json:"low"`
	Steps     int `json:"steps"`
	Undefined int `json:"undefined"`
}

// FromRun builds the message for a stored run.
func FromRun(r history.Run) SummaryMessage {
	msg := SummaryMessage{
		Version:          MessageVersion,
		Timestamp:        r.CreatedAt.UTC().Format(time.RFC3339),
		RunID:            r.ID,
		User:             r.User,
		Host:             r.Host,
		Start:            r.Start,
		End:              r.End,
		Policy:           r.Policy,
		Threshold:        r.Threshold,
		ConsumedSeconds:  r.Consumed.Seconds(),
		AllocatedSeconds: r.Allocated.Seconds(),
		Jobs:             r.Jobs,
		Low:              r.Low,
		Steps:            r.Steps,
		Undefined:        r.Undefined,
	}
	if r.Valid {
		e := r.Efficiency
		msg.Efficiency = &e
	}
	return msg
}

// RedisPublisherConfig holds configuration for the Redis summary publisher.
type RedisPublisherConfig struct {
	// RedisURL is the Redis connection URL
	RedisURL string

	// RedisPassword is the Redis password (optional)
	RedisPassword string

	// Stream overrides DefaultStream (optional)
	Stream string

	// DebugFunc is an optional callback for debug logging
	DebugFunc func(format string, args ...any)
}

// RedisPublisher publishes run summaries to Pub/Sub and a Stream.
type RedisPublisher struct {
	client     *redis.Client
	streamName string
	debugFunc  func(format string, args ...any)
}

// NewRedisPublisher creates a publisher. It does not connect until the first
// publish.
func NewRedisPublisher(cfg RedisPublisherConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}

	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}

	return &RedisPublisher{
		client:     redis.NewClient(opts),
		streamName: stream,
		debugFunc:  cfg.DebugFunc,
	}, nil
}

func (p *RedisPublisher) debug(format string, args ...any) {
	if p.debugFunc != nil {
		p.debugFunc(format, args...)
	}
}

// Channel returns the Pub/Sub channel for user.
func Channel(user string) string {
	return "cpueff:summary:" + user
}

// Publish sends msg to the user's Pub/Sub channel and appends it to the stream.
func (p *RedisPublisher) Publish(ctx context.Context, msg SummaryMessage) error {
	if !userPattern.MatchString(msg.User) {
		return fmt.Errorf("invalid user %q: must be 1-64 alphanumeric characters, hyphens, underscores, or dots", msg.User)
	}
	if msg.Version == "" {
		msg.Version = MessageVersion
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	channel := Channel(msg.User)
	p.debug("publish: run %s to channel %s (%d bytes)", msg.RunID, channel, len(jsonData))
	if err := p.client.Publish(ctx, channel, jsonData).Err(); err != nil {
		return fmt.Errorf("failed to publish to Pub/Sub: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamName,
		Values: map[string]any{
			"runId":     msg.RunID,
			"user":      msg.User,
			"timestamp": msg.Timestamp,
			"payload":   string(jsonData),
		},
		MaxLen: streamMaxLen,
		Approx: true,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	p.debug("publish: stream XADD to %s successful", p.streamName)
	return nil
}

// PublishRuns publishes each run in order. It matches history.PublishFunc.
func (p *RedisPublisher) PublishRuns(ctx context.Context, runs []history.Run) error {
	for _, r := range runs {
		if err := p.Publish(ctx, FromRun(r)); err != nil {
			return fmt.Errorf("run %s: %w", r.ID, err)
		}
	}
	return nil
}

// Ping verifies the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// StreamName returns the Stream name.
func (p *RedisPublisher) StreamName() string {
	return p.streamName
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
