// Package queue is a durable at-least-once work queue on a Redis Stream with
// a consumer group. Entries stay pending until acknowledged, and entries left
// pending by a dead consumer are reclaimed after an idle period.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const bodyField = "body"

type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

// Enqueue appends a job and returns it with its job id filled in.
func (p *Publisher) Enqueue(ctx context.Context, job models.GenerationJob) (models.GenerationJob, error) {
	if job.JobID == uuid.Nil {
		job.JobID = uuid.New()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return job, err
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{bodyField: string(data)},
	}).Err()
	if err != nil {
		return job, &apperr.QueueConnectivityError{Op: "xadd", Err: err}
	}
	return job, nil
}

// Handler processes one job. The entry is acknowledged once it returns.
type Handler func(ctx context.Context, job models.GenerationJob)

type ConsumerOptions struct {
	Stream    string
	Group     string
	Consumer  string
	Block     time.Duration
	Batch     int64
	ClaimIdle time.Duration
}

type Consumer struct {
	client *redis.Client
	opts   ConsumerOptions
	log    *zap.Logger
}

func NewConsumer(client *redis.Client, opts ConsumerOptions, log *zap.Logger) *Consumer {
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.Batch <= 0 {
		opts.Batch = 1
	}
	if opts.ClaimIdle <= 0 {
		opts.ClaimIdle = 5 * time.Minute
	}
	return &Consumer{
		client: client,
		opts:   opts,
		log:    log.With(zap.String("stream", opts.Stream), zap.String("consumer", opts.Consumer)),
	}
}

// EnsureGroup creates the stream and the consumer group if missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.opts.Stream, c.opts.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return &apperr.QueueConnectivityError{Op: "xgroup create", Err: err}
	}
	return nil
}

// Run consumes until ctx is done (returning nil) or Redis fails
// (returning a *apperr.QueueConnectivityError). Unacknowledged entries
// remain pending and are redelivered later.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	lastClaim := time.Time{}
	for {
		if ctx.Err() != nil {
			return nil
		}

		if time.Since(lastClaim) >= c.opts.ClaimIdle/2 {
			if err := c.reclaim(ctx, handle); err != nil {
				return c.connectivity(ctx, "xautoclaim", err)
			}
			lastClaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.opts.Group,
			Consumer: c.opts.Consumer,
			Streams:  []string{c.opts.Stream, ">"},
			Count:    c.opts.Batch,
			Block:    c.opts.Block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return c.connectivity(ctx, "xreadgroup", err)
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				if err := c.process(ctx, msg, handle); err != nil {
					return c.connectivity(ctx, "xack", err)
				}
			}
		}
	}
}

func (c *Consumer) reclaim(ctx context.Context, handle Handler) error {
	start := "0-0"
	for {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.opts.Stream,
			Group:    c.opts.Group,
			Consumer: c.opts.Consumer,
			MinIdle:  c.opts.ClaimIdle,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			c.log.Info("reclaimed pending job", zap.String("entry_id", msg.ID))
			if err := c.process(ctx, msg, handle); err != nil {
				return err
			}
		}
		if next == "0-0" || next == "" || len(msgs) == 0 {
			return nil
		}
		start = next
	}
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage, handle Handler) error {
	job, err := decode(msg)
	if err != nil {
		c.log.Error("dropping undecodable job", zap.String("entry_id", msg.ID), zap.Error(err))
	} else {
		handle(ctx, job)
	}
	if ctx.Err() != nil {
		// shutting down mid-job: leave it pending for redelivery
		return nil
	}
	return c.client.XAck(ctx, c.opts.Stream, c.opts.Group, msg.ID).Err()
}

func (c *Consumer) connectivity(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return &apperr.QueueConnectivityError{Op: op, Err: err}
}

func decode(msg redis.XMessage) (models.GenerationJob, error) {
	var job models.GenerationJob
	raw, ok := msg.Values[bodyField].(string)
	if !ok {
		return job, errors.New("missing body field")
	}
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return job, err
	}
	if job.CampaignID == uuid.Nil || job.URL == "" {
		return job, errors.New("campaignId and url are required")
	}
	if job.JobID == uuid.Nil {
		// older producers send no job id; the entry id is stable across redeliveries
		job.JobID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(msg.ID))
	}
	return job, nil
}
