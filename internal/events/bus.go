// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

// TopicInteractions carries one message per recorded interaction.
const TopicInteractions = "interactions"

// Bus is the in-process interaction event bus. Publishing goes through the
// WAL when one is attached: write, publish, confirm.
type Bus struct {
	pubsub *gochannel.GoChannel
	wal    *WAL
	log    zerolog.Logger
}

// NewBus creates an in-process pub/sub bus. The WAL is optional; without
// one, publishes are fire-and-forget.
func NewBus(bufferSize int, wal *WAL, log zerolog.Logger) *Bus {
	busLog := log.With().Str("component", "event_bus").Logger()
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(bufferSize)},
		newWatermillLogger(busLog),
	)
	return &Bus{pubsub: pubsub, wal: wal, log: busLog}
}

// PublishInteraction emits one interaction event, durably when a WAL is
// attached.
func (b *Bus) PublishInteraction(in models.UserInteraction) error {
	ctx := context.Background()

	var entryID string
	if b.wal != nil {
		id, err := b.wal.Write(ctx, in)
		if err != nil {
			return fmt.Errorf("wal write: %w", err)
		}
		entryID = id
	}

	if err := b.publish(in); err != nil {
		return err
	}

	if b.wal != nil {
		if err := b.wal.Confirm(ctx, entryID); err != nil {
			b.log.Warn().Err(err).Str("entry_id", entryID).
				Msg("wal confirm failed, entry will replay on restart")
		}
	}
	return nil
}

func (b *Bus) publish(in models.UserInteraction) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(TopicInteractions, msg); err != nil {
		return fmt.Errorf("publish interaction: %w", err)
	}
	return nil
}

// SubscribeInteractions delivers decoded interaction events until the
// context is cancelled. Undecodable messages are acked and dropped.
func (b *Bus) SubscribeInteractions(ctx context.Context) (<-chan models.UserInteraction, error) {
	messages, err := b.pubsub.Subscribe(ctx, TopicInteractions)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan models.UserInteraction)
	go func() {
		defer close(out)
		for msg := range messages {
			var in models.UserInteraction
			if err := json.Unmarshal(msg.Payload, &in); err != nil {
				b.log.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable event")
				msg.Ack()
				continue
			}
			select {
			case out <- in:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// ReplayPending republishes every unconfirmed WAL entry. Called once on
// startup, before new traffic.
func (b *Bus) ReplayPending(ctx context.Context) error {
	if b.wal == nil {
		return nil
	}

	entries, err := b.wal.Pending(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := b.publish(entry.Interaction); err != nil {
			return fmt.Errorf("replay entry %s: %w", entry.ID, err)
		}
		if err := b.wal.Confirm(ctx, entry.ID); err != nil {
			return fmt.Errorf("confirm replayed entry %s: %w", entry.ID, err)
		}
	}

	if len(entries) > 0 {
		b.log.Info().Int("replayed", len(entries)).Msg("pending interactions replayed")
	}
	return nil
}

// Close shuts the bus down and closes subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// watermillLogger adapts zerolog to watermill's logging interface.
type watermillLogger struct {
	log zerolog.Logger
}

func newWatermillLogger(log zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.log.Error().Err(err), fields).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.log.Info(), fields).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), fields).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.log.Trace(), fields).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	log := l.log
	for k, v := range fields {
		log = log.With().Interface(k, v).Logger()
	}
	return &watermillLogger{log: log}
}

func (l *watermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
