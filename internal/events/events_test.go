// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package events

import (
	"context"
	"testing"
	"time"

	"github.com/mstralka/mark-flicklit-sub001/internal/logging"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

func openTestWAL(t *testing.T) *WAL {
	t.Helper()
	w, err := OpenWAL(WALConfig{Path: t.TempDir()}, logging.NewTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func sampleInteraction(id string) models.UserInteraction {
	return models.UserInteraction{
		ID:        id,
		UserID:    "u1",
		WorkID:    "w1",
		Liked:     true,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestWALWriteConfirmLifecycle(t *testing.T) {
	w := openTestWAL(t)
	ctx := context.Background()

	entryID, err := w.Write(ctx, sampleInteraction("i1"))
	if err != nil {
		t.Fatal(err)
	}
	if w.PendingCount() != 1 {
		t.Errorf("pending = %d, want 1", w.PendingCount())
	}

	pending, err := w.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Interaction.ID != "i1" {
		t.Fatalf("pending entries = %+v", pending)
	}

	if err := w.Confirm(ctx, entryID); err != nil {
		t.Fatal(err)
	}
	if w.PendingCount() != 0 {
		t.Errorf("pending after confirm = %d, want 0", w.PendingCount())
	}

	pending, err = w.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending entries after confirm = %d, want 0", len(pending))
	}

	if err := w.Compact(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestWALConfirmUnknownIsNoOp(t *testing.T) {
	w := openTestWAL(t)
	if err := w.Confirm(context.Background(), "does-not-exist"); err != nil {
		t.Errorf("confirm of unknown id errored: %v", err)
	}
}

func TestWALClosedRejectsOperations(t *testing.T) {
	w := openTestWAL(t)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(context.Background(), sampleInteraction("i1")); err != ErrWALClosed {
		t.Errorf("write after close = %v, want ErrWALClosed", err)
	}
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(16, nil, logging.NewTestLogger())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.SubscribeInteractions(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := sampleInteraction("i1")
	if err := bus.PublishInteraction(want); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-events:
		if got.ID != want.ID || got.UserID != want.UserID || got.Liked != want.Liked {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusConfirmsWALOnPublish(t *testing.T) {
	w := openTestWAL(t)
	bus := NewBus(16, w, logging.NewTestLogger())
	defer bus.Close()

	if err := bus.PublishInteraction(sampleInteraction("i1")); err != nil {
		t.Fatal(err)
	}
	if w.PendingCount() != 0 {
		t.Errorf("pending after published interaction = %d, want 0", w.PendingCount())
	}
}

func TestReplayPending(t *testing.T) {
	w := openTestWAL(t)
	ctx := context.Background()

	// Simulate a crash between write and publish.
	if _, err := w.Write(ctx, sampleInteraction("i1")); err != nil {
		t.Fatal(err)
	}

	bus := NewBus(16, w, logging.NewTestLogger())
	defer bus.Close()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := bus.SubscribeInteractions(subCtx)
	if err != nil {
		t.Fatal(err)
	}

	if err := bus.ReplayPending(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-events:
		if got.ID != "i1" {
			t.Errorf("replayed event id = %s, want i1", got.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for replayed event")
	}
	if w.PendingCount() != 0 {
		t.Errorf("pending after replay = %d, want 0", w.PendingCount())
	}
}
