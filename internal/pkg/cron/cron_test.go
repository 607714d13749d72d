package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunNow(t *testing.T) {
	s := New(nil)
	runs := 0
	fail := false
	s.Register(Job{
		Name:     "purge_deleted_covers",
		Interval: time.Hour,
		Fn: func(context.Context) error {
			runs++
			if fail {
				return errors.New("bucket unreachable")
			}
			return nil
		},
	})

	snap, ok := s.Get("purge_deleted_covers")
	require.True(t, ok)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.LastRunAt)

	require.NoError(t, s.RunNow(context.Background(), "purge_deleted_covers"))
	snap, _ = s.Get("purge_deleted_covers")
	assert.Equal(t, StatusOK, snap.Status)
	assert.NotNil(t, snap.LastRunAt)

	fail = true
	require.NoError(t, s.RunNow(context.Background(), "purge_deleted_covers"))
	snap, _ = s.Get("purge_deleted_covers")
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "bucket unreachable", snap.Message)
	assert.Equal(t, 2, runs)

	assert.Error(t, s.RunNow(context.Background(), "missing"))
	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestScheduler_StartRunsDueJobs(t *testing.T) {
	s := New(nil)
	ran := make(chan struct{}, 1)
	s.Register(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Fn: func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}
