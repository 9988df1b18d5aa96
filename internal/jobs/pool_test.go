package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storepulse/config"
)

func TestPool_SubmitFull(t *testing.T) {
	p := NewPool(config.QueueConfig{Size: 2, Workers: 1}, func(context.Context, string) error { return nil }, zap.NewNop())

	require.NoError(t, p.Submit(context.Background(), "r1"))
	require.NoError(t, p.Submit(context.Background(), "r2"))
	assert.ErrorIs(t, p.Submit(context.Background(), "r3"), ErrQueueFull)
}

func TestPool_RunsJobs(t *testing.T) {
	done := make(chan string, 4)
	p := NewPool(config.QueueConfig{Size: 4, Workers: 2}, func(_ context.Context, id string) error {
		done <- id
		if id == "bad" {
			return errors.New("handler failed")
		}
		return nil
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	for _, id := range []string{"r1", "bad", "r2"} {
		require.NoError(t, p.Submit(ctx, id))
	}

	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-done:
			got[id] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for job")
		}
	}
	assert.Equal(t, map[string]bool{"r1": true, "bad": true, "r2": true}, got)

	cancel()
	p.Wait()
}

func TestPool_DrainsQueuedJobsOnShutdown(t *testing.T) {
	started := make(chan string, 1)
	release := make(chan struct{})
	var handled, drained []string
	p := NewPool(config.QueueConfig{Size: 4, Workers: 1}, func(_ context.Context, id string) error {
		started <- id
		<-release
		handled = append(handled, id)
		return nil
	}, zap.NewNop())
	p.OnDrain(func(_ context.Context, id string) error {
		drained = append(drained, id)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	require.NoError(t, p.Submit(ctx, "first"))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first job")
	}
	require.NoError(t, p.Submit(ctx, "second"))

	cancel()
	close(release)
	p.Wait()

	assert.Equal(t, []string{"first"}, handled)
	assert.Equal(t, []string{"second"}, drained, "queued job is handed to the drain handler")
	assert.ErrorIs(t, p.Submit(context.Background(), "third"), ErrPoolStopped)
}

func TestPool_RunsQueuedJobsWithoutDrainHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan string, 2)
	p := NewPool(config.QueueConfig{Size: 2, Workers: 1}, func(_ context.Context, id string) error {
		done <- id
		return nil
	}, zap.NewNop())
	require.NoError(t, p.Submit(context.Background(), "r1"))
	require.NoError(t, p.Submit(context.Background(), "r2"))

	p.Start(ctx)
	p.Wait()

	close(done)
	var got []string
	for id := range done {
		got = append(got, id)
	}
	assert.Equal(t, []string{"r1", "r2"}, got)
	assert.ErrorIs(t, p.Submit(context.Background(), "r3"), ErrPoolStopped)
}

func TestRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	done := make(chan string, 2)
	cfg := config.QueueConfig{Workers: 1, RedisKey: "storepulse:test_jobs"}
	q := NewRedisQueue(client, cfg, func(_ context.Context, id string) error {
		done <- id
		return nil
	}, zap.NewNop())
	q.poll = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Submit(ctx, "r1"))
	require.NoError(t, q.Submit(ctx, "r2"))
	list, err := mr.List(cfg.RedisKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, list)

	q.Start(ctx)
	for _, want := range []string{"r1", "r2"} {
		select {
		case id := <-done:
			assert.Equal(t, want, id, "jobs are consumed in submission order")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for job")
		}
	}

	cancel()
	q.Wait()
}

func TestRedisQueue_SubmitError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	q := NewRedisQueue(client, config.QueueConfig{RedisKey: "k"}, nil, zap.NewNop())

	mr.Close()
	assert.Error(t, q.Submit(context.Background(), "r1"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), config.QueueConfig{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	client.Close()
}
