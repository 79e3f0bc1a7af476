package clicks

import (
	"LinkLoom-Backend/internal/domain"
	"LinkLoom-Backend/internal/repository/memory"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		Workers:         2,
		QueueSize:       64,
		RetryAttempts:   2,
		RetryDelay:      time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
	}
}

func seedLink(t *testing.T, storage *memory.Storage) *domain.Link {
	t.Helper()
	link := &domain.Link{OriginalURL: "https://example.com"}
	link.SetCode(domain.SystemCode("abc123"))
	require.NoError(t, storage.InsertLink(context.Background(), link))
	return link
}

func TestAccountant_CounterAndEvent(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	a := NewAccountant(storage, zap.NewNop(), testConfig())
	require.NoError(t, a.Start())

	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X)"
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Submit(&Click{
			LinkID:     link.ID,
			UserAgent:  &ua,
			OccurredAt: time.Now(),
		}))
	}

	require.NoError(t, a.Stop())

	stored, err := storage.FindByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.ClickCount)
	assert.Equal(t, 5, storage.ClickEventCount(link.ID))
}

func TestAccountant_CounterIncrementRetried(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	flaky := &flakyStorage{Storage: storage, failures: 1}
	a := NewAccountant(flaky, zap.NewNop(), testConfig())
	require.NoError(t, a.Start())

	require.NoError(t, a.Submit(&Click{LinkID: link.ID, OccurredAt: time.Now()}))
	require.NoError(t, a.Stop())

	stored, err := storage.FindByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ClickCount, "increment must survive a transient failure")
}

func TestAccountant_EventFailureDoesNotBlockCounter(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	broken := &eventlessStorage{Storage: storage}
	a := NewAccountant(broken, zap.NewNop(), testConfig())
	require.NoError(t, a.Start())

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Submit(&Click{LinkID: link.ID, OccurredAt: time.Now()}))
	}
	require.NoError(t, a.Stop())

	stored, err := storage.FindByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.ClickCount)
	assert.Equal(t, 0, storage.ClickEventCount(link.ID))
}

func TestAccountant_StopDrainsQueuedClicks(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	slow := &slowStorage{Storage: storage, delay: 10 * time.Millisecond}
	a := NewAccountant(slow, zap.NewNop(), testConfig())
	require.NoError(t, a.Start())

	for i := 0; i < 20; i++ {
		require.NoError(t, a.Submit(&Click{LinkID: link.ID, OccurredAt: time.Now()}))
	}
	require.NoError(t, a.Stop())

	stored, err := storage.FindByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stored.ClickCount, "clicks accepted before Stop must all be accounted")
	assert.Equal(t, 20, storage.ClickEventCount(link.ID))
}

func TestAccountant_SubmitAfterStop(t *testing.T) {
	storage := memory.New()
	link := seedLink(t, storage)

	a := NewAccountant(storage, zap.NewNop(), testConfig())
	require.NoError(t, a.Start())
	require.NoError(t, a.Stop())

	err := a.Submit(&Click{LinkID: link.ID, OccurredAt: time.Now()})
	assert.Error(t, err)
}

func TestAccountant_SubmitBeforeStart(t *testing.T) {
	a := NewAccountant(memory.New(), zap.NewNop(), testConfig())
	assert.Error(t, a.Submit(&Click{LinkID: 1, OccurredAt: time.Now()}))
}

func TestAccountant_QueueStats(t *testing.T) {
	a := NewAccountant(memory.New(), zap.NewNop(), testConfig())
	require.NoError(t, a.Start())
	defer func() { _ = a.Stop() }()

	stats := a.QueueStats()
	assert.Equal(t, true, stats["started"])
	assert.Equal(t, 64, stats["queue_capacity"])
	assert.Equal(t, 2, stats["worker_count"])
}

func TestBuildEvent_DeviceClassification(t *testing.T) {
	a := NewAccountant(memory.New(), zap.NewNop(), testConfig())

	t.Run("nil_user_agent", func(t *testing.T) {
		event := a.buildEvent(&Click{LinkID: 1, OccurredAt: time.Now()})
		require.NotNil(t, event.DeviceType)
		assert.Equal(t, "unknown", *event.DeviceType)
	})

	t.Run("fallback_mobile", func(t *testing.T) {
		ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X)"
		event := a.buildEvent(&Click{LinkID: 1, UserAgent: &ua, OccurredAt: time.Now()})
		require.NotNil(t, event.DeviceType)
		assert.Equal(t, "mobile", *event.DeviceType)
	})

	t.Run("fallback_bot", func(t *testing.T) {
		ua := "Googlebot/2.1 (+http://www.google.com/bot.html)"
		event := a.buildEvent(&Click{LinkID: 1, UserAgent: &ua, OccurredAt: time.Now()})
		require.NotNil(t, event.DeviceType)
		assert.Equal(t, "bot", *event.DeviceType)
	})
}

// flakyStorage fails the first N counter increments.
type flakyStorage struct {
	*memory.Storage
	failures int
}

func (s *flakyStorage) IncrementClickCount(ctx context.Context, id int64) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("transient storage error")
	}
	return s.Storage.IncrementClickCount(ctx, id)
}

// slowStorage delays every counter increment so Stop races against a backlog.
type slowStorage struct {
	*memory.Storage
	delay time.Duration
}

func (s *slowStorage) IncrementClickCount(ctx context.Context, id int64) error {
	time.Sleep(s.delay)
	return s.Storage.IncrementClickCount(ctx, id)
}

// eventlessStorage rejects every event append but increments normally.
type eventlessStorage struct {
	*memory.Storage
}

func (s *eventlessStorage) CreateClickEvent(_ context.Context, _ *domain.ClickEvent) error {
	return errors.New("event table unavailable")
}
