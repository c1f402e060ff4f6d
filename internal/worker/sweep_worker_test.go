package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/internal/repository"
	"github.com/gatherly/rsvp-admission/internal/service"
)

func intPtr(v int) *int {
	return &v
}

// newSweepFixture seeds a capacity-one event with a seat holder and two
// queued registrants, then frees the seat so the head entry is notified
func newSweepFixture(t *testing.T, window time.Duration) service.AdmissionService {
	t.Helper()
	ctx := context.Background()

	events := repository.NewMemoryEventRepository()
	require.NoError(t, events.Create(ctx, &domain.Event{
		ID:              "event-1",
		Title:           "Capacity One",
		StartsAt:        time.Now().Add(24 * time.Hour),
		CreatedBy:       "organizer-1",
		MaxCapacity:     intPtr(1),
		WaitlistEnabled: true,
	}))

	svc := service.NewAdmissionService(
		events,
		repository.NewMemoryAttendeeRepository(),
		repository.NewMemoryWaitlistRepository(),
		nil,
		&service.AdmissionServiceConfig{NotifyResponseWindow: window},
	)

	_, err := svc.RequestJoin(ctx, "event-1", domain.Registrant{UserID: "user-1"}, domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", domain.Registrant{UserID: "user-2"}, domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", domain.Registrant{UserID: "user-3"}, domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.CancelAttendance(ctx, "event-1", domain.Registrant{UserID: "user-1"})
	require.NoError(t, err)

	return svc
}

func TestSweepWorker_ExpiresOverdueEntries(t *testing.T) {
	svc := newSweepFixture(t, time.Millisecond)

	worker := NewSweepWorker(svc, &SweepWorkerConfig{
		ScanInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, worker.Start(context.Background()))
	defer worker.Stop()

	require.Eventually(t, func() bool {
		return worker.GetStats().TotalExpired >= 1
	}, time.Second, 10*time.Millisecond)

	stats := worker.GetStats()
	assert.True(t, stats.IsRunning)
	assert.False(t, stats.LastScanTime.IsZero())
}

func TestSweepWorker_StartTwiceFails(t *testing.T) {
	svc := newSweepFixture(t, time.Hour)

	worker := NewSweepWorker(svc, &SweepWorkerConfig{ScanInterval: time.Minute})

	require.NoError(t, worker.Start(context.Background()))
	defer worker.Stop()

	assert.Error(t, worker.Start(context.Background()))
}

func TestSweepWorker_StopIsIdempotent(t *testing.T) {
	svc := newSweepFixture(t, time.Hour)

	worker := NewSweepWorker(svc, &SweepWorkerConfig{ScanInterval: time.Minute})
	require.NoError(t, worker.Start(context.Background()))

	worker.Stop()
	worker.Stop()

	assert.False(t, worker.GetStats().IsRunning)
}

func TestSweepWorker_LongWindowExpiresNothing(t *testing.T) {
	svc := newSweepFixture(t, time.Hour)

	worker := NewSweepWorker(svc, &SweepWorkerConfig{
		ScanInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})
	require.NoError(t, worker.Start(context.Background()))
	defer worker.Stop()

	require.Eventually(t, func() bool {
		return !worker.GetStats().LastScanTime.IsZero()
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(0), worker.GetStats().TotalExpired)
}
