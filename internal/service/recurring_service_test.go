package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/internal/dto"
	"github.com/gatherly/rsvp-admission/internal/repository"
)

func newRecurringService(cfg *RecurringServiceConfig) (RecurringService, *repository.MemoryEventRepository) {
	events := repository.NewMemoryEventRepository()
	return NewRecurringService(events, cfg), events
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestCreateSeries_WeeklyInstances(t *testing.T) {
	svc, _ := newRecurringService(nil)

	start := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)
	series, err := svc.CreateSeries(context.Background(), "organizer-1", &dto.CreateSeriesRequest{
		Title:          "Go Study Group",
		StartDate:      start,
		EndDate:        timePtr(start.AddDate(0, 0, 28)),
		RecurrenceType: "weekly",
	})

	require.NoError(t, err)
	require.NotNil(t, series.Series)
	assert.Equal(t, start, series.Series.StartsAt)
	assert.Equal(t, "weekly", series.Series.RecurrenceType)
	assert.Nil(t, series.Series.ParentEventID)

	// Four weekly occurrences follow the root within the 28-day window
	require.Len(t, series.Instances, 4)
	for i, instance := range series.Instances {
		assert.Equal(t, start.AddDate(0, 0, 7*(i+1)), instance.StartsAt)
		require.NotNil(t, instance.ParentEventID)
		assert.Equal(t, series.Series.ID, *instance.ParentEventID)
	}
}

func TestCreateSeries_MonthlyUsesCalendarArithmetic(t *testing.T) {
	svc, _ := newRecurringService(nil)

	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	series, err := svc.CreateSeries(context.Background(), "organizer-1", &dto.CreateSeriesRequest{
		Title:          "Monthly Review",
		StartDate:      start,
		EndDate:        timePtr(start.AddDate(0, 3, 0)),
		RecurrenceType: "monthly",
	})

	require.NoError(t, err)
	require.Len(t, series.Instances, 3)
	assert.Equal(t, time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC), series.Instances[0].StartsAt)
	assert.Equal(t, time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC), series.Instances[2].StartsAt)
}

func TestCreateSeries_InstanceCapApplies(t *testing.T) {
	svc, _ := newRecurringService(&RecurringServiceConfig{MaxInstances: 5})

	start := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)
	series, err := svc.CreateSeries(context.Background(), "organizer-1", &dto.CreateSeriesRequest{
		Title:          "Weekly Standup",
		StartDate:      start,
		EndDate:        timePtr(start.AddDate(1, 0, 0)),
		RecurrenceType: "weekly",
	})

	require.NoError(t, err)
	// Root plus four children hit the cap of five
	assert.Len(t, series.Instances, 4)
}

func TestCreateSeries_RejectsInvalidInput(t *testing.T) {
	svc, _ := newRecurringService(nil)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	_, err := svc.CreateSeries(ctx, "organizer-1", &dto.CreateSeriesRequest{
		Title:          "Bad",
		StartDate:      start,
		RecurrenceType: "daily",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRecurrence)

	_, err = svc.CreateSeries(ctx, "organizer-1", &dto.CreateSeriesRequest{
		Title:          "Bad",
		StartDate:      start,
		EndDate:        timePtr(start.Add(-time.Hour)),
		RecurrenceType: "weekly",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRecurrence)
}

func TestListSeries_ReturnsCreatorRootsWithInstances(t *testing.T) {
	svc, _ := newRecurringService(nil)
	ctx := context.Background()
	start := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)

	created, err := svc.CreateSeries(ctx, "organizer-1", &dto.CreateSeriesRequest{
		Title:          "Go Study Group",
		StartDate:      start,
		EndDate:        timePtr(start.AddDate(0, 0, 14)),
		RecurrenceType: "weekly",
	})
	require.NoError(t, err)

	_, err = svc.CreateSeries(ctx, "organizer-2", &dto.CreateSeriesRequest{
		Title:          "Someone Else's Series",
		StartDate:      start,
		EndDate:        timePtr(start.AddDate(0, 0, 14)),
		RecurrenceType: "weekly",
	})
	require.NoError(t, err)

	list, err := svc.ListSeries(ctx, "organizer-1")

	require.NoError(t, err)
	require.Len(t, list.Series, 1)
	assert.Equal(t, created.Series.ID, list.Series[0].Series.ID)
	assert.Len(t, list.Series[0].Instances, 2)
}

func TestDeleteSeries_RemovesRootAndInstances(t *testing.T) {
	svc, events := newRecurringService(nil)
	ctx := context.Background()
	start := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)

	created, err := svc.CreateSeries(ctx, "organizer-1", &dto.CreateSeriesRequest{
		Title:          "Go Study Group",
		StartDate:      start,
		EndDate:        timePtr(start.AddDate(0, 0, 14)),
		RecurrenceType: "weekly",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSeries(ctx, created.Series.ID))

	_, err = events.GetByID(ctx, created.Series.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	for _, instance := range created.Instances {
		_, err = events.GetByID(ctx, instance.ID)
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	}

	err = svc.DeleteSeries(ctx, created.Series.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}
