package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/internal/repository"
)

func intPtr(v int) *int {
	return &v
}

// newAdmissionService builds a service over fresh in-memory repositories and
// seeds the given event
func newAdmissionService(t *testing.T, event *domain.Event, cfg *AdmissionServiceConfig) AdmissionService {
	t.Helper()
	events := repository.NewMemoryEventRepository()
	require.NoError(t, events.Create(context.Background(), event))
	return NewAdmissionService(
		events,
		repository.NewMemoryAttendeeRepository(),
		repository.NewMemoryWaitlistRepository(),
		nil,
		cfg,
	)
}

func limitedEvent(id string, capacity int, waitlistEnabled bool) *domain.Event {
	return &domain.Event{
		ID:              id,
		Title:           "Go Meetup",
		StartsAt:        time.Now().Add(48 * time.Hour),
		CreatedBy:       "organizer-1",
		MaxCapacity:     intPtr(capacity),
		WaitlistEnabled: waitlistEnabled,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func user(id string) domain.Registrant {
	return domain.Registrant{UserID: id}
}

func TestRequestJoin_GrantsSeatBelowCapacity(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 2, true), nil)

	resp, err := svc.RequestJoin(context.Background(), "event-1", user("user-1"), domain.RSVPStatusYes, nil)

	require.NoError(t, err)
	assert.True(t, resp.Granted)
	require.NotNil(t, resp.Attendee)
	assert.Equal(t, "yes", resp.Attendee.Status)
	assert.Nil(t, resp.WaitlistEntry)
}

func TestRequestJoin_QueuesAtCapacity(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	resp, err := svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)

	require.NoError(t, err)
	assert.False(t, resp.Granted)
	require.NotNil(t, resp.WaitlistEntry)
	assert.Equal(t, 1, resp.Position)
	assert.Equal(t, "waiting", resp.WaitlistEntry.Status)

	// Next registrant queues behind
	resp, err = svc.RequestJoin(ctx, "event-1", user("user-3"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Position)
}

func TestRequestJoin_WaitlistDisabledAtCapacity(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, false), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)

	assert.ErrorIs(t, err, domain.ErrWaitlistDisabled)
}

func TestRequestJoin_DuplicateWaitlistEntry(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)

	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
}

func TestRequestJoin_GuestDedupIsEmailCaseInsensitive(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	guest := domain.Registrant{GuestName: "Ada", GuestEmail: "Ada@Example.com"}
	_, err = svc.RequestJoin(ctx, "event-1", guest, domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	same := domain.Registrant{GuestName: "Ada", GuestEmail: "ada@example.com"}
	_, err = svc.RequestJoin(ctx, "event-1", same, domain.RSVPStatusYes, nil)

	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
}

func TestRequestJoin_ReaffirmingYesKeepsSingleSeat(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	resp, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)

	require.NoError(t, err)
	assert.True(t, resp.Granted)

	capacity, err := svc.Capacity(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 1, capacity.CurrentAttendees)
	assert.True(t, capacity.IsAtCapacity)
}

func TestRequestJoin_NonYesNeverGatesOnCapacity(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	resp, err := svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusMaybe, nil)

	require.NoError(t, err)
	assert.True(t, resp.Granted)
	assert.Equal(t, "maybe", resp.Attendee.Status)

	capacity, err := svc.Capacity(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 1, capacity.CurrentAttendees)
}

func TestRequestJoin_UnlimitedEventAlwaysGrants(t *testing.T) {
	event := &domain.Event{
		ID:        "event-1",
		Title:     "Open House",
		StartsAt:  time.Now().Add(24 * time.Hour),
		CreatedBy: "organizer-1",
	}
	svc := newAdmissionService(t, event, nil)
	ctx := context.Background()

	for _, id := range []string{"user-1", "user-2", "user-3"} {
		resp, err := svc.RequestJoin(ctx, "event-1", user(id), domain.RSVPStatusYes, nil)
		require.NoError(t, err)
		assert.True(t, resp.Granted)
	}

	capacity, err := svc.Capacity(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 3, capacity.CurrentAttendees)
	assert.Nil(t, capacity.MaxCapacity)
	assert.Nil(t, capacity.AvailableSpots)
	assert.False(t, capacity.IsAtCapacity)
}

func TestRequestJoin_DroppingYesPromotesNextWaiting(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	// Seat holder changes their answer to no
	resp, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusNo, nil)
	require.NoError(t, err)
	assert.Equal(t, "no", resp.Attendee.Status)

	// Default policy notifies rather than granting outright
	waitlist, err := svc.ListWaitlist(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, waitlist.Entries, 1)
	assert.Equal(t, "notified", waitlist.Entries[0].Status)
	assert.NotNil(t, waitlist.Entries[0].NotifiedAt)
}

func TestRequestJoin_FormAnswersValidated(t *testing.T) {
	event := limitedEvent("event-1", 10, true)
	event.FormFields = []domain.FormField{
		{ID: "name", Type: domain.FieldTypeText, Label: "Name", Required: true, Order: 1},
	}
	svc := newAdmissionService(t, event, nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, map[string]any{})

	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	resp, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.True(t, resp.Granted)
}

func TestRequestJoin_InvalidInputs(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "", user("user-1"), domain.RSVPStatusYes, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidEventID)

	_, err = svc.RequestJoin(ctx, "event-1", domain.Registrant{}, domain.RSVPStatusYes, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRegistrant)

	_, err = svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatus("perhaps"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.RequestJoin(ctx, "missing", user("user-1"), domain.RSVPStatusYes, nil)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestRequestJoin_ConcurrentContenders(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	const contenders = 10
	var wg sync.WaitGroup
	granted := make(chan string, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			resp, err := svc.RequestJoin(ctx, "event-1", user("user-"+id), domain.RSVPStatusYes, nil)
			if err == nil && resp.Granted {
				granted <- "user-" + id
			}
		}(i)
	}
	wg.Wait()
	close(granted)

	winners := 0
	for range granted {
		winners++
	}
	assert.Equal(t, 1, winners)

	capacity, err := svc.Capacity(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 1, capacity.CurrentAttendees)
	assert.Equal(t, contenders-1, capacity.WaitlistCount)

	// Live positions are dense starting at 1
	waitlist, err := svc.ListWaitlist(ctx, "event-1")
	require.NoError(t, err)
	for i, entry := range waitlist.Entries {
		assert.Equal(t, i+1, entry.Position)
	}
}

func TestCancelAttendance_FreesSeatAndPromotes(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	record, err := svc.CancelAttendance(ctx, "event-1", user("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "no", record.Status)

	waitlist, err := svc.ListWaitlist(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, waitlist.Entries, 1)
	assert.Equal(t, "notified", waitlist.Entries[0].Status)
}

func TestCancelAttendance_UnknownRegistrant(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)

	_, err := svc.CancelAttendance(context.Background(), "event-1", user("nobody"))

	assert.ErrorIs(t, err, domain.ErrAttendeeNotFound)
}

func TestConvert_NotifiedEntryTakesSeat(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	queued, err := svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	_, err = svc.CancelAttendance(ctx, "event-1", user("user-1"))
	require.NoError(t, err)

	record, err := svc.Convert(ctx, queued.WaitlistEntry.ID, domain.RSVPStatusYes)

	require.NoError(t, err)
	assert.Equal(t, "yes", record.Status)
	assert.Equal(t, "user-2", record.Registrant.UserID)

	// The converted entry leaves the live queue
	waitlist, err := svc.ListWaitlist(ctx, "event-1")
	require.NoError(t, err)
	assert.Empty(t, waitlist.Entries)
}

func TestConvert_AtCapacityRechecked(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	queued, err := svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	// The seat never freed, so a yes conversion must fail
	_, err = svc.Convert(ctx, queued.WaitlistEntry.ID, domain.RSVPStatusYes)
	assert.ErrorIs(t, err, domain.ErrAtCapacity)

	// Declining never needs a seat
	record, err := svc.Convert(ctx, queued.WaitlistEntry.ID, domain.RSVPStatusNo)
	require.NoError(t, err)
	assert.Equal(t, "no", record.Status)
}

func TestConvert_TerminalEntryRejected(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	queued, err := svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	_, err = svc.Convert(ctx, queued.WaitlistEntry.ID, domain.RSVPStatusNo)
	require.NoError(t, err)

	_, err = svc.Convert(ctx, queued.WaitlistEntry.ID, domain.RSVPStatusYes)
	assert.ErrorIs(t, err, domain.ErrEntryNotLive)
}

func TestPromoteNext_NoSeatFreeIsNoOp(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	promoted, err := svc.PromoteNext(ctx, "event-1")

	require.NoError(t, err)
	assert.Nil(t, promoted)
}

func TestPromoteNext_NeverRepromotesNotified(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 2, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-3"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	_, err = svc.CancelAttendance(ctx, "event-1", user("user-1"))
	require.NoError(t, err)

	// user-3 is now notified; a second promote finds no waiting entry
	promoted, err := svc.PromoteNext(ctx, "event-1")
	require.NoError(t, err)
	assert.Nil(t, promoted)
}

func TestPromoteNext_AutoConvertPolicy(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), &AdmissionServiceConfig{
		PromotionPolicy: PromotionPolicyAutoConvert,
	})
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	_, err = svc.CancelAttendance(ctx, "event-1", user("user-1"))
	require.NoError(t, err)

	// The freed seat went directly to user-2
	capacity, err := svc.Capacity(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 1, capacity.CurrentAttendees)
	assert.Equal(t, 0, capacity.WaitlistCount)

	position, err := svc.Position(ctx, "event-1", user("user-2"))
	require.NoError(t, err)
	assert.False(t, position.Queued)
}

func TestRemoveFromWaitlist_ClosesGapWithoutPromotion(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	second, err := svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-3"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveFromWaitlist(ctx, second.WaitlistEntry.ID))

	waitlist, err := svc.ListWaitlist(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, waitlist.Entries, 1)
	assert.Equal(t, "user-3", waitlist.Entries[0].Registrant.UserID)
	assert.Equal(t, 1, waitlist.Entries[0].Position)
	assert.Equal(t, "waiting", waitlist.Entries[0].Status)

	err = svc.RemoveFromWaitlist(ctx, second.WaitlistEntry.ID)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestPosition_ReportsLiveQueueSlot(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	position, err := svc.Position(ctx, "event-1", user("user-2"))
	require.NoError(t, err)
	assert.True(t, position.Queued)
	assert.Equal(t, 2, position.Position)

	position, err = svc.Position(ctx, "event-1", user("user-1"))
	require.NoError(t, err)
	assert.False(t, position.Queued)
}

func TestSetEntryStatus_EnforcesStateMachine(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	queued, err := svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	entry, err := svc.SetEntryStatus(ctx, queued.WaitlistEntry.ID, domain.WaitlistStatusNotified)
	require.NoError(t, err)
	assert.Equal(t, "notified", entry.Status)
	assert.NotNil(t, entry.NotifiedAt)

	// notified -> waiting is not a legal transition
	_, err = svc.SetEntryStatus(ctx, queued.WaitlistEntry.ID, domain.WaitlistStatusWaiting)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.SetEntryStatus(ctx, queued.WaitlistEntry.ID, domain.WaitlistStatus("paused"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestExpireOverdueNotifications_ExpiresAndPromotes(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), &AdmissionServiceConfig{
		NotifyResponseWindow: time.Millisecond,
	})
	ctx := context.Background()

	_, err := svc.RequestJoin(ctx, "event-1", user("user-1"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-2"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)
	_, err = svc.RequestJoin(ctx, "event-1", user("user-3"), domain.RSVPStatusYes, nil)
	require.NoError(t, err)

	// Free the seat so user-2 gets notified
	_, err = svc.CancelAttendance(ctx, "event-1", user("user-1"))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	expired, err := svc.ExpireOverdueNotifications(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	// The expiry re-promoted, so user-3 is now the notified head at position 1
	waitlist, err := svc.ListWaitlist(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, waitlist.Entries, 1)
	assert.Equal(t, "user-3", waitlist.Entries[0].Registrant.UserID)
	assert.Equal(t, "notified", waitlist.Entries[0].Status)
	assert.Equal(t, 1, waitlist.Entries[0].Position)
}

func TestExpireOverdueNotifications_NothingOverdue(t *testing.T) {
	svc := newAdmissionService(t, limitedEvent("event-1", 1, true), nil)

	expired, err := svc.ExpireOverdueNotifications(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}
