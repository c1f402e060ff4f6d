package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

var (
	// Admission counters
	SeatsGranted     *telemetry.Counter
	WaitlistJoins    *telemetry.Counter
	Promotions       *telemetry.Counter
	Conversions      *telemetry.Counter
	Expirations      *telemetry.Counter
	WaitlistRemovals *telemetry.Counter

	// Histograms
	TimeToPromotion *telemetry.Histogram

	// Gauges
	WaitlistDepth *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all admission metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	SeatsGranted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "admission_seats_granted_total",
		Description: "Total number of confirmed seats granted",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WaitlistJoins, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "admission_waitlist_joins_total",
		Description: "Total number of waitlist entries created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	Promotions, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "admission_promotions_total",
		Description: "Total number of waitlist entries promoted toward a seat",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	Conversions, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "admission_conversions_total",
		Description: "Total number of waitlist entries converted to attendees",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	Expirations, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "admission_expirations_total",
		Description: "Total number of notified entries expired unanswered",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WaitlistRemovals, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "admission_waitlist_removals_total",
		Description: "Total number of waitlist entries removed by callers",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TimeToPromotion, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "admission_time_to_promotion_seconds",
		Description: "Time spent on the waitlist before promotion",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	WaitlistDepth, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "admission_waitlist_depth",
		Description: "Current number of live waitlist entries",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordSeatGranted records a direct seat grant
func RecordSeatGranted(ctx context.Context, eventID string) {
	if SeatsGranted == nil {
		return
	}
	SeatsGranted.Add(ctx, 1, attribute.String("event_id", eventID))
}

// RecordWaitlistJoin records a new waitlist entry
func RecordWaitlistJoin(ctx context.Context, eventID string) {
	if WaitlistJoins == nil {
		return
	}
	WaitlistJoins.Add(ctx, 1, attribute.String("event_id", eventID))
	if WaitlistDepth != nil {
		WaitlistDepth.Add(ctx, 1, attribute.String("event_id", eventID))
	}
}

// RecordPromotion records a promotion with the entry's queue wait
func RecordPromotion(ctx context.Context, eventID string, waitSeconds float64) {
	if Promotions == nil {
		return
	}
	Promotions.Add(ctx, 1, attribute.String("event_id", eventID))
	if TimeToPromotion != nil {
		TimeToPromotion.Record(ctx, waitSeconds, attribute.String("event_id", eventID))
	}
}

// RecordConversion records a waitlist entry becoming an attendee
func RecordConversion(ctx context.Context, eventID string) {
	if Conversions == nil {
		return
	}
	Conversions.Add(ctx, 1, attribute.String("event_id", eventID))
	if WaitlistDepth != nil {
		WaitlistDepth.Add(ctx, -1, attribute.String("event_id", eventID))
	}
}

// RecordExpiration records notified entries expiring unanswered
func RecordExpiration(ctx context.Context, count int64) {
	if Expirations == nil {
		return
	}
	Expirations.Add(ctx, count)
	if WaitlistDepth != nil {
		WaitlistDepth.Add(ctx, -count)
	}
}

// RecordWaitlistRemoval records a caller-initiated removal
func RecordWaitlistRemoval(ctx context.Context, eventID string) {
	if WaitlistRemovals == nil {
		return
	}
	WaitlistRemovals.Add(ctx, 1, attribute.String("event_id", eventID))
	if WaitlistDepth != nil {
		WaitlistDepth.Add(ctx, -1, attribute.String("event_id", eventID))
	}
}
