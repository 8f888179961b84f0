package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/AbogiC/kostum-resonanz/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BookingCounter reports how many bookings sit in each status.
type BookingCounter interface {
	CountByStatus(ctx context.Context) (map[models.BookingStatus]int, error)
}

// Digest periodically records how many bookings are waiting for review.
type Digest struct {
	cron     *cron.Cron
	bookings BookingCounter
	events   services.EventServiceProvider
	timeout  time.Duration
}

// NewDigest creates a Digest that runs on the standard five-field cron spec.
func NewDigest(spec string, bookings BookingCounter, events services.EventServiceProvider) (*Digest, error) {
	d := &Digest{
		cron:     cron.New(),
		bookings: bookings,
		events:   events,
		timeout:  30 * time.Second,
	}
	if _, err := d.cron.AddFunc(spec, d.run); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	return d, nil
}

// Start runs the schedule in the background.
func (d *Digest) Start() {
	log.Info().Msg("Starting pending booking digest")
	d.cron.Start()
}

// Stop halts the schedule and waits for a running digest to finish or ctx to end.
func (d *Digest) Stop(ctx context.Context) {
	log.Info().Msg("Stopping pending booking digest")
	select {
	case <-d.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (d *Digest) run() {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if _, err := d.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Pending booking digest failed")
	}
}

// RunOnce counts pending bookings, records a digest event and returns the count.
func (d *Digest) RunOnce(ctx context.Context) (int, error) {
	counts, err := d.bookings.CountByStatus(ctx)
	if err != nil {
		return 0, err
	}
	pending := counts[models.BookingPending]

	level := zerolog.InfoLevel
	if pending > 0 {
		level = zerolog.WarnLevel
	}
	msg := fmt.Sprintf("%d booking(s) awaiting review", pending)
	log.WithLevel(level).Int("pending", pending).Msg("Pending booking digest")

	if err := d.events.CreateEvent(ctx, models.Event{
		Type:    services.EventBookingDigest,
		Level:   level.String(),
		Message: msg,
	}); err != nil {
		return pending, fmt.Errorf("record digest: %w", err)
	}
	return pending, nil
}
