package services

import (
	"context"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"
	"clinic-scheduler-backend/internal/infra/cache"
	"clinic-scheduler-backend/pkg/timeutil"

	"github.com/sirupsen/logrus"
)

// revealLockTTL bounds how long one replica's claim on a clinic's reveal
// tick lasts before another replica may pick it up, in case the holder
// crashes mid-tick.
const revealLockTTL = 30 * time.Second

// RevealScheduler promotes hidden auto-assigned appointments to visible
// once the clinic's reveal boundary has passed, per spec §4.5. Grounded on
// the teacher's cmd/api/main.go graceful-shutdown goroutine pattern: a
// ticker loop started from main and stopped via context cancellation.
type RevealScheduler struct {
	clinics      repositories.ClinicRepository
	appointments repositories.AppointmentRepository
	notify       func(ctx context.Context, intents []NotificationIntent)
	log          *logrus.Logger
	interval     time.Duration
	cache        *cache.Cache
}

func NewRevealScheduler(
	clinics repositories.ClinicRepository,
	appointments repositories.AppointmentRepository,
	notify func(ctx context.Context, intents []NotificationIntent),
	log *logrus.Logger,
	interval time.Duration,
	c *cache.Cache,
) *RevealScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RevealScheduler{clinics: clinics, appointments: appointments, notify: notify, log: log, interval: interval, cache: c}
}

// Run blocks, ticking at the configured interval until ctx is cancelled.
func (s *RevealScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				s.log.WithError(err).Error("reveal scheduler tick failed")
			}
		}
	}
}

// tick processes every active clinic once.
func (s *RevealScheduler) tick(ctx context.Context) error {
	clinics, err := s.clinics.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, clinic := range clinics {
		if !clinic.IsActive {
			continue
		}
		lockKey := "reveal:lock:" + clinic.ID.String()
		if !s.cache.TryLock(ctx, lockKey, revealLockTTL) {
			// Another replica already claimed this clinic's tick.
			continue
		}
		if err := s.revealDue(ctx, clinic); err != nil {
			s.log.WithError(err).WithField("clinic_id", clinic.ID).Error("reveal scheduler failed for clinic")
		}
	}
	return nil
}

const revealBatchSize = 200

func (s *RevealScheduler) revealDue(ctx context.Context, clinic *entities.Clinic) error {
	now := time.Now().In(timeutil.ClinicLocation)
	settings := clinic.Settings.BookingRestrictionSettings
	settings.Migrate()

	candidates, err := s.appointments.GetPendingReveal(ctx, clinic.ID, settings, now, revealBatchSize)
	if err != nil {
		return err
	}

	var intents []NotificationIntent
	for _, appt := range candidates {
		revealed, err := s.appointments.MarkRevealed(ctx, appt.ID)
		if err != nil {
			s.log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to mark appointment revealed")
			continue
		}
		if !revealed {
			// Lost the race to a concurrent tick or an admin edit; no
			// notification, per the idempotency rule.
			continue
		}
		intents = append(intents, NewNotificationEngine().DecideForReveal(appt.ID)...)
	}
	if len(intents) > 0 && s.notify != nil {
		s.notify(ctx, intents)
	}
	return nil
}

// RevealBoundaryPassed applies the same lead-time formula GetPendingReveal
// runs in SQL, so a caller holding a single freshly created appointment can
// decide whether its reveal boundary has already passed without waiting
// for the next tick.
func RevealBoundaryPassed(settings entities.BookingRestrictionSettings, apptStart, now time.Time) bool {
	switch settings.BookingRestrictionType {
	case entities.BookingRestrictionDeadlineDayBefore:
		deadline, err := time.Parse("15:04", settings.DeadlineTimeDayBefore)
		if err != nil {
			return false
		}
		loc := apptStart.Location()
		y, m, d := apptStart.Date()
		boundary := time.Date(y, m, d, deadline.Hour(), deadline.Minute(), 0, 0, loc).AddDate(0, 0, -1)
		return !now.Before(boundary)
	default:
		boundary := apptStart.Add(-time.Duration(settings.MinimumBookingHoursAhead) * time.Hour)
		return !now.Before(boundary)
	}
}
