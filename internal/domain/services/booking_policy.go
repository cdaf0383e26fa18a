package services

import (
	"time"

	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/pkg/timeutil"
)

// BookingPolicyEvaluator gates patient-initiated mutations against a
// clinic's booking_restriction_settings. Staff actions never call it. Built
// fresh against original_source/.../clinic.py's BookingRestrictionSettings
// and spec §4.2 — the teacher repo has no equivalent restriction layer.
type BookingPolicyEvaluator struct{}

func NewBookingPolicyEvaluator() *BookingPolicyEvaluator {
	return &BookingPolicyEvaluator{}
}

// EvaluateCreateInput carries everything rule 1-5,7,8 need for a new
// booking.
type EvaluateCreateInput struct {
	Settings              entities.BookingRestrictionSettings
	Now                   time.Time
	StartTime             time.Time
	AppointmentType       *entities.AppointmentType
	PatientSelectedAuto   bool
	PriorConfirmedCount   int
	ActiveAppointmentCount int
}

// EvaluateCreate runs rules 1, 3, 4, 5, 7, 8 and returns the first failure.
func (e *BookingPolicyEvaluator) EvaluateCreate(in EvaluateCreateInput) error {
	settings := in.Settings
	settings.Migrate()

	if err := checkLeadTime(settings, in.Now, in.StartTime); err != nil {
		return err
	}
	if err := checkBookingWindow(settings, in.Now, in.StartTime); err != nil {
		return err
	}
	if in.ActiveAppointmentCount >= settings.MaxFutureAppointments {
		return domainerr.New(domainerr.KindPolicyActiveCap, "已達最大可預約數量上限")
	}
	if err := checkStepGranularity(settings, in.StartTime); err != nil {
		return err
	}
	if in.AppointmentType != nil && !in.AppointmentType.AllowsPatient(in.PriorConfirmedCount > 0) {
		return domainerr.New(domainerr.KindPolicyServiceUnavailable, "此服務項目目前不開放預約")
	}
	if in.AppointmentType != nil && !in.AppointmentType.AllowPatientPractitionerSelect && !in.PatientSelectedAuto {
		return domainerr.New(domainerr.KindPolicyPractitionerSelectionNotAllowed, "此服務項目不開放指定服務人員")
	}
	return nil
}

// EvaluateEditInput mirrors EvaluateCreateInput for the edit path; the
// active-cap rule is intentionally omitted (editing does not count twice).
type EvaluateEditInput struct {
	Settings        entities.BookingRestrictionSettings
	Now             time.Time
	NewStartTime    time.Time
	AppointmentType *entities.AppointmentType
}

// EvaluateEdit runs rules 1 and 5 (lead time / deadline and step
// granularity) against the new time.
func (e *BookingPolicyEvaluator) EvaluateEdit(in EvaluateEditInput) error {
	settings := in.Settings
	settings.Migrate()
	if err := checkLeadTime(settings, in.Now, in.NewStartTime); err != nil {
		return err
	}
	if err := checkStepGranularity(settings, in.NewStartTime); err != nil {
		return err
	}
	return nil
}

// EvaluateCancel runs rule 2 (cancellation window) and rule 6 (patient
// deletion toggle).
func (e *BookingPolicyEvaluator) EvaluateCancel(settings entities.BookingRestrictionSettings, now, startTime time.Time) error {
	settings.Migrate()
	if !settings.AllowPatientDeletion {
		return domainerr.New(domainerr.KindPolicyServiceUnavailable, "此診所不開放病患自行取消預約")
	}
	if startTime.Sub(now) < time.Duration(settings.MinimumCancellationHoursBefore)*time.Hour {
		return domainerr.New(domainerr.KindPolicyCancelWindow, "已超過可取消預約的時間")
	}
	return nil
}

func checkLeadTime(settings entities.BookingRestrictionSettings, now, startTime time.Time) error {
	switch settings.BookingRestrictionType {
	case entities.BookingRestrictionDeadlineDayBefore:
		deadline := DeadlineFor(settings, startTime)
		if now.After(deadline) {
			return domainerr.New(domainerr.KindPolicyLeadTime, "已超過預約截止時間")
		}
	default: // minimum_hours_required, and anything pre-migration defaults here too
		if startTime.Sub(now) < time.Duration(settings.MinimumBookingHoursAhead)*time.Hour {
			return domainerr.New(domainerr.KindPolicyLeadTime, "預約時間須提前一定時數以上")
		}
	}
	return nil
}

// DeadlineFor computes the deadline instant for an appointment starting at
// startTime: deadline_time_day_before on date D, where D is the appointment
// date itself if deadline_on_same_day, else the day before. Shared with the
// reveal scheduler, which applies the same formula in reverse.
func DeadlineFor(settings entities.BookingRestrictionSettings, startTime time.Time) time.Time {
	d := timeutil.StartOfDay(startTime)
	if !settings.DeadlineOnSameDay {
		d = d.AddDate(0, 0, -1)
	}
	t, err := time.Parse("15:04", settings.DeadlineTimeDayBefore)
	if err != nil {
		t, _ = time.Parse("15:04", "08:00")
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour(), t.Minute(), 0, 0, timeutil.ClinicLocation)
}

func checkBookingWindow(settings entities.BookingRestrictionSettings, now, startTime time.Time) error {
	daysAhead := int(timeutil.StartOfDay(startTime).Sub(timeutil.StartOfDay(now)).Hours() / 24)
	if daysAhead > settings.MaxBookingWindowDays {
		return domainerr.New(domainerr.KindPolicyBookingWindow, "預約日期超出可預約範圍")
	}
	return nil
}

func checkStepGranularity(settings entities.BookingRestrictionSettings, startTime time.Time) error {
	if settings.StepSizeMinutes <= 0 {
		return nil
	}
	minute := startTime.In(timeutil.ClinicLocation).Minute()
	if minute%settings.StepSizeMinutes != 0 {
		return domainerr.New(domainerr.KindPolicyStepGranularity, "預約時間須符合診所的預約時間間隔")
	}
	return nil
}
