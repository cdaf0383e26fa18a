// Package notify is the outbound worker pool that turns
// services.NotificationIntent values into messaging-platform sends after
// the owning transaction has committed. Grounded on the teacher's
// cmd/api/main.go goroutine-plus-channel shutdown pattern, generalized
// into a bounded worker pool per spec §5's "enqueue after commit, never
// block the response, never fail the caller" rule.
package notify

import (
	"context"
	"sync"

	"clinic-scheduler-backend/internal/domain/ports/repositories"
	"clinic-scheduler-backend/internal/domain/services"
	"clinic-scheduler-backend/pkg/timeutil"

	"github.com/sirupsen/logrus"
)

// MessageSender is the out-of-scope messaging-platform client this core
// consumes only through its interface (spec §1's "message-send function").
type MessageSender interface {
	Send(ctx context.Context, recipientExternalID, body string) error
}

// job bundles an intent with the data needed to resolve its recipient and
// render its template, gathered before enqueueing so workers never need to
// re-open the original request's transaction.
type job struct {
	intent       services.NotificationIntent
	placeholders services.TemplatePlaceholders
	recipientExternalID string
	templateBody string
}

// WorkerPool is a bounded pool of goroutines draining a channel of jobs.
type WorkerPool struct {
	jobs   chan job
	wg     sync.WaitGroup
	sender MessageSender
	log    *logrus.Logger
}

// NewWorkerPool starts workerCount goroutines immediately; call Close to
// drain and stop them.
func NewWorkerPool(workerCount int, sender MessageSender, log *logrus.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	p := &WorkerPool{
		jobs:   make(chan job, 256),
		sender: sender,
		log:    log,
	}
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

func (p *WorkerPool) loop() {
	defer p.wg.Done()
	for j := range p.jobs {
		body := services.Render(j.templateBody, j.placeholders)
		if err := p.sender.Send(context.Background(), j.recipientExternalID, body); err != nil {
			// A failed send is logged and dropped; the appointment change
			// it describes already committed and must not be undone.
			p.log.WithError(err).WithField("appointment_id", j.intent.AppointmentID).Error("notification send failed")
		}
	}
}

// EnqueueResolved submits an already-resolved job. Sink implementations
// (the Enqueue method usecases call) resolve recipients and gather the
// template body and placeholders before calling this, keeping the worker
// itself free of repository calls; the worker renders the body.
func (p *WorkerPool) EnqueueResolved(recipientExternalID, templateBody string, placeholders services.TemplatePlaceholders, intent services.NotificationIntent) {
	select {
	case p.jobs <- job{intent: intent, placeholders: placeholders, recipientExternalID: recipientExternalID, templateBody: templateBody}:
	default:
		p.log.WithField("appointment_id", intent.AppointmentID).Warn("notification queue full, dropping intent")
	}
}

// Close stops accepting new jobs and waits for in-flight sends to finish.
func (p *WorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// Sink resolves NotificationIntents against the domain repositories and
// hands resolved jobs (template body plus placeholders) to the WorkerPool,
// which renders them; it is the NotificationSink the
// Appointment Lifecycle Manager depends on.
type Sink struct {
	pool               *WorkerPool
	appointments       repositories.AppointmentRepository
	calendarEvents     repositories.CalendarEventRepository
	appointmentTypes   repositories.AppointmentTypeRepository
	patients           repositories.PatientRepository
	lineUsers          repositories.LineUserRepository
	clinics            repositories.ClinicRepository
	userAssociations   repositories.UserClinicAssociationRepository
	log                *logrus.Logger
}

func NewSink(
	pool *WorkerPool,
	appointments repositories.AppointmentRepository,
	calendarEvents repositories.CalendarEventRepository,
	appointmentTypes repositories.AppointmentTypeRepository,
	patients repositories.PatientRepository,
	lineUsers repositories.LineUserRepository,
	clinics repositories.ClinicRepository,
	userAssociations repositories.UserClinicAssociationRepository,
	log *logrus.Logger,
) *Sink {
	return &Sink{
		pool:             pool,
		appointments:     appointments,
		calendarEvents:   calendarEvents,
		appointmentTypes: appointmentTypes,
		patients:         patients,
		lineUsers:        lineUsers,
		clinics:          clinics,
		userAssociations: userAssociations,
		log:              log,
	}
}

// Enqueue implements usecases.NotificationSink.
func (s *Sink) Enqueue(ctx context.Context, intents []services.NotificationIntent) {
	for _, intent := range intents {
		if err := s.resolveAndEnqueue(ctx, intent); err != nil {
			s.log.WithError(err).WithField("appointment_id", intent.AppointmentID).Error("failed to resolve notification intent")
		}
	}
}

func (s *Sink) resolveAndEnqueue(ctx context.Context, intent services.NotificationIntent) error {
	appt, err := s.appointments.GetByID(ctx, intent.AppointmentID)
	if err != nil {
		return err
	}
	event, err := s.calendarEvents.GetByID(ctx, appt.CalendarEventID)
	if err != nil {
		return err
	}
	at, err := s.appointmentTypes.GetByID(ctx, appt.AppointmentTypeID)
	if err != nil {
		return err
	}
	clinic, err := s.clinics.GetByID(ctx, appt.ClinicID)
	if err != nil {
		return err
	}
	patient, err := s.patients.GetByID(ctx, appt.PatientID)
	if err != nil {
		return err
	}

	template, err := services.TemplateFor(at, intent.Template)
	if err != nil {
		return err
	}
	if !template.Enabled {
		return nil
	}

	var recipientExternalID string
	switch intent.Recipient {
	case services.RecipientPatient:
		if patient.LineUserID == nil {
			return nil
		}
		lineUser, err := s.lineUsers.GetByID(ctx, *patient.LineUserID)
		if err != nil {
			return err
		}
		recipientExternalID = lineUser.ExternalUserID
	case services.RecipientPractitioner, services.RecipientOldPractitioner:
		// Practitioners are staff Users, resolved by the out-of-scope
		// identity layer; this core only knows their id, which the
		// concrete MessageSender implementation maps to a delivery
		// address.
		recipientExternalID = appt.PractitionerID.String()
	}
	if recipientExternalID == "" {
		return nil
	}

	notes := ""
	if appt.Notes != nil {
		notes = *appt.Notes
	}
	phone := ""
	if clinic.Settings.ClinicInfoSettings.PhoneNumber != nil {
		phone = *clinic.Settings.ClinicInfoSettings.PhoneNumber
	}
	address := ""
	if clinic.Settings.ClinicInfoSettings.Address != nil {
		address = *clinic.Settings.ClinicInfoSettings.Address
	}

	practitionerName := ""
	if assoc, err := s.userAssociations.GetByUserAndClinic(ctx, appt.PractitionerID, appt.ClinicID); err == nil {
		practitionerName = assoc.DisplayName
	}

	placeholders := services.TemplatePlaceholders{
		PatientName:         patient.Name,
		AppointmentTypeName: at.Name,
		AppointmentDatetime: event.Start.In(timeutil.ClinicLocation),
		ClinicName:          clinic.EffectiveDisplayName(),
		ClinicPhone:         phone,
		ClinicAddress:       address,
		PractitionerName:    practitionerName,
		Notes:               notes,
	}

	s.pool.EnqueueResolved(recipientExternalID, template.Body, placeholders, intent)
	return nil
}
