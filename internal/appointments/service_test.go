package appointments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/coaching-booking-platform/internal/apperr"
	"github.com/wolfman30/coaching-booking-platform/internal/compliance"
	"github.com/wolfman30/coaching-booking-platform/internal/notify"
)

const operatorInbox = "bookings@coach.example.com"

type sentEmail struct {
	to, subject, html string
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentEmail
	failTo string
}

func (f *fakeNotifier) Send(_ context.Context, to, subject, htmlBody string) notify.DeliveryResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{to, subject, htmlBody})
	if to == f.failTo {
		return notify.DeliveryResult{Provider: "fake", Error: "mail provider rejected message"}
	}
	return notify.DeliveryResult{OK: true, Provider: "fake", MessageID: "msg-" + to}
}

func (f *fakeNotifier) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.to)
	}
	return out
}

type fakeAuditor struct {
	mu          sync.Mutex
	rescheduled []string
	cancelled   []string
	failures    []string
}

func (f *fakeAuditor) LogAppointmentRescheduled(_ context.Context, id, actor, previous, current string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled = append(f.rescheduled, strings.Join([]string{id, actor, previous, current}, "|"))
	return nil
}

func (f *fakeAuditor) LogAppointmentCancelled(_ context.Context, id, actor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id+"|"+actor)
	return nil
}

func (f *fakeAuditor) LogNotificationFailed(_ context.Context, id, audience, provider, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, audience)
	return nil
}

type failingRepo struct {
	*InMemoryRepository
	err error
}

func (r failingRepo) Reschedule(context.Context, string, Schedule) (Change, error) {
	return Change{}, r.err
}

func (r failingRepo) Cancel(context.Context, string) (Change, error) {
	return Change{}, r.err
}

func seed(t *testing.T, repo *InMemoryRepository) *Appointment {
	t.Helper()
	appt, err := repo.Create(context.Background(), Appointment{
		FullName:    "Dana Client",
		Email:       "dana@example.com",
		SessionType: "discovery call",
		Date:        "2026-11-02",
		Time:        "09:30",
	})
	require.NoError(t, err)
	return appt
}

func newTestService(repo Repository, notifier Notifier, auditor Auditor) *Service {
	return NewService(repo, notifier, ServiceConfig{OperatorInbox: operatorInbox}, auditor, nil, nil)
}

func TestReschedule_UpdatesAndNotifiesBoth(t *testing.T) {
	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	notifier := &fakeNotifier{}
	auditor := &fakeAuditor{}
	svc := newTestService(repo, notifier, auditor)

	result, err := svc.Reschedule(context.Background(), RescheduleRequest{
		AppointmentID: appt.ID,
		Date:          "2026-11-05",
		Time:          "14:00:00",
		Actor:         "admin-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-11-05", result.Appointment.Date)
	assert.Equal(t, "14:00", result.Appointment.Time)
	require.NotNil(t, result.Previous)
	assert.Equal(t, Schedule{Date: "2026-11-02", Time: "09:30"}, *result.Previous)
	assert.True(t, result.Appointment.UpdatedAt.After(appt.UpdatedAt))
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Notifications, 2)
	assert.Equal(t, AudienceClient, result.Notifications[0].Audience)
	assert.Equal(t, "dana@example.com", result.Notifications[0].Recipient)
	assert.True(t, result.Notifications[0].OK)
	assert.Equal(t, AudienceOperator, result.Notifications[1].Audience)
	assert.Equal(t, operatorInbox, result.Notifications[1].Recipient)
	assert.True(t, result.Notifications[1].OK)
	assert.ElementsMatch(t, []string{"dana@example.com", operatorInbox}, notifier.recipients())

	stored, err := repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Appointment, *stored)

	assert.Equal(t, []string{appt.ID + "|admin-1|2026-11-02 09:30|2026-11-05 14:00"}, auditor.rescheduled)
}

func TestReschedule_EmailContent(t *testing.T) {
	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	notifier := &fakeNotifier{}
	svc := newTestService(repo, notifier, nil)

	_, err := svc.Reschedule(context.Background(), RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"})
	require.NoError(t, err)

	var client, operator sentEmail
	for _, s := range notifier.sent {
		if s.to == operatorInbox {
			operator = s
		} else {
			client = s
		}
	}
	assert.Equal(t, "Your Discovery Call has been rescheduled", client.subject)
	assert.Contains(t, client.html, "Thursday, November 5, 2026 at 2:00 PM")
	assert.Equal(t, "Rescheduled: Discovery Call with Dana Client", operator.subject)
	assert.Contains(t, operator.html, "dana@example.com")
}

func TestReschedule_WithDispatcherAppendsFooterOnce(t *testing.T) {
	footer, err := compliance.NewFooter(compliance.FooterConfig{ContactEmail: "privacy@coach.example.com"})
	require.NoError(t, err)
	transport := &recordingTransport{}
	dispatcher, err := notify.NewDispatcher(transport, footer, nil, nil)
	require.NoError(t, err)

	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	svc := newTestService(repo, dispatcher, nil)

	result, err := svc.Reschedule(context.Background(), RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	require.Len(t, transport.sent, 2)
	for _, msg := range transport.sent {
		assert.Equal(t, 1, strings.Count(msg.HTML, `data-footer="recipient-rights"`))
		assert.True(t, strings.HasSuffix(msg.HTML, footer.HTML()))
	}
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (r *recordingTransport) Name() string { return "recording" }

func (r *recordingTransport) Deliver(_ context.Context, msg notify.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return "id", nil
}

func TestReschedule_OneFailedNotificationKeepsUpdate(t *testing.T) {
	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	notifier := &fakeNotifier{failTo: operatorInbox}
	auditor := &fakeAuditor{}
	svc := newTestService(repo, notifier, auditor)

	result, err := svc.Reschedule(context.Background(), RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"})
	require.NoError(t, err)

	assert.True(t, result.Notifications[0].OK)
	assert.False(t, result.Notifications[1].OK)
	assert.Equal(t, []string{"operator notification failed: mail provider rejected message"}, result.Warnings)
	assert.Equal(t, []string{"operator"}, auditor.failures)

	stored, err := repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-11-05", stored.Date)
}

func TestReschedule_FailedClientEmailStillNotifiesOperator(t *testing.T) {
	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	notifier := &fakeNotifier{failTo: "dana@example.com"}
	auditor := &fakeAuditor{}
	svc := newTestService(repo, notifier, auditor)

	result, err := svc.Reschedule(context.Background(), RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"dana@example.com", operatorInbox}, notifier.recipients())
	require.Len(t, result.Notifications, 2)
	assert.Equal(t, AudienceClient, result.Notifications[0].Audience)
	assert.False(t, result.Notifications[0].OK)
	assert.Equal(t, AudienceOperator, result.Notifications[1].Audience)
	assert.True(t, result.Notifications[1].OK)
	assert.Equal(t, "msg-"+operatorInbox, result.Notifications[1].MessageID)
	assert.Equal(t, []string{"client notification failed: mail provider rejected message"}, result.Warnings)
	assert.Equal(t, []string{"client"}, auditor.failures)

	stored, err := repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-11-05", stored.Date)
}

func TestReschedule_NoNotificationsOnFailure(t *testing.T) {
	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	cancelled := seed(t, repo)
	_, err := repo.Cancel(context.Background(), cancelled.ID)
	require.NoError(t, err)

	cases := []struct {
		name string
		repo Repository
		req  RescheduleRequest
		kind apperr.Kind
	}{
		{"missing id", repo, RescheduleRequest{Date: "2026-11-05", Time: "14:00"}, apperr.KindValidation},
		{"bad date", repo, RescheduleRequest{AppointmentID: appt.ID, Date: "11/05/2026", Time: "14:00"}, apperr.KindValidation},
		{"bad time", repo, RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "25:00"}, apperr.KindValidation},
		{"unknown appointment", repo, RescheduleRequest{AppointmentID: "6f1c1c4e-8f5b-4f7e-9a53-0f3c5a1b2c3d", Date: "2026-11-05", Time: "14:00"}, apperr.KindLookup},
		{"cancelled appointment", repo, RescheduleRequest{AppointmentID: cancelled.ID, Date: "2026-11-05", Time: "14:00"}, apperr.KindValidation},
		{"store failure", failingRepo{repo, errors.New("connection reset")}, RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"}, apperr.KindPersistence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			svc := newTestService(tc.repo, notifier, nil)

			result, err := svc.Reschedule(context.Background(), tc.req)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Empty(t, notifier.sent)
		})
	}

	stored, err := repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-11-02", stored.Date)
}

func TestReschedule_StoreErrorHidesCause(t *testing.T) {
	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	svc := newTestService(failingRepo{repo, errors.New("pq: password authentication failed")}, &fakeNotifier{}, nil)

	_, err := svc.Reschedule(context.Background(), RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"})

	require.Error(t, err)
	assert.Equal(t, "could not save appointment", apperr.MessageOf(err))
}

func TestReschedule_SameSlotStillBumpsUpdatedAt(t *testing.T) {
	repo := NewInMemoryRepository()
	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	appt := seed(t, repo)
	svc := newTestService(repo, &fakeNotifier{}, nil)

	first, err := svc.Reschedule(context.Background(), RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"})
	require.NoError(t, err)
	second, err := svc.Reschedule(context.Background(), RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"})
	require.NoError(t, err)

	assert.Equal(t, first.Appointment.Schedule(), second.Appointment.Schedule())
	assert.True(t, first.Appointment.UpdatedAt.After(appt.UpdatedAt))
	assert.True(t, second.Appointment.UpdatedAt.After(first.Appointment.UpdatedAt))
}

func TestReschedule_NotificationsOutliveCancelledRequest(t *testing.T) {
	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	var errs []error
	var mu sync.Mutex
	notifier := notifierFunc(func(ctx context.Context, to, subject, html string) notify.DeliveryResult {
		mu.Lock()
		errs = append(errs, ctx.Err())
		mu.Unlock()
		return notify.DeliveryResult{OK: true}
	})
	ctx, cancel := context.WithCancel(context.Background())
	svc := newTestService(cancelAfterWrite{repo, cancel}, notifier, nil)

	_, err := svc.Reschedule(ctx, RescheduleRequest{AppointmentID: appt.ID, Date: "2026-11-05", Time: "14:00"})
	require.NoError(t, err)
	assert.Equal(t, []error{nil, nil}, errs)
}

type notifierFunc func(ctx context.Context, to, subject, html string) notify.DeliveryResult

func (f notifierFunc) Send(ctx context.Context, to, subject, html string) notify.DeliveryResult {
	return f(ctx, to, subject, html)
}

type cancelAfterWrite struct {
	*InMemoryRepository
	cancel context.CancelFunc
}

func (r cancelAfterWrite) Reschedule(ctx context.Context, id string, to Schedule) (Change, error) {
	change, err := r.InMemoryRepository.Reschedule(ctx, id, to)
	r.cancel()
	return change, err
}

func TestBook_CreatesPendingAndNotifies(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier := &fakeNotifier{}
	svc := newTestService(repo, notifier, nil)

	result, err := svc.Book(context.Background(), BookRequest{
		FullName:    "  Sam Lee ",
		Email:       "sam@example.com",
		SessionType: "career coaching",
		Date:        "2026-12-01",
		Time:        "10:15",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Appointment.ID)
	assert.Equal(t, "Sam Lee", result.Appointment.FullName)
	assert.Equal(t, StatusPending, result.Appointment.Status)
	assert.Nil(t, result.Previous)
	assert.ElementsMatch(t, []string{"sam@example.com", operatorInbox}, notifier.recipients())
}

func TestBook_ValidationMessages(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), &fakeNotifier{}, nil)

	_, err := svc.Book(context.Background(), BookRequest{Email: "not-an-email", Date: "2026-12-01", Time: "10:15"})

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	msg := apperr.MessageOf(err)
	assert.Contains(t, msg, "fullName is required")
	assert.Contains(t, msg, "email must be a valid email address")
	assert.Contains(t, msg, "sessionType is required")
}

func TestCancel_TwiceIsNoop(t *testing.T) {
	repo := NewInMemoryRepository()
	appt := seed(t, repo)
	notifier := &fakeNotifier{}
	auditor := &fakeAuditor{}
	svc := newTestService(repo, notifier, auditor)

	first, err := svc.Cancel(context.Background(), CancelRequest{AppointmentID: appt.ID, Actor: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, first.Appointment.Status)
	assert.Len(t, first.Notifications, 2)
	assert.Empty(t, first.Warnings)

	second, err := svc.Cancel(context.Background(), CancelRequest{AppointmentID: appt.ID, Actor: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"appointment was already cancelled"}, second.Warnings)
	assert.Empty(t, second.Notifications)
	assert.Equal(t, first.Appointment.UpdatedAt, second.Appointment.UpdatedAt)

	assert.Len(t, notifier.sent, 2)
	assert.Equal(t, []string{appt.ID + "|admin-1"}, auditor.cancelled)
}

func TestCancel_Unknown(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), &fakeNotifier{}, nil)

	_, err := svc.Cancel(context.Background(), CancelRequest{AppointmentID: "6f1c1c4e-8f5b-4f7e-9a53-0f3c5a1b2c3d"})

	assert.Equal(t, apperr.KindLookup, apperr.KindOf(err))
	assert.Equal(t, "appointment not found", apperr.MessageOf(err))
}

func TestReads(t *testing.T) {
	repo := NewInMemoryRepository()
	first := seed(t, repo)
	second, err := repo.Create(context.Background(), Appointment{
		FullName: "Dana Client", Email: "DANA@example.com", SessionType: "follow-up", Date: "2026-10-20", Time: "08:00",
	})
	require.NoError(t, err)
	_, err = repo.Cancel(context.Background(), first.ID)
	require.NoError(t, err)
	svc := newTestService(repo, &fakeNotifier{}, nil)

	got, err := svc.Get(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, "follow-up", got.SessionType)

	_, err = svc.Get(context.Background(), "nope")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	list, err := svc.ListByEmail(context.Background(), "dana@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	empty, err := svc.ListByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Pending: 1, Cancelled: 1}, stats)
}
