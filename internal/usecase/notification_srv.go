package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/internal/events"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/notify"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotificationService interface {
	// Handle is the events.Handler fed by the publisher or the AMQP consumer.
	Handle(ctx context.Context, event events.Event) error
	SendEmail(ctx context.Context, userID *uuid.UUID, to, subject, body, eventType string) error
	ListMine(ctx context.Context, userID uuid.UUID, page request.PaginatedRequest) (*response.PaginatedResponse[response.NotificationResponse], error)
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
	sms     *template.Template
}

func mustTemplate(name, subject, body, sms string) messageTemplate {
	t := messageTemplate{
		subject: template.Must(template.New(name + ".subject").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Parse(body)),
	}
	if sms != "" {
		t.sms = template.Must(template.New(name + ".sms").Parse(sms))
	}
	return t
}

var templates = map[string]messageTemplate{
	events.BookingCreated: mustTemplate(events.BookingCreated,
		`Booking {{.OrderID}} received`,
		`Hi {{.Name}},

We received your booking {{.OrderID}} for {{.Service}} on {{.StartAt}} at {{.Address}}.
Total: R$ {{.Total}}. Complete the payment to confirm it.`,
		``),
	events.BookingConfirmed: mustTemplate(events.BookingConfirmed,
		`Booking {{.OrderID}} confirmed`,
		`Hi {{.Name}},

Your {{.Service}} on {{.StartAt}} is confirmed.{{if .StaffName}} {{.StaffName}} will be there.{{end}}`,
		`Booking {{.OrderID}} confirmed: {{.Service}} on {{.StartAt}}.`),
	events.BookingCancelled: mustTemplate(events.BookingCancelled,
		`Booking {{.OrderID}} cancelled`,
		`Hi {{.Name}},

Your {{.Service}} on {{.StartAt}} was cancelled.{{if .Reason}} Reason: {{.Reason}}.{{end}}`,
		``),
	events.BookingAssigned: mustTemplate(events.BookingAssigned,
		`New job {{.OrderID}}`,
		`Hi {{.Name}},

You have been assigned {{.Service}} on {{.StartAt}} at {{.Address}}.`,
		``),
	events.BookingCompleted: mustTemplate(events.BookingCompleted,
		`How did we do? Booking {{.OrderID}}`,
		`Hi {{.Name}},

Your {{.Service}} is done. We would love to hear how it went, leave a review in the app.`,
		``),
	events.BookingReminder: mustTemplate(events.BookingReminder,
		`Reminder: {{.Service}} on {{.StartAt}}`,
		`Hi {{.Name}},

This is a reminder of your {{.Service}} on {{.StartAt}} at {{.Address}}.`,
		`Reminder: {{.Service}} on {{.StartAt}} at {{.Address}}.`),
	events.PaymentCompleted: mustTemplate(events.PaymentCompleted,
		`Payment received for {{.OrderID}}`,
		`Hi {{.Name}},

We received your {{.Method}} payment of R$ {{.Amount}} for booking {{.OrderID}}.`,
		``),
	events.CustomerWinback: mustTemplate(events.CustomerWinback,
		`We miss you, {{.Name}}`,
		`Hi {{.Name}},

It has been {{.DaysInactive}} days since your last cleaning. Book again this week and let us take care of it.`,
		``),
}

// messageData feeds the templates.
type messageData struct {
	Name         string
	OrderID      string
	Service      string
	StartAt      string
	Address      string
	Total        string
	Reason       string
	StaffName    string
	Method       string
	Amount       string
	DaysInactive int
}

// resendTask is the retry payload of a failed delivery.
type resendTask struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

type notificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	bookings      repository.BookingRepository
	mailer        notify.Sender
	sms           notify.Sender
	retry         RetryService
	metrics       *metrics.Metrics
	loc           *time.Location
	log           *zap.Logger
	now           func() time.Time
}

func NewNotificationService(
	repo *repository.Repository,
	mailer notify.Sender,
	sms notify.Sender,
	retry RetryService,
	m *metrics.Metrics,
	config *utils.Config,
	log *zap.Logger,
) NotificationService {
	s := &notificationService{
		notifications: repo.Notification,
		users:         repo.User,
		bookings:      repo.Booking,
		mailer:        mailer,
		sms:           sms,
		retry:         retry,
		metrics:       m,
		loc:           config.Booking.Location(),
		log:           log.With(zap.String("service", "notification")),
		now:           time.Now,
	}
	retry.Register(entity.OperationNotificationResend, s.resend)
	return s
}

func (s *notificationService) Handle(ctx context.Context, event events.Event) error {
	tpl, ok := templates[event.Type]
	if !ok {
		s.log.Debug("No template for event", zap.String("event_type", event.Type))
		return nil
	}

	switch event.Type {
	case events.PaymentCompleted:
		var p events.PaymentPayload
		if err := event.Decode(&p); err != nil {
			return err
		}
		data, user, err := s.bookingData(ctx, p.BookingID, p.UserID)
		if err != nil {
			return err
		}
		data.Method = p.Method
		data.Amount = p.Amount
		return s.notify(ctx, event.Type, tpl, user, data)

	case events.CustomerWinback:
		var p events.WinbackPayload
		if err := event.Decode(&p); err != nil {
			return err
		}
		user, err := s.user(ctx, p.UserID)
		if err != nil || user == nil {
			return err
		}
		return s.notify(ctx, event.Type, tpl, user, messageData{Name: user.Username, DaysInactive: p.DaysInactive})

	default:
		var p events.BookingPayload
		if err := event.Decode(&p); err != nil {
			return err
		}

		// assignment notices go to the cleaner, everything else to the customer
		recipient := p.UserID
		if event.Type == events.BookingAssigned {
			if p.StaffID == nil {
				return nil
			}
			recipient = *p.StaffID
		}

		data, user, err := s.bookingData(ctx, p.BookingID, recipient)
		if err != nil {
			return err
		}
		data.Reason = p.Reason
		return s.notify(ctx, event.Type, tpl, user, data)
	}
}

// SendEmail delivers one email and logs the attempt; failures are queued for resend.
func (s *notificationService) SendEmail(ctx context.Context, userID *uuid.UUID, to, subject, body, eventType string) error {
	return s.deliver(ctx, s.mailer, userID, to, subject, body, eventType)
}

func (s *notificationService) ListMine(ctx context.Context, userID uuid.UUID, page request.PaginatedRequest) (*response.PaginatedResponse[response.NotificationResponse], error) {
	items, err := s.notifications.FindByUser(ctx, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	total, err := s.notifications.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	data := make([]response.NotificationResponse, 0, len(items))
	for _, n := range items {
		data = append(data, response.NotificationToResponse(n))
	}
	return response.NewPaginatedResponse(data, page.Page, page.Limit(), total), nil
}

// ==================== HELPER METHODS ====================

func (s *notificationService) notify(ctx context.Context, eventType string, tpl messageTemplate, user *entity.User, data messageData) error {
	subject, err := render(tpl.subject, data)
	if err != nil {
		return err
	}
	body, err := render(tpl.body, data)
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, s.mailer, &user.ID, user.Email, subject, body, eventType); err != nil {
		s.log.Warn("Email delivery failed", zap.Error(err), zap.String("event_type", eventType))
	}

	if tpl.sms != nil && user.Phone != nil && *user.Phone != "" {
		text, err := render(tpl.sms, data)
		if err != nil {
			return err
		}
		if err := s.deliver(ctx, s.sms, &user.ID, *user.Phone, "", text, eventType); err != nil {
			s.log.Warn("SMS delivery failed", zap.Error(err), zap.String("event_type", eventType))
		}
	}
	return nil
}

func (s *notificationService) deliver(ctx context.Context, sender notify.Sender, userID *uuid.UUID, to, subject, body, eventType string) error {
	n := &entity.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Channel:   sender.Channel(),
		Recipient: to,
		Subject:   subject,
		Body:      body,
		EventType: eventType,
		Status:    entity.NotificationSent,
		CreatedAt: s.now(),
	}

	sendErr := sender.Send(ctx, notify.Message{To: to, Subject: subject, Body: body})
	if sendErr != nil {
		msg := sendErr.Error()
		n.Status = entity.NotificationFailed
		n.Error = &msg
	}
	s.metrics.Notifications.WithLabelValues(n.Channel, metrics.Result(sendErr)).Inc()

	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Error("Failed to log notification", zap.Error(err), zap.String("channel", n.Channel))
		return sendErr
	}

	if sendErr != nil {
		if err := s.retry.Enqueue(ctx, entity.OperationNotificationResend, n.ID.String(), resendTask{NotificationID: n.ID}, sendErr); err != nil {
			s.log.Error("Failed to queue notification resend", zap.Error(err), zap.String("notification_id", n.ID.String()))
		}
	}
	return sendErr
}

func (s *notificationService) resend(ctx context.Context, raw json.RawMessage) error {
	var task resendTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return fmt.Errorf("decode resend task: %w", err)
	}

	n, err := s.notifications.FindByID(ctx, task.NotificationID)
	if err != nil {
		return fmt.Errorf("find notification: %w", err)
	}
	if n == nil || n.Status == entity.NotificationSent {
		return nil
	}

	sender := s.mailer
	if n.Channel == notify.ChannelSMS {
		sender = s.sms
	}

	sendErr := sender.Send(ctx, notify.Message{To: n.Recipient, Subject: n.Subject, Body: n.Body})
	s.metrics.Notifications.WithLabelValues(n.Channel, metrics.Result(sendErr)).Inc()
	if sendErr != nil {
		return sendErr
	}

	if err := s.notifications.UpdateStatus(ctx, n.ID, entity.NotificationSent, nil); err != nil {
		s.log.Error("Failed to mark notification sent", zap.Error(err), zap.String("notification_id", n.ID.String()))
	}
	return nil
}

func (s *notificationService) bookingData(ctx context.Context, bookingID, recipientID uuid.UUID) (messageData, *entity.User, error) {
	detail, err := s.bookings.FindDetailByID(ctx, bookingID)
	if err != nil {
		return messageData{}, nil, fmt.Errorf("find booking: %w", err)
	}
	if detail == nil {
		return messageData{}, nil, fmt.Errorf("booking %s not found", bookingID)
	}
	user, err := s.user(ctx, recipientID)
	if err != nil {
		return messageData{}, nil, err
	}
	if user == nil {
		return messageData{}, nil, fmt.Errorf("user %s not found", recipientID)
	}

	data := messageData{
		Name:    user.Username,
		OrderID: detail.OrderID,
		Service: detail.ServiceName,
		StartAt: detail.StartAt.In(s.loc).Format("Mon 02/01/2006 15:04"),
		Address: detail.Address,
		Total:   detail.TotalPrice.StringFixed(2),
	}
	if detail.StaffName != nil {
		data.StaffName = *detail.StaffName
	}
	return data, user, nil
}

func (s *notificationService) user(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func render(t *template.Template, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
