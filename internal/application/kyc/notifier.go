package kyc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kyc-ledger/internal/domain"
	"github.com/kyc-ledger/internal/metrics"
)

// Decision is a committed review the artist must hear about.
type Decision struct {
	Record domain.VerificationRecord
	Event  domain.VerificationEvent
}

type noticeSender interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

type userGetter interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Notifier observes ledger commits. It updates metrics inline and queues
// review decisions for Run, which delivers them as in-app notices and, when
// configured, email and SMS. Delivery failures are logged and dropped.
type Notifier struct {
	notices noticeSender
	users   userGetter
	mail    mailer
	sms     smsSender
	metrics *metrics.Metrics
	inbox   chan Decision
	log     *slog.Logger
}

type NotifierDeps struct {
	Notices   noticeSender
	Users     userGetter
	Mailer    mailer    // optional
	SMS       smsSender // optional
	Metrics   *metrics.Metrics
	QueueSize int
	Logger    *slog.Logger
}

func NewNotifier(deps NotifierDeps) *Notifier {
	size := deps.QueueSize
	if size <= 0 {
		size = 256
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		notices: deps.Notices,
		users:   deps.Users,
		mail:    deps.Mailer,
		sms:     deps.SMS,
		metrics: deps.Metrics,
		inbox:   make(chan Decision, size),
		log:     log,
	}
}

// Committed never blocks the ledger: when the queue is full the notice is dropped.
func (n *Notifier) Committed(_ context.Context, prev, next domain.VerificationRecord, event domain.VerificationEvent) {
	n.metrics.ObserveTransition(event, prev.Status, next.Status)
	if event == domain.EventSubmit {
		return
	}
	select {
	case n.inbox <- Decision{Record: next, Event: event}:
	default:
		n.log.Warn("kyc notice queue full, dropping", "user_id", next.UserID, "event", event)
	}
}

func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-n.inbox:
			n.deliver(ctx, d)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, d Decision) {
	notice := decisionNotice(d)
	if notice == nil {
		return
	}
	log := n.log.With("user_id", d.Record.UserID, "event", d.Event)
	if err := n.notices.Notify(ctx, notice); err != nil {
		log.Warn("store kyc notice", "err", err)
	}
	if n.mail == nil && n.sms == nil {
		return
	}
	u, err := n.users.Get(ctx, d.Record.UserID)
	if err != nil {
		log.Warn("load kyc notice recipient", "err", err)
		return
	}
	if n.mail != nil && u.Email != "" {
		if err := n.mail.SendEmail(u.Email, notice.Title, notice.Message); err != nil {
			log.Warn("send kyc email", "err", err)
		}
	}
	if n.sms != nil && u.Phone != nil && *u.Phone != "" {
		if err := n.sms.SendSMS(ctx, *u.Phone, notice.Message); err != nil {
			log.Warn("send kyc sms", "err", err)
		}
	}
}

func decisionNotice(d Decision) *domain.Notification {
	switch d.Event {
	case domain.EventApprove:
		return &domain.Notification{
			UserID:    d.Record.UserID,
			Title:     "Identity verification approved",
			Message:   "Your identity has been verified. You can now list artworks for sale.",
			Type:      domain.NotificationSuccess,
			ActionURL: "/dashboard",
		}
	case domain.EventReject:
		return &domain.Notification{
			UserID:    d.Record.UserID,
			Title:     "Identity verification rejected",
			Message:   fmt.Sprintf("Your identity verification was rejected: %s. Please submit new documents.", d.Record.RejectionReason),
			Type:      domain.NotificationError,
			ActionURL: "/profile/settings",
		}
	}
	return nil
}
