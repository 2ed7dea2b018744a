package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/openmined/aclnotify/internal/mailer"
	"github.com/openmined/aclnotify/internal/metrics"
	"github.com/openmined/aclnotify/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	ErrTicketLoad = errors.New("ticket load failed")
	ErrPanic      = errors.New("recovered panic")
)

const (
	outcomeIgnored     = "ignored"
	outcomeNoSubject   = "no_subject"
	outcomeNoNewUsers  = "no_new_users"
	outcomeTicketError = "ticket_error"
	outcomeProcessed   = "processed"
	outcomePanic       = "panic"
)

var tracer = otel.Tracer("github.com/openmined/aclnotify/internal/notifier")

// Notifier emails users that were newly granted access on a ticket.
type Notifier struct {
	cfg     Config
	store   store.Loader
	sender  mailer.Sender
	metrics *metrics.Metrics
}

func New(cfg Config, loader store.Loader, sender mailer.Sender, m *metrics.Metrics) *Notifier {
	cfg.setDefaults()
	return &Notifier{
		cfg:     cfg,
		store:   loader,
		sender:  sender,
		metrics: m,
	}
}

// Hook is the entry point used by event sources. It never returns an error
// and never lets a panic escape.
func (n *Notifier) Hook(ctx context.Context, ev *Event) {
	start := time.Now()
	defer func() {
		n.metrics.ObserveHookLatency(time.Since(start))
		if r := recover(); r != nil {
			n.metrics.IncrementEvent(outcomePanic)
			slog.Error("acl notifier panic", "event", ev.subject(), "panic", r)
		}
	}()

	summary, err := n.Process(ctx, ev)
	if err != nil {
		slog.Error("acl notifier", "event", ev.subject(), "error", err)
		return
	}
	if summary != nil {
		slog.Info("acl notifier done", "invocation", summary.InvocationID, "summary", summary)
	}
}

// Process runs the full pipeline for ev. It returns a nil summary when the
// event needs no notifications and ErrTicketLoad when the ticket is missing.
func (n *Notifier) Process(ctx context.Context, ev *Event) (*Summary, error) {
	if !Eligible(ev) || !subpathAllowed(n.cfg.Subpaths, ev.Subpath) {
		n.metrics.IncrementEvent(outcomeIgnored)
		return nil, nil
	}

	if ev.Shortname == nil {
		n.metrics.IncrementEvent(outcomeNoSubject)
		slog.Warn("acl notifier event without shortname", "space", ev.SpaceName, "subpath", ev.Subpath)
		return nil, nil
	}
	shortname := *ev.Shortname

	raw, _ := ev.aclDiff()
	oldSet, newSet := ResolveACLDiff(raw)
	added := NewlyGranted(oldSet, newSet)
	if added.Cardinality() == 0 {
		n.metrics.IncrementEvent(outcomeNoNewUsers)
		slog.Debug("acl notifier no new users", "ticket", shortname)
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "notifier.Process", trace.WithAttributes(
		attribute.String("space_name", ev.SpaceName),
		attribute.String("subpath", ev.Subpath),
		attribute.String("ticket", shortname),
		attribute.Int("new_users", added.Cardinality()),
	))
	defer span.End()

	ticket, err := n.store.Load(ctx, store.Query{
		SpaceName:     ev.SpaceName,
		Subpath:       ev.Subpath,
		Shortname:     shortname,
		ResourceType:  store.ResourceContent,
		UserShortname: ev.UserShortname,
	})
	if err != nil {
		n.metrics.IncrementEvent(outcomeTicketError)
		err = fmt.Errorf("%w %s/%s/%s: %w", ErrTicketLoad, ev.SpaceName, ev.Subpath, shortname, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ticket load failed")
		return nil, err
	}

	users := added.ToSlice()
	slices.Sort(users)

	summary := &Summary{
		InvocationID: uuid.NewString(),
		Ticket:       ticket.Shortname,
		Space:        ev.SpaceName,
		Subpath:      ev.Subpath,
	}
	summary.Results = n.notifyAll(ctx, ticket, ev.UserShortname, users)

	for _, r := range summary.Results {
		n.logResult(summary, r)
		n.metrics.IncrementNotification(string(r.Status), n.sender.Name())
	}
	n.metrics.IncrementEvent(outcomeProcessed)
	span.SetAttributes(
		attribute.Int("sent", summary.Count(StatusSent)),
		attribute.Int("failed", summary.Count(StatusFailed)),
	)
	return summary, nil
}

// notifyAll keeps results in the order of users regardless of parallelism.
func (n *Notifier) notifyAll(ctx context.Context, ticket *store.Record, actor string, users []string) []Result {
	results := make([]Result, len(users))

	if n.cfg.Parallelism <= 1 || len(users) == 1 {
		for i, user := range users {
			results[i] = n.notifyUser(ctx, ticket, actor, user)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(n.cfg.Parallelism)
	for i, user := range users {
		g.Go(func() error {
			results[i] = n.notifyUser(ctx, ticket, actor, user)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (n *Notifier) notifyUser(ctx context.Context, ticket *store.Record, actor, user string) (res Result) {
	res.User = user
	defer func() {
		if r := recover(); r != nil {
			res.fail(StagePanic, fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	record, err := n.store.Load(ctx, store.Query{
		SpaceName:     n.cfg.ManagementSpace,
		Subpath:       n.cfg.UsersSubpath,
		Shortname:     user,
		ResourceType:  store.ResourceUser,
		UserShortname: actor,
	})
	if err != nil {
		res.fail(StageLoadUser, err)
		return res
	}

	if record.Email == "" {
		res.Status = StatusSkippedNoEmail
		return res
	}
	res.Email = record.Email

	body, err := renderNotification(ticket.Shortname)
	if err != nil {
		res.fail(StageRender, err)
		return res
	}

	msg := &mailer.Message{
		FromAddress: n.cfg.FromAddress,
		FromName:    n.cfg.FromName,
		ToAddress:   record.Email,
		ToName:      record.Displayname,
		Subject:     notificationSubject,
		HTMLBody:    body,
		TextBody:    renderNotificationText(ticket.Shortname),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		res.fail(StageSend, err)
		return res
	}

	res.Status = StatusSent
	return res
}

func (n *Notifier) logResult(s *Summary, r Result) {
	attrs := []any{"invocation", s.InvocationID, "ticket", s.Ticket, "user", r.User}
	switch {
	case r.Status == StatusSent:
		slog.Info("acl notifier sent", append(attrs, "email", r.Email, "transport", n.sender.Name())...)
	case r.Status == StatusSkippedNoEmail:
		slog.Warn("acl notifier user has no email", attrs...)
	case r.Stage == StageSend:
		slog.Warn("acl notifier send failed", append(attrs, "email", r.Email, "transport", n.sender.Name(), "error", r.Err)...)
	default:
		slog.Error("acl notifier user failed", append(attrs, "stage", r.Stage, "error", r.Err)...)
	}
}
