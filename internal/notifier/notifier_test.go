package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/openmined/aclnotify/internal/mailer"
	"github.com/openmined/aclnotify/internal/metrics"
	"github.com/openmined/aclnotify/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, q store.Query) (*store.Record, error) {
	args := m.Called(ctx, q)
	rec, _ := args.Get(0).(*store.Record)
	return rec, args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Name() string {
	return "mock"
}

func (m *MockSender) Send(ctx context.Context, msg *mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func aclEvent(oldACL, newACL any) *Event {
	ticket := "T1"
	return &Event{
		ResourceType:  ResourceContent,
		ActionType:    ActionUpdate,
		Shortname:     &ticket,
		SpaceName:     "acme",
		Subpath:       "tickets",
		UserShortname: "admin",
		Attributes: map[string]any{
			"history_diff": map[string]any{
				"acl": map[string]any{"old": oldACL, "new": newACL},
			},
		},
	}
}

func grants(users ...string) []any {
	out := make([]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{"user_shortname": u, "allowed_actions": []any{"view"}})
	}
	return out
}

func ticketQuery() any {
	return mock.MatchedBy(func(q store.Query) bool {
		return q.ResourceType == store.ResourceContent &&
			q.SpaceName == "acme" && q.Subpath == "tickets" && q.Shortname == "T1" &&
			q.UserShortname == "admin"
	})
}

func userQuery(name string) any {
	return mock.MatchedBy(func(q store.Query) bool {
		return q.ResourceType == store.ResourceUser &&
			q.SpaceName == DefaultManagementSpace && q.Subpath == DefaultUsersSubpath &&
			q.Shortname == name
	})
}

func toAddress(addr string) any {
	return mock.MatchedBy(func(msg *mailer.Message) bool {
		return msg.ToAddress == addr
	})
}

func ticketRecord() *store.Record {
	return &store.Record{ResourceType: store.ResourceContent, SpaceName: "acme", Subpath: "tickets", Shortname: "T1"}
}

func userRecord(name, email string) *store.Record {
	return &store.Record{ResourceType: store.ResourceUser, SpaceName: "management", Subpath: "users", Shortname: name, Email: email}
}

func newTestNotifier(cfg Config) (*Notifier, *MockLoader, *MockSender) {
	loader := &MockLoader{}
	sender := &MockSender{}
	return New(cfg, loader, sender, nil), loader, sender
}

func TestProcess_IneligibleEventsDoNothing(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})

	create := aclEvent(nil, grants("a"))
	create.ActionType = ActionCreate
	ticket := aclEvent(nil, grants("a"))
	ticket.ResourceType = ResourceTicket
	noACL := aclEvent(nil, grants("a"))
	noACL.Attributes = map[string]any{"history_diff": map[string]any{"state": "closed"}}

	for _, ev := range []*Event{nil, create, ticket, noACL} {
		summary, err := n.Process(context.Background(), ev)
		assert.NoError(t, err)
		assert.Nil(t, summary)
	}

	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestProcess_MissingShortname(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})

	ev := aclEvent(nil, grants("a"))
	ev.Shortname = nil

	summary, err := n.Process(context.Background(), ev)
	assert.NoError(t, err)
	assert.Nil(t, summary)
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestProcess_NoNewUsers(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})

	summary, err := n.Process(context.Background(), aclEvent(grants("a", "b"), grants("b")))
	assert.NoError(t, err)
	assert.Nil(t, summary)
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestProcess_NotifiesOnlyNewUsers(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{FromAddress: "noreply@acme.org"})

	loader.On("Load", mock.Anything, ticketQuery()).Return(ticketRecord(), nil).Once()
	loader.On("Load", mock.Anything, userQuery("b")).Return(userRecord("b", "b@acme.org"), nil).Once()
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg *mailer.Message) bool {
		return msg.ToAddress == "b@acme.org" &&
			msg.FromAddress == "noreply@acme.org" &&
			msg.Subject == "Action Required for Request" &&
			msg.HTMLBody == "<p>Your action is needed for request T1</p>" &&
			msg.TextBody == "Your action is needed for request T1"
	})).Return(nil).Once()

	summary, err := n.Process(context.Background(), aclEvent(grants("a"), grants("a", "b")))
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, "T1", summary.Ticket)
	assert.NotEmpty(t, summary.InvocationID)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, Result{User: "b", Email: "b@acme.org", Status: StatusSent}, summary.Results[0])

	loader.AssertExpectations(t)
	sender.AssertExpectations(t)
	loader.AssertNotCalled(t, "Load", mock.Anything, userQuery("a"))
}

func TestProcess_NullOldACL(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})

	loader.On("Load", mock.Anything, ticketQuery()).Return(ticketRecord(), nil)
	loader.On("Load", mock.Anything, userQuery("x")).Return(userRecord("x", "x@acme.org"), nil)
	sender.On("Send", mock.Anything, toAddress("x@acme.org")).Return(nil).Once()

	summary, err := n.Process(context.Background(), aclEvent("null", grants("x")))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(StatusSent))
	sender.AssertExpectations(t)
}

func TestProcess_SkipsUserWithoutEmail(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})

	loader.On("Load", mock.Anything, ticketQuery()).Return(ticketRecord(), nil)
	loader.On("Load", mock.Anything, userQuery("x")).Return(userRecord("x", ""), nil)
	loader.On("Load", mock.Anything, userQuery("y")).Return(userRecord("y", "y@acme.org"), nil)
	sender.On("Send", mock.Anything, toAddress("y@acme.org")).Return(nil).Once()

	summary, err := n.Process(context.Background(), aclEvent(nil, grants("x", "y")))
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, StatusSkippedNoEmail, summary.Results[0].Status)
	assert.Equal(t, "x", summary.Results[0].User)
	assert.Equal(t, StatusSent, summary.Results[1].Status)
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestProcess_TicketLoadFailure(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})

	loader.On("Load", mock.Anything, ticketQuery()).Return(nil, store.ErrNotFound)

	summary, err := n.Process(context.Background(), aclEvent(nil, grants("x", "y")))
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, ErrTicketLoad)
	assert.ErrorIs(t, err, store.ErrNotFound)

	loader.AssertNumberOfCalls(t, "Load", 1)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestProcess_ExcludesEntriesWithoutShortname(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})

	loader.On("Load", mock.Anything, ticketQuery()).Return(ticketRecord(), nil)
	loader.On("Load", mock.Anything, userQuery("z")).Return(userRecord("z", "z@acme.org"), nil)
	sender.On("Send", mock.Anything, toAddress("z@acme.org")).Return(nil)

	newACL := []any{
		map[string]any{"allowed_actions": []any{"view"}},
		map[string]any{"user_shortname": nil},
		map[string]any{"user_shortname": ""},
		map[string]any{"user_shortname": 42},
		map[string]any{"user_shortname": "z"},
	}
	summary, err := n.Process(context.Background(), aclEvent(nil, newACL))
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "z", summary.Results[0].User)
	loader.AssertNumberOfCalls(t, "Load", 2)
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestProcess_IsolatesUserFailures(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		n, loader, sender := newTestNotifier(Config{Parallelism: parallelism})

		loader.On("Load", mock.Anything, ticketQuery()).Return(ticketRecord(), nil)
		loader.On("Load", mock.Anything, userQuery("a")).Return(nil, errors.New("db down"))
		loader.On("Load", mock.Anything, userQuery("b")).Return(userRecord("b", "b@acme.org"), nil)
		loader.On("Load", mock.Anything, userQuery("c")).Return(userRecord("c", "c@acme.org"), nil)
		loader.On("Load", mock.Anything, userQuery("d")).Return(userRecord("d", "d@acme.org"), nil)
		sender.On("Send", mock.Anything, toAddress("b@acme.org")).Return(mailer.ErrSendFailed)
		sender.On("Send", mock.Anything, toAddress("c@acme.org")).Run(func(mock.Arguments) {
			panic("transport exploded")
		})
		sender.On("Send", mock.Anything, toAddress("d@acme.org")).Return(nil)

		summary, err := n.Process(context.Background(), aclEvent(nil, grants("d", "c", "b", "a")))
		require.NoError(t, err)
		require.Len(t, summary.Results, 4)

		a, b, c, d := summary.Results[0], summary.Results[1], summary.Results[2], summary.Results[3]
		assert.Equal(t, "a", a.User)
		assert.Equal(t, StatusFailed, a.Status)
		assert.Equal(t, StageLoadUser, a.Stage)

		assert.Equal(t, StatusFailed, b.Status)
		assert.Equal(t, StageSend, b.Stage)
		assert.ErrorIs(t, b.Err, mailer.ErrSendFailed)

		assert.Equal(t, StatusFailed, c.Status)
		assert.ErrorIs(t, c.Err, ErrPanic)

		assert.Equal(t, "d", d.User)
		assert.Equal(t, StatusSent, d.Status)
	}
}

func TestProcess_SubpathAllowlist(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{Subpaths: []string{"requests/**"}})

	summary, err := n.Process(context.Background(), aclEvent(nil, grants("a")))
	assert.NoError(t, err)
	assert.Nil(t, summary)
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHook_RecoversPanics(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})

	loader.On("Load", mock.Anything, ticketQuery()).Run(func(mock.Arguments) {
		panic("store exploded")
	})

	assert.NotPanics(t, func() {
		n.Hook(context.Background(), aclEvent(nil, grants("a")))
	})
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHook_SwallowsTicketErrors(t *testing.T) {
	n, loader, sender := newTestNotifier(Config{})
	loader.On("Load", mock.Anything, ticketQuery()).Return(nil, store.ErrNotFound)

	assert.NotPanics(t, func() {
		n.Hook(context.Background(), aclEvent(nil, grants("a")))
		n.Hook(context.Background(), nil)
	})
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHook_RecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	loader := &MockLoader{}
	sender := &MockSender{}
	n := New(Config{}, loader, sender, m)

	loader.On("Load", mock.Anything, ticketQuery()).Return(ticketRecord(), nil)
	loader.On("Load", mock.Anything, userQuery("a")).Return(userRecord("a", "a@acme.org"), nil)
	loader.On("Load", mock.Anything, userQuery("b")).Return(userRecord("b", ""), nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	n.Hook(context.Background(), aclEvent(nil, grants("a", "b")))
	n.Hook(context.Background(), aclEvent(grants("a"), grants("a")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("no_new_users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent", "mock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("skipped_no_email", "mock")))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{FromAddress: "noreply@acme.org", Subpaths: []string{"tickets/**"}}).Validate())
	assert.Error(t, (&Config{FromAddress: "nope"}).Validate())
	assert.Error(t, (&Config{Subpaths: []string{"tickets/[a"}}).Validate())
	assert.Error(t, (&Config{Parallelism: -1}).Validate())
}

func TestNew_Defaults(t *testing.T) {
	n := New(Config{}, nil, nil, nil)
	assert.Equal(t, DefaultManagementSpace, n.cfg.ManagementSpace)
	assert.Equal(t, DefaultUsersSubpath, n.cfg.UsersSubpath)
	assert.Equal(t, DefaultParallelism, n.cfg.Parallelism)
}
