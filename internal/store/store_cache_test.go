package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, q Query) (*Record, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Record), args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func TestCachedLoader_CachesUsers(t *testing.T) {
	next := &MockStore{}
	q := Query{SpaceName: "management", Subpath: "users", Shortname: "alice", ResourceType: ResourceUser}
	next.On("Load", mock.Anything, q).Return(&Record{Shortname: "alice", Email: "alice@example.com"}, nil).Once()

	c := NewCachedLoader(next, 16, time.Minute, ResourceUser)
	for range 3 {
		rec, err := c.Load(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", rec.Email)
	}
	next.AssertNumberOfCalls(t, "Load", 1)
}

func TestCachedLoader_SkipsOtherTypes(t *testing.T) {
	next := &MockStore{}
	q := Query{SpaceName: "helpdesk", Subpath: "tickets", Shortname: "t1", ResourceType: ResourceContent}
	next.On("Load", mock.Anything, q).Return(&Record{Shortname: "t1"}, nil)

	c := NewCachedLoader(next, 16, time.Minute, ResourceUser)
	_, _ = c.Load(context.Background(), q)
	_, _ = c.Load(context.Background(), q)
	next.AssertNumberOfCalls(t, "Load", 2)
}

func TestCachedLoader_DoesNotCacheErrors(t *testing.T) {
	next := &MockStore{}
	q := Query{SpaceName: "management", Subpath: "users", Shortname: "ghost", ResourceType: ResourceUser}
	next.On("Load", mock.Anything, q).Return(nil, ErrNotFound)

	c := NewCachedLoader(next, 16, time.Minute)
	_, err := c.Load(context.Background(), q)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Load(context.Background(), q)
	assert.ErrorIs(t, err, ErrNotFound)
	next.AssertNumberOfCalls(t, "Load", 2)
}

func TestCachedLoader_CloseDelegates(t *testing.T) {
	next := &MockStore{}
	next.On("Close").Return(nil)

	require.NoError(t, NewCachedLoader(next, 1, time.Second).Close())
	next.AssertExpectations(t)
}
