package store

import (
	"context"
	"testing"

	"github.com/openmined/aclnotify/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	conn, err := db.NewSqliteDB()
	require.NoError(t, err)
	s, err := NewSQLStore(conn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStore_PutLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	err := s.Put(ctx, &Record{
		ResourceType: ResourceUser,
		SpaceName:    "management",
		Subpath:      "/users/",
		Shortname:    "alice",
		Email:        "alice@example.com",
		Payload:      map[string]any{"roles": []any{"agent"}},
	})
	require.NoError(t, err)

	rec, err := s.Load(ctx, Query{
		SpaceName:     "management",
		Subpath:       "users",
		Shortname:     "alice",
		ResourceType:  ResourceUser,
		UserShortname: "dmart",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Shortname)
	assert.Equal(t, "users", rec.Subpath)
	assert.Equal(t, "alice@example.com", rec.Email)
	assert.Equal(t, []any{"agent"}, rec.Payload["roles"])
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestSQLStore_PutUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	rec := &Record{ResourceType: ResourceUser, SpaceName: "management", Subpath: "users", Shortname: "bob"}
	require.NoError(t, s.Put(ctx, rec))

	rec.Email = "bob@example.com"
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Load(ctx, Query{SpaceName: "management", Subpath: "users", Shortname: "bob", ResourceType: ResourceUser})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Email)
}

func TestSQLStore_LoadNotFound(t *testing.T) {
	s := newTestSQLStore(t)

	_, err := s.Load(context.Background(), Query{SpaceName: "helpdesk", Subpath: "tickets", Shortname: "missing", ResourceType: ResourceContent})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_ResourceTypeIsPartOfKey(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	require.NoError(t, s.Put(ctx, &Record{ResourceType: ResourceContent, SpaceName: "helpdesk", Subpath: "tickets", Shortname: "t1"}))

	_, err := s.Load(ctx, Query{SpaceName: "helpdesk", Subpath: "tickets", Shortname: "t1", ResourceType: ResourceTicket})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_InvalidQuery(t *testing.T) {
	s := newTestSQLStore(t)

	_, err := s.Load(context.Background(), Query{Subpath: "tickets", Shortname: "t1", ResourceType: ResourceContent})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	err = s.Put(context.Background(), &Record{SpaceName: "helpdesk"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
