package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	space_name      TEXT NOT NULL,
	subpath         TEXT NOT NULL,
	shortname       TEXT NOT NULL,
	resource_type   TEXT NOT NULL,
	owner_shortname TEXT NOT NULL DEFAULT '',
	displayname     TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	payload         TEXT NOT NULL DEFAULT '{}',
	updated_at      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (space_name, subpath, shortname, resource_type)
);
`

const selectRecord = `
SELECT space_name, subpath, shortname, resource_type, owner_shortname, displayname, email, payload, updated_at
FROM records
WHERE space_name = ? AND subpath = ? AND shortname = ? AND resource_type = ?
`

const upsertRecord = `
INSERT INTO records (space_name, subpath, shortname, resource_type, owner_shortname, displayname, email, payload, updated_at)
VALUES (:space_name, :subpath, :shortname, :resource_type, :owner_shortname, :displayname, :email, :payload, :updated_at)
ON CONFLICT (space_name, subpath, shortname, resource_type) DO UPDATE SET
	owner_shortname = excluded.owner_shortname,
	displayname = excluded.displayname,
	email = excluded.email,
	payload = excluded.payload,
	updated_at = excluded.updated_at
`

type recordRow struct {
	SpaceName      string `db:"space_name"`
	Subpath        string `db:"subpath"`
	Shortname      string `db:"shortname"`
	ResourceType   string `db:"resource_type"`
	OwnerShortname string `db:"owner_shortname"`
	Displayname    string `db:"displayname"`
	Email          string `db:"email"`
	Payload        string `db:"payload"`
	UpdatedAt      string `db:"updated_at"`
}

func (r *recordRow) toRecord() (*Record, error) {
	rec := &Record{
		ResourceType:   ResourceType(r.ResourceType),
		SpaceName:      r.SpaceName,
		Subpath:        r.Subpath,
		Shortname:      r.Shortname,
		OwnerShortname: r.OwnerShortname,
		Displayname:    r.Displayname,
		Email:          r.Email,
	}
	if r.Payload != "" && r.Payload != "{}" {
		if err := json.Unmarshal([]byte(r.Payload), &rec.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	if r.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, r.UpdatedAt); err == nil {
			rec.UpdatedAt = t
		}
	}
	return rec, nil
}

func newRecordRow(rec *Record) (*recordRow, error) {
	payload := []byte("{}")
	if len(rec.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(rec.Payload); err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return &recordRow{
		SpaceName:      rec.SpaceName,
		Subpath:        NormalizeSubpath(rec.Subpath),
		Shortname:      rec.Shortname,
		ResourceType:   string(rec.ResourceType),
		OwnerShortname: rec.OwnerShortname,
		Displayname:    rec.Displayname,
		Email:          rec.Email,
		Payload:        string(payload),
		UpdatedAt:      updatedAt.Format(time.RFC3339Nano),
	}, nil
}

// SQLStore keeps records in a single table. Works with sqlite and postgres.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, q Query) (*Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var row recordRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectRecord),
		q.SpaceName, NormalizeSubpath(q.Subpath), q.Shortname, string(q.ResourceType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, q.key())
	} else if err != nil {
		return nil, fmt.Errorf("load %s: %w", q.key(), err)
	}

	return row.toRecord()
}

// Put inserts or replaces a record.
func (s *SQLStore) Put(ctx context.Context, rec *Record) error {
	if err := (Query{SpaceName: rec.SpaceName, Shortname: rec.Shortname, ResourceType: rec.ResourceType}).Validate(); err != nil {
		return err
	}

	row, err := newRecordRow(rec)
	if err != nil {
		return err
	}

	if _, err := s.db.NamedExecContext(ctx, upsertRecord, row); err != nil {
		return fmt.Errorf("put %s/%s: %w", rec.SpaceName, rec.Shortname, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
