package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidQuery = errors.New("invalid record query")
)

type ResourceType string

const (
	ResourceContent ResourceType = "content"
	ResourceTicket  ResourceType = "ticket"
	ResourceUser    ResourceType = "user"
)

// Query addresses a single record. UserShortname is the acting user and is
// carried for audit logging only.
type Query struct {
	SpaceName     string
	Subpath       string
	Shortname     string
	ResourceType  ResourceType
	UserShortname string
}

func (q Query) Validate() error {
	if q.SpaceName == "" {
		return fmt.Errorf("%w: space_name is required", ErrInvalidQuery)
	}
	if q.Shortname == "" {
		return fmt.Errorf("%w: shortname is required", ErrInvalidQuery)
	}
	if q.ResourceType == "" {
		return fmt.Errorf("%w: resource_type is required", ErrInvalidQuery)
	}
	return nil
}

func (q Query) key() string {
	return strings.Join([]string{q.SpaceName, NormalizeSubpath(q.Subpath), q.Shortname, string(q.ResourceType)}, "/")
}

// Record is a persisted entry as seen by the notifier.
type Record struct {
	ResourceType   ResourceType   `json:"resource_type" yaml:"resource_type"`
	SpaceName      string         `json:"space_name" yaml:"space_name"`
	Subpath        string         `json:"subpath" yaml:"subpath"`
	Shortname      string         `json:"shortname" yaml:"shortname"`
	OwnerShortname string         `json:"owner_shortname,omitempty" yaml:"owner_shortname"`
	Displayname    string         `json:"displayname,omitempty" yaml:"displayname"`
	Email          string         `json:"email,omitempty" yaml:"email"`
	Payload        map[string]any `json:"payload,omitempty" yaml:"payload"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty" yaml:"updated_at"`
}

// Loader fetches a single record. Implementations return ErrNotFound when the
// record does not exist.
type Loader interface {
	Load(ctx context.Context, q Query) (*Record, error)
}

// Store is a Loader that owns resources.
type Store interface {
	Loader
	Close() error
}

// NormalizeSubpath strips surrounding slashes so "/tickets/" and "tickets"
// address the same container.
func NormalizeSubpath(subpath string) string {
	return strings.Trim(subpath, "/")
}
