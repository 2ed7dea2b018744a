package notifier

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/goccy/go-json"
)

type ResourceType string

const (
	ResourceContent ResourceType = "content"
	ResourceTicket  ResourceType = "ticket"
	ResourceUser    ResourceType = "user"
	ResourceFolder  ResourceType = "folder"
)

type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionMove   ActionType = "move"
	ActionView   ActionType = "view"
)

const (
	attrHistoryDiff = "history_diff"
	diffKeyACL      = "acl"
	diffKeyOld      = "old"
	diffKeyNew      = "new"
)

// Event is emitted by the host after a resource changed. The notifier only
// reads it.
type Event struct {
	ResourceType  ResourceType   `json:"resource_type"`
	ActionType    ActionType     `json:"action_type"`
	Shortname     *string        `json:"shortname"`
	Subpath       string         `json:"subpath"`
	SpaceName     string         `json:"space_name"`
	UserShortname string         `json:"user_shortname"`
	Attributes    map[string]any `json:"attributes"`
}

// eventWire mirrors Event with a loosely typed shortname, so a non-string
// subject reaches the notifier as missing instead of failing the decode.
type eventWire struct {
	ResourceType  ResourceType   `json:"resource_type"`
	ActionType    ActionType     `json:"action_type"`
	Shortname     any            `json:"shortname"`
	Subpath       string         `json:"subpath"`
	SpaceName     string         `json:"space_name"`
	UserShortname string         `json:"user_shortname"`
	Attributes    map[string]any `json:"attributes"`
}

func DecodeEvent(data []byte) (*Event, error) {
	var wire eventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	ev := &Event{
		ResourceType:  wire.ResourceType,
		ActionType:    wire.ActionType,
		Subpath:       wire.Subpath,
		SpaceName:     wire.SpaceName,
		UserShortname: wire.UserShortname,
		Attributes:    wire.Attributes,
	}
	switch name := wire.Shortname.(type) {
	case string:
		ev.Shortname = &name
	case nil:
	default:
		slog.Debug("event shortname is not a string", "shortname", name)
	}
	return ev, nil
}

// subject returns the shortname for logging, "<nil>" when absent.
func (e *Event) subject() string {
	if e == nil || e.Shortname == nil {
		return "<nil>"
	}
	return *e.Shortname
}

func (e *Event) historyDiff() (map[string]any, bool) {
	if e.Attributes == nil {
		return nil, false
	}
	return asMapping(e.Attributes[attrHistoryDiff])
}

// aclDiff returns the raw value at history_diff["acl"] and whether the key is present.
func (e *Event) aclDiff() (any, bool) {
	diff, ok := e.historyDiff()
	if !ok {
		return nil, false
	}
	v, ok := diff[diffKeyACL]
	return v, ok
}

func asMapping(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	if data, ok := rawJSON(v); ok {
		return decodeMapping(data)
	}
	return nil, false
}

// rawJSON accepts []byte and any named byte slice such as json.RawMessage.
func rawJSON(v any) ([]byte, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return rv.Bytes(), true
	}
	return nil, false
}

func decodeMapping(data []byte) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
