package notifier

import (
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-json"
)

const fieldUserShortname = "user_shortname"

// ACLEntry is the normalized shape of one ACL grant.
type ACLEntry struct {
	UserShortname  string   `json:"user_shortname"`
	AllowedActions []string `json:"allowed_actions,omitempty"`
}

func (e ACLEntry) GetUserShortname() string {
	return e.UserShortname
}

// UserShortnamer is implemented by typed ACL entries from other packages.
type UserShortnamer interface {
	GetUserShortname() string
}

// Principals is a set of user shortnames.
type Principals = mapset.Set[string]

// normalizeACLEntry is the single place that tolerates heterogeneous ACL
// entry shapes. It reports false for entries without a usable
// user_shortname: absent, empty, null or not a string.
func normalizeACLEntry(v any) (ACLEntry, bool) {
	switch e := v.(type) {
	case nil:
		return ACLEntry{}, false
	case ACLEntry:
		return e, e.UserShortname != ""
	case *ACLEntry:
		if e == nil {
			return ACLEntry{}, false
		}
		return *e, e.UserShortname != ""
	case map[string]any:
		name, _ := e[fieldUserShortname].(string)
		return ACLEntry{UserShortname: name, AllowedActions: stringList(e["allowed_actions"])}, name != ""
	case map[string]string:
		name := e[fieldUserShortname]
		return ACLEntry{UserShortname: name}, name != ""
	case UserShortnamer:
		if rv := reflect.ValueOf(e); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return ACLEntry{}, false
		}
		name := e.GetUserShortname()
		return ACLEntry{UserShortname: name}, name != ""
	default:
		if data, ok := rawJSON(v); ok {
			return normalizeRawEntry(data)
		}
		return ACLEntry{}, false
	}
}

func normalizeRawEntry(data []byte) (ACLEntry, bool) {
	var entry ACLEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return ACLEntry{}, false
	}
	return entry, entry.UserShortname != ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// aclSide coerces one side of the diff into a list of entries. Absent, null,
// the string "null" and anything that is not a sequence become empty.
func aclSide(v any) []any {
	switch side := v.(type) {
	case nil, string:
		return nil
	case []any:
		return side
	}
	if data, ok := rawJSON(v); ok {
		return decodeList(data)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func decodeList(data []byte) []any {
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	return list
}

func principalsOf(side any) Principals {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, raw := range aclSide(side) {
		if entry, ok := normalizeACLEntry(raw); ok {
			set.Add(entry.UserShortname)
		}
	}
	return set
}

// ResolveACLDiff turns the raw history_diff["acl"] value into the principal
// sets before and after the change. Malformed input yields empty sets.
func ResolveACLDiff(raw any) (oldSet, newSet Principals) {
	diff, ok := asMapping(raw)
	if !ok {
		return mapset.NewThreadUnsafeSet[string](), mapset.NewThreadUnsafeSet[string]()
	}
	return principalsOf(diff[diffKeyOld]), principalsOf(diff[diffKeyNew])
}

// NewlyGranted returns the principals present in newSet but not in oldSet.
func NewlyGranted(oldSet, newSet Principals) Principals {
	return newSet.Difference(oldSet)
}
