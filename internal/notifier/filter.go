package notifier

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/aclnotify/internal/store"
)

// Eligible reports whether ev is a content update carrying an ACL diff.
func Eligible(ev *Event) bool {
	if ev == nil {
		return false
	}
	if ev.ResourceType != ResourceContent || ev.ActionType != ActionUpdate {
		return false
	}
	_, ok := ev.aclDiff()
	return ok
}

// subpathAllowed matches the event container against the configured globs.
// No globs means every container is watched.
func subpathAllowed(patterns []string, subpath string) bool {
	if len(patterns) == 0 {
		return true
	}
	subpath = store.NormalizeSubpath(subpath)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(store.NormalizeSubpath(p), subpath); ok {
			return true
		}
	}
	return false
}
