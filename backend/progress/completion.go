// Package progress holds the completion tracking core: the local cache, the
// remote store client, the sync engine that reconciles the two, the module
// unlock schedule and the facade handed to presentation code.
package progress

import "sort"

// CompletionMap maps a progress key (lesson id, module id or "moduleId:lessonHref")
// to its done flag. A missing key means not completed.
type CompletionMap map[string]bool

// Clone returns an independent copy; nil clones to an empty map.
func (m CompletionMap) Clone() CompletionMap {
	out := make(CompletionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Done reports whether key is marked complete.
func (m CompletionMap) Done(key string) bool {
	return m[key]
}

// CompletedKeys returns the keys marked done, sorted.
func (m CompletionMap) CompletedKeys() []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Merge combines two maps with boolean OR over the union of their keys.
// Once a unit is done on either side it stays done.
func Merge(local, remote CompletionMap) CompletionMap {
	out := make(CompletionMap, len(local)+len(remote))
	for k, v := range local {
		out[k] = v
	}
	for k, v := range remote {
		out[k] = out[k] || v
	}
	return out
}

// HasUnsynced reports whether local holds a completion the remote lacks.
func HasUnsynced(local, remote CompletionMap) bool {
	for k, v := range local {
		if v && !remote[k] {
			return true
		}
	}
	return false
}

// Toggle flips key and returns a new map. Turning a key off removes it, so
// toggling twice restores the original map.
func Toggle(m CompletionMap, key string) CompletionMap {
	out := m.Clone()
	if out[key] {
		delete(out, key)
	} else {
		out[key] = true
	}
	return out
}

// Equivalent compares two maps by their completed keys only, treating an
// explicit false the same as an absent key.
func Equivalent(a, b CompletionMap) bool {
	for k, v := range a {
		if v != b[k] {
			return false
		}
	}
	for k, v := range b {
		if v != a[k] {
			return false
		}
	}
	return true
}
