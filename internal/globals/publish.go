package globals

import "sort"

// Entry is one name/value pair to publish.
type Entry struct {
	Key   string
	Value interface{}
}

type prior struct {
	key     string
	value   interface{}
	present bool
}

// Publish binds every entry whose key is not in exclude into each namespace,
// recording what each key held before. The returned function restores every
// recorded key to its prior value, unbinding keys that were previously
// absent. Restoration runs in reverse order of publication and is safe to
// call more than once; only the first call has an effect.
//
// Callers must pair Publish with the restore function via defer so that the
// namespace is restored on every exit path. Nested publications must be
// restored in strict reverse order of acquisition.
func Publish(entries []Entry, exclude []string, namespaces ...Namespace) (restore func()) {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}

	saved := make([][]prior, len(namespaces))
	for i, ns := range namespaces {
		seen := make(map[string]bool, len(entries))
		for _, e := range entries {
			if skip[e.Key] {
				continue
			}
			if !seen[e.Key] {
				v, ok := ns.Lookup(e.Key)
				saved[i] = append(saved[i], prior{key: e.Key, value: v, present: ok})
				seen[e.Key] = true
			}
			ns.Set(e.Key, e.Value)
		}
	}

	done := false
	return func() {
		if done {
			return
		}
		done = true
		for i := len(namespaces) - 1; i >= 0; i-- {
			ns := namespaces[i]
			for j := len(saved[i]) - 1; j >= 0; j-- {
				p := saved[i][j]
				if p.present {
					ns.Set(p.key, p.value)
				} else {
					ns.Delete(p.key)
				}
			}
		}
	}
}

// EntriesFromMap converts a map into entries sorted by key.
func EntriesFromMap(m map[string]interface{}) []Entry {
	entries := make([]Entry, 0, len(m))
	for k, v := range m {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Clear unbinds every key in each namespace.
func Clear(keys []string, namespaces ...Namespace) {
	for _, ns := range namespaces {
		for _, k := range keys {
			ns.Delete(k)
		}
	}
}
