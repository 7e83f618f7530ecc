package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// collapseDuplicateKeys rewrites a JSON object so every key appears once, at
// its first position with its last value, which is how decoders on the
// upstream side read it. It reports the number of dropped members; when that
// is zero the object's raw text is returned unchanged.
func collapseDuplicateKeys(obj gjson.Result) (string, int) {
	type member struct {
		key   string
		value string
	}
	var (
		members []member
		dropped int
	)
	index := make(map[string]int)
	obj.ForEach(func(key, value gjson.Result) bool {
		if i, ok := index[key.Str]; ok {
			members[i].value = value.Raw
			dropped++
			return true
		}
		index[key.Str] = len(members)
		members = append(members, member{key: key.Raw, value: value.Raw})
		return true
	})
	if dropped == 0 {
		return obj.Raw, 0
	}

	var b strings.Builder
	b.Grow(len(obj.Raw))
	b.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(m.key)
		b.WriteByte(':')
		b.WriteString(m.value)
	}
	b.WriteByte('}')
	return b.String(), dropped
}

// isEmptyContainer reports whether v is [] or {}.
func isEmptyContainer(v gjson.Result) bool {
	empty := true
	v.ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	return empty
}
