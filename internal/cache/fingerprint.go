package cache

import (
	"hash/fnv"
	"strconv"
	"strings"

	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"
)

// Fingerprint encodes a list filter as a stable cache-key suffix. Fields
// are written in a fixed order, so two requests with the same effective
// filter always map to the same key regardless of query-param order. The
// search term is normalized the same way the store matches it
// (case-insensitive, trimmed).
func Fingerprint(f dom.TaskFilter) string {
	var b strings.Builder
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		b.WriteString("search=")
		b.WriteString(s)
		b.WriteByte(';')
	}
	if f.Completed != nil {
		b.WriteString("completed=")
		b.WriteString(strconv.FormatBool(*f.Completed))
		b.WriteByte(';')
	}
	if f.Priority != nil {
		b.WriteString("priority=")
		b.WriteString(strconv.Itoa(*f.Priority))
		b.WriteByte(';')
	}
	if b.Len() == 0 {
		return "all"
	}
	h := fnv.New64a()
	h.Write([]byte(b.String()))
	return strconv.FormatUint(h.Sum64(), 16)
}
