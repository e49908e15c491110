package kafkaclient

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/segmentio/kafka-go"
)

// renderFieldFromValue resolves a "{field}" placeholder against v's JSON form.
func renderFieldFromValue[T any](v T, placeholder string) (string, bool) {
	ph := strings.TrimSpace(placeholder)
	if !strings.HasPrefix(ph, "{") || !strings.HasSuffix(ph, "}") {
		return "", false
	}
	field := strings.TrimSpace(ph[1 : len(ph)-1])
	if field == "" {
		return "", false
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return "", false
	}
	if raw, ok := m[field]; ok && raw != nil {
		return fmt.Sprint(raw), true
	}
	return "", false
}

func renderKeyFromTemplate[T any](tmpl string, v T) []byte {
	t := strings.TrimSpace(tmpl)
	if t == "" {
		return nil
	}
	if val, ok := renderFieldFromValue(v, t); ok {
		return []byte(val)
	}
	return []byte(t)
}

// renderHeadersFromTemplates returns headers sorted by key. Unresolved
// placeholders keep their literal text.
func renderHeadersFromTemplates[T any](tmpls map[string]string, v T) []kafka.Header {
	if len(tmpls) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tmpls))
	for k := range tmpls {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		val := tmpls[k]
		if vv, ok := renderFieldFromValue(v, val); ok {
			val = vv
		}
		out = append(out, kafka.Header{Key: k, Value: []byte(val)})
	}
	return out
}
