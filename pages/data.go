package pages

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ui "github.com/floeit/floedash"
)

// Page data is decoded JSON: objects are map[string]any, arrays []any and
// numbers float64. The helpers below read it without panicking on shapes the
// server did not send.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// runKey renders a {HostID, ID} object as the host-id run id.
func runKey(v any) string {
	m := asMap(v)
	if m == nil {
		return ""
	}
	id, _ := m["ID"].(float64)
	return ui.RunID{HostID: str(m["HostID"]), ID: int64(id)}.String()
}

// summaryKey is the run id of a run summary.
func summaryKey(v any) string {
	return runKey(asMap(asMap(v)["Ref"])["Run"])
}

// plain converts a typed value into the decoded JSON shape templates read.
func plain(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if json.Unmarshal(b, &m) != nil {
		return nil
	}
	return m
}

func join(sep string, v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, sep)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, str(p))
		}
		return strings.Join(parts, sep)
	}
	return ""
}

func link(base string, parts ...any) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	for _, p := range parts {
		b.WriteString(str(p))
	}
	return b.String()
}

// nodeState is the live state of a node of the run page, "" when unknown.
func nodeState(data map[string]any, id any) string {
	return str(asMap(data["Nodes"])[str(id)])
}
