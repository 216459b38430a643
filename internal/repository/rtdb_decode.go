package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/jmehdipour/reminder-dispatch/internal/model"
)

// parentNode is the read shape of Parents/<id>. Scalars are untyped because
// the database does not enforce them.
type parentNode struct {
	MuteReminders any             `json:"muteReminders"`
	Timezone      any             `json:"timezone"`
	FCMTokens     json.RawMessage `json:"fcmTokens"`
	Children      json.RawMessage `json:"children"`
}

type childNode struct {
	Name             any `json:"name"`
	NextDueVaccine   any `json:"nextDueVaccine"`
	NextDueDate      any `json:"nextDueDate"`
	LastNotifiedDate any `json:"lastNotifiedDate"`
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// decodeNode reads a node that is either an object or, when all its keys are
// small integers, an array. Null array slots are dropped.
func decodeNode(raw json.RawMessage) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return nil, nil
	}
	switch raw[0] {
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, err
		}
		m := make(map[string]json.RawMessage, len(arr))
		for i, v := range arr {
			if !isNull(v) {
				m[strconv.Itoa(i)] = v
			}
		}
		return m, nil
	}
	return nil, fmt.Errorf("want object or array, got %.32s", raw)
}

// nodeKeys orders keys like the database does: integer keys numerically
// first, then the rest lexicographically.
func nodeKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseInt(keys[i], 10, 64)
		b, bErr := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

func decodeParent(id string, raw json.RawMessage) (model.Recipient, error) {
	rec := model.Recipient{ID: id}
	if isNull(raw) {
		return rec, nil
	}

	var p parentNode
	if err := json.Unmarshal(raw, &p); err != nil {
		return rec, err
	}
	rec.Muted = truthy(p.MuteReminders)
	rec.Timezone, _ = p.Timezone.(string)

	tokens, err := decodeTokens(p.FCMTokens)
	if err != nil {
		return rec, fmt.Errorf("fcmTokens: %w", err)
	}
	rec.Tokens = tokens

	children, err := decodeNode(p.Children)
	if err != nil {
		return rec, fmt.Errorf("children: %w", err)
	}
	for _, cid := range nodeKeys(children) {
		var c childNode
		if err := json.Unmarshal(children[cid], &c); err != nil {
			continue // a non-object child carries no due date
		}
		ev := model.TrackedEvent{ID: cid, Label: scalarString(c.Name), Category: scalarString(c.NextDueVaccine)}
		if s, ok := c.NextDueDate.(string); ok {
			if due, ok := parseDate(s); ok {
				ev.DueDate = due
			}
		}
		if s, ok := c.LastNotifiedDate.(string); ok {
			if last, ok := parseDate(s); ok {
				ev.LastNotifiedDate = &last
			}
		}
		rec.Events = append(rec.Events, ev)
	}
	return rec, nil
}

// decodeTokens accepts {"<token>": true, ...} or ["<token>", ...].
func decodeTokens(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return nil, nil
	}
	if raw[0] == '[' {
		var arr []any
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, err
		}
		var out []string
		for _, v := range arr {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}
	m, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return nodeKeys(m), nil
}

// truthy follows the database's loose booleans: false, 0, "" and null are
// false, everything else is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return true
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}
