// Package match locates widget data items by their date and an optional
// type-like discriminator. Items carry no rigid primary key in their data
// payload, so update and delete operations identify their target by exact
// equality on the schema's date field, optionally narrowed by a ranked
// list of candidate discriminator fields.
package match

import (
	"fmt"
	"strings"
)

// Matcher resolves data operations against existing items.
type Matcher struct {
	dateField  string
	typeFields []string
}

// NewMatcher builds a matcher for a widget schema. dateField is the
// schema's date-typed field; typeFields is the ranked candidate list of
// discriminator field names (first match wins).
func NewMatcher(dateField string, typeFields []string) *Matcher {
	return &Matcher{
		dateField:  dateField,
		typeFields: typeFields,
	}
}

// normalize renders a data value for comparison. Dates may arrive as
// strings and numbers as float64 after JSON decoding.
func normalize(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// dateOf extracts the comparable date value from an item's data,
// truncating datetime strings to their date part.
func (m *Matcher) dateOf(data map[string]interface{}) string {
	raw := normalize(data[m.dateField])
	if len(raw) > 10 && (raw[10] == 'T' || raw[10] == ' ') {
		return raw[:10]
	}
	return raw
}

// typeOf returns the value of the first candidate discriminator field
// present with a non-empty value.
func (m *Matcher) typeOf(data map[string]interface{}) (string, bool) {
	for _, field := range m.typeFields {
		if v, ok := data[field]; ok {
			if s := normalize(v); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// Matches reports whether the item data satisfies the operation target.
// An empty targetType means match on date alone.
func (m *Matcher) Matches(data map[string]interface{}, targetDate, targetType string) bool {
	if len(targetDate) > 10 && (targetDate[10] == 'T' || targetDate[10] == ' ') {
		targetDate = targetDate[:10]
	}
	if m.dateOf(data) != strings.TrimSpace(targetDate) {
		return false
	}
	if targetType == "" {
		return true
	}
	itemType, ok := m.typeOf(data)
	if !ok {
		return false
	}
	return strings.EqualFold(itemType, strings.TrimSpace(targetType))
}

// FindIndex returns the index of the first item whose data matches the
// target, or -1 when nothing matches. decode failures are skipped.
func (m *Matcher) FindIndex(items []map[string]interface{}, targetDate, targetType string) int {
	for i, data := range items {
		if data == nil {
			continue
		}
		if m.Matches(data, targetDate, targetType) {
			return i
		}
	}
	return -1
}
