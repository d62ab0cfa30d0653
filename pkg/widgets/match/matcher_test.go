package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var typeFields = []string{"type", "category", "meal", "name"}

func TestMatchesOnDateAlone(t *testing.T) {
	m := NewMatcher("date", typeFields)

	data := map[string]interface{}{"date": "2026-08-20", "calories": float64(400)}
	assert.True(t, m.Matches(data, "2026-08-20", ""))
	assert.False(t, m.Matches(data, "2026-08-21", ""))
}

func TestMatchesDatetimeTruncation(t *testing.T) {
	m := NewMatcher("date", typeFields)

	data := map[string]interface{}{"date": "2026-08-20T13:45:00Z"}
	assert.True(t, m.Matches(data, "2026-08-20", ""))
	assert.True(t, m.Matches(data, "2026-08-20 00:00:00", ""))
}

func TestMatchesTypeDiscriminator(t *testing.T) {
	m := NewMatcher("date", typeFields)

	lunch := map[string]interface{}{"date": "2026-08-20", "meal": "lunch"}
	dinner := map[string]interface{}{"date": "2026-08-20", "meal": "dinner"}

	assert.True(t, m.Matches(lunch, "2026-08-20", "lunch"))
	assert.False(t, m.Matches(dinner, "2026-08-20", "lunch"))
	assert.True(t, m.Matches(lunch, "2026-08-20", "Lunch"), "type match is case-insensitive")
}

func TestFirstCandidateFieldWins(t *testing.T) {
	m := NewMatcher("date", typeFields)

	// "type" outranks "meal" in the candidate list, so the discriminator
	// value comes from "type" even when "meal" would match.
	data := map[string]interface{}{
		"date": "2026-08-20",
		"type": "snack",
		"meal": "lunch",
	}
	assert.True(t, m.Matches(data, "2026-08-20", "snack"))
	assert.False(t, m.Matches(data, "2026-08-20", "lunch"))
}

func TestTargetTypeAgainstUntypedItem(t *testing.T) {
	m := NewMatcher("date", typeFields)

	data := map[string]interface{}{"date": "2026-08-20", "hours": float64(7)}
	assert.False(t, m.Matches(data, "2026-08-20", "lunch"))
	assert.True(t, m.Matches(data, "2026-08-20", ""))
}

func TestFindIndexTieBreak(t *testing.T) {
	m := NewMatcher("date", typeFields)

	items := []map[string]interface{}{
		{"date": "2026-08-20", "meal": "breakfast"},
		{"date": "2026-08-20", "meal": "lunch"},
		{"date": "2026-08-21", "meal": "lunch"},
	}

	assert.Equal(t, 1, m.FindIndex(items, "2026-08-20", "lunch"))
	assert.Equal(t, 0, m.FindIndex(items, "2026-08-20", ""))
	assert.Equal(t, -1, m.FindIndex(items, "2026-08-22", "lunch"))
}

func TestFindIndexSkipsNilData(t *testing.T) {
	m := NewMatcher("date", typeFields)

	items := []map[string]interface{}{
		nil,
		{"date": "2026-08-20"},
	}
	assert.Equal(t, 1, m.FindIndex(items, "2026-08-20", ""))
}
