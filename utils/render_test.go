package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutesStringValues(t *testing.T) {
	out := Render("Hi {name}, welcome to {city}!", map[string]interface{}{
		"name": "Dana",
		"city": "Lisbon",
	})
	assert.Equal(t, "Hi Dana, welcome to Lisbon!", out)
}

func TestRenderLeavesNonStringValuesVerbatim(t *testing.T) {
	out := Render("You have {count} points, {name}.", map[string]interface{}{
		"count": 7,
		"name":  "Dana",
	})
	assert.Equal(t, "You have {count} points, Dana.", out)
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	out := Render("Hi {name}", nil)
	assert.Equal(t, "Hi {name}", out)
}

func TestRenderRepeatedPlaceholder(t *testing.T) {
	out := Render("{x} and {x}", map[string]interface{}{"x": "again"})
	assert.Equal(t, "again and again", out)
}
