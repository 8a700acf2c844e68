package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecipientPrefersPhone(t *testing.T) {
	c := Contact{"phone": "+15550001", "username": "@dana"}
	assert.Equal(t, "+15550001", c.Recipient())
}

func TestRecipientFallsBackToUsername(t *testing.T) {
	c := Contact{"username": "@dana", "first_name": "Dana"}
	assert.Equal(t, "@dana", c.Recipient())
}

func TestRecipientEmptyWhenUnaddressable(t *testing.T) {
	assert.Empty(t, Contact{"first_name": "Dana"}.Recipient())
	assert.Empty(t, Contact{"phone": ""}.Recipient())
	assert.Empty(t, Contact{"phone": 123}.Recipient())
}

func TestRecipientCountSkipsUnaddressable(t *testing.T) {
	list := ContactList{Contacts: []Contact{
		{"phone": "+15550001"},
		{"username": "@dana"},
		{"first_name": "nameless"},
	}}
	assert.Equal(t, 2, list.RecipientCount())
}
