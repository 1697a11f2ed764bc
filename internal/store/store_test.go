package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type account struct {
	id string
}

func (a account) OwnerType() string { return "account" }
func (a account) OwnerID() string   { return a.id }

func TestRefOf(t *testing.T) {
	ref := RefOf(account{id: "42"})

	assert.Equal(t, OwnerRef{Type: "account", ID: "42"}, ref)
	assert.Equal(t, "account#42", ref.String())
}

func TestRefOfOwnerRef(t *testing.T) {
	ref := OwnerRef{Type: "user", ID: "7"}

	assert.Equal(t, ref, RefOf(ref))
	assert.Equal(t, "user", ref.OwnerType())
	assert.Equal(t, "7", ref.OwnerID())
}
