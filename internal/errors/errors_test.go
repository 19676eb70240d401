package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilderDefaults(t *testing.T) {
	t.Parallel()

	err := New(NewStd("boom")).Build()

	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
}

func TestErrorBuilderContext(t *testing.T) {
	t.Parallel()

	err := Newf("profile %d missing", 42).
		Component("datastore").
		Category(CategoryNotFound).
		Context("profile_id", 42).
		Build()

	assert.Equal(t, "profile 42 missing", err.Error())
	assert.Equal(t, "datastore", err.Component)
	assert.True(t, IsNotFound(err))

	ctx := err.GetContext()
	require.NotNil(t, ctx)
	assert.Equal(t, 42, ctx["profile_id"])

	// Returned context is a copy
	ctx["profile_id"] = 0
	assert.Equal(t, 42, err.GetContext()["profile_id"])
}

func TestErrorsUnwrap(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("record not found")
	wrapped := New(fmt.Errorf("lookup failed: %w", sentinel)).
		Category(CategoryDatabase).
		Build()

	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, IsCategory(wrapped, CategoryDatabase))
	assert.False(t, IsValidation(wrapped))
}

func TestValidationErrorHelper(t *testing.T) {
	t.Parallel()

	err := ValidationError("confidence %.2f out of range", 1.5)

	assert.True(t, IsValidation(err))
	assert.Equal(t, "confidence 1.50 out of range", err.GetMessage())
}
