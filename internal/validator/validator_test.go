package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	t.Run("keeps first message per key", func(t *testing.T) {
		v := New()
		v.AddError("title", "must be provided")
		v.AddError("title", "second")
		assert.False(t, v.IsValid())
		assert.Equal(t, "must be provided", v.Errors["title"])
	})

	t.Run("blank and email checks", func(t *testing.T) {
		v := New()
		v.CheckNotBlank("   ", "name", "must be provided")
		v.CheckEmail("not-an-email", "email", "must be a valid email address")
		v.CheckEmail("a@b.co", "other", "must be a valid email address")
		assert.Len(t, v.Errors, 2)
		assert.NotContains(t, v.Errors, "other")
	})

	t.Run("permitted values", func(t *testing.T) {
		assert.True(t, PermittedValue("png", "png", "gif"))
		assert.False(t, PermittedValue(7, 1, 2))
	})
}
