package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLink_CodeAccessor(t *testing.T) {
	t.Run("system_code", func(t *testing.T) {
		var l Link
		l.SetCode(SystemCode("abc123"))

		assert.NotNil(t, l.SystemCode)
		assert.Nil(t, l.CustomSlug)
		assert.Equal(t, Code{Value: "abc123", Origin: CodeOriginSystem}, l.Code())
	})

	t.Run("custom_slug", func(t *testing.T) {
		var l Link
		l.SetCode(CustomCode("launch"))

		assert.Nil(t, l.SystemCode)
		assert.NotNil(t, l.CustomSlug)
		assert.Equal(t, Code{Value: "launch", Origin: CodeOriginCustom}, l.Code())
	})

	t.Run("switching_clears_the_other_column", func(t *testing.T) {
		var l Link
		l.SetCode(SystemCode("abc123"))
		l.SetCode(CustomCode("launch"))

		assert.Nil(t, l.SystemCode)
		assert.Equal(t, "launch", l.Code().Value)
	})

	t.Run("no_code_set", func(t *testing.T) {
		var l Link
		assert.Equal(t, Code{}, l.Code())
	})
}

func TestClickEvent_GetDeviceType(t *testing.T) {
	var e ClickEvent
	assert.Equal(t, "unknown", e.GetDeviceType())

	desktop := "desktop"
	e.DeviceType = &desktop
	assert.Equal(t, "desktop", e.GetDeviceType())
}
