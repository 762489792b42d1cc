package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want string
	}{
		{ErrorTypeConfiguration, "CONFIGURATION"},
		{ErrorTypeResolution, "RESOLUTION"},
		{ErrorTypeAsset, "ASSET"},
		{ErrorTypeIO, "IO"},
		{ErrorTypeValidation, "VALIDATION"},
		{ErrorTypeFinalized, "FINALIZED"},
		{ErrorType(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.et.String())
	}
}

func TestRecoverable(t *testing.T) {
	assert.True(t, New(ErrorTypeAsset, "logo missing").Recoverable)
	assert.True(t, New(ErrorTypeConfiguration, "no template").Recoverable)
	assert.False(t, New(ErrorTypeIO, "disk full").Recoverable)
	assert.False(t, New(ErrorTypeResolution, "no project").Recoverable)
}

func TestWrapAndClassify(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(ErrorTypeIO, "cannot create temp file", cause).WithContext("/tmp/x")

	assert.Equal(t, "[IO] cannot create temp file: /tmp/x: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("export: %w", err)
	assert.Equal(t, ErrorTypeIO, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrorTypeIO))
	assert.False(t, Is(wrapped, ErrorTypeAsset))
	assert.False(t, Is(nil, ErrorTypeUnknown))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(cause))
}

func TestCollection(t *testing.T) {
	c := NewCollection()
	assert.Equal(t, "No warnings", c.Summary())

	c.Add(New(ErrorTypeAsset, "logo unavailable"))
	c.Add(New(ErrorTypeResolution, "machine skipped").WithContext("m1"))

	assert.Equal(t, 2, c.Count())
	assert.Equal(t, "Found 2 warning(s)", c.Summary())
	assert.Equal(t, []string{"[ASSET] logo unavailable", "[RESOLUTION] machine skipped: m1"}, c.Messages())
}
