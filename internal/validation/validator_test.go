package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
	"github.com/WaelFa/SpeedyPaws/internal/validation"
)

type speedRequest struct {
	Speed   float64 `json:"speed" validate:"required,gte=0.1,lte=5"`
	Profile string  `json:"profile" validate:"omitempty,oneof=study chill review custom"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(speedRequest{Speed: 1.5, Profile: "study"})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name     string
		req      speedRequest
		wantField string
	}{
		{"speed too high", speedRequest{Speed: 9}, "speed"},
		{"speed missing", speedRequest{}, "speed"},
		{"unknown profile", speedRequest{Speed: 1.0, Profile: "turbo"}, "profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			var coded *apperrors.Error
			require.ErrorAs(t, err, &coded)
			fields, ok := coded.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidator_UsesJSONTagNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(speedRequest{Speed: 0})
	require.Error(t, err)

	var coded *apperrors.Error
	require.ErrorAs(t, err, &coded)
	fields := coded.Details.(map[string]string)
	_, hasGoName := fields["Speed"]
	assert.False(t, hasGoName)
}
