package message

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
)

func TestRequest_Validate(t *testing.T) {
	speed := 1.5
	badSpeed := -1.0
	profile := domain.ProfileStudy
	badProfile := domain.Profile("turbo")
	identity := domain.ContentIdentity{ContentID: "v1"}

	tests := []struct {
		name    string
		request Request
		wantErr bool
	}{
		{"get_speed", Request{Kind: KindGetSpeed}, false},
		{"set_speed with payload", Request{Kind: KindSetSpeed, Speed: &speed}, false},
		{"set_speed missing payload", Request{Kind: KindSetSpeed}, true},
		{"set_speed negative", Request{Kind: KindSetSpeed, Speed: &badSpeed}, true},
		{"update_settings with patch", Request{Kind: KindUpdateSettings, Settings: &domain.Patch{}}, false},
		{"update_settings missing patch", Request{Kind: KindUpdateSettings}, true},
		{"set_profile", Request{Kind: KindSetProfile, Profile: &profile}, false},
		{"set_profile unknown", Request{Kind: KindSetProfile, Profile: &badProfile}, true},
		{"set_profile missing", Request{Kind: KindSetProfile}, true},
		{"video_changed", Request{Kind: KindVideoChanged, Identity: &identity}, false},
		{"video_changed missing identity", Request{Kind: KindVideoChanged}, true},
		{"unknown kind", Request{Kind: Kind("explode")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKind_TabTargeted(t *testing.T) {
	assert.True(t, KindGetSpeed.TabTargeted())
	assert.True(t, KindSetSpeed.TabTargeted())
	assert.True(t, KindIncreaseSpeed.TabTargeted())
	assert.True(t, KindDecreaseSpeed.TabTargeted())
	assert.False(t, KindGetSettings.TabTargeted())
	assert.False(t, KindVideoChanged.TabTargeted())
}
