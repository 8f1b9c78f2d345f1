package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vstyler/internal/domain"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	require.Len(t, c.Atmospheres, 9)
	assert.Equal(t, "grand_cafe", c.DefaultAtmosphere().ID)
	assert.Equal(t, "Grand Royal Cafe", c.DefaultAtmosphere().Name.In(domain.LanguageEnglish))
	assert.Equal(t, "Cà Phê Hoàng Gia", c.DefaultAtmosphere().Name.In(domain.LanguageVietnamese))
	assert.Contains(t, c.Atmosphere("private_jet").Prompt, "Gulfstream G700")

	assert.Equal(t, []string{"Elegant Standing", "Dynamic Walk", "Candid Sitting", "High-Fashion Lean", "Power Pose"},
		c.Poses(domain.LanguageEnglish))
	assert.Len(t, c.Poses(domain.LanguageVietnamese), domain.DefaultPoseCount)

	assert.Equal(t, "Elite Look", c.Label(domain.LanguageEnglish).EliteLook)
	assert.Equal(t, "Dáng Elite", c.Label(domain.LanguageVietnamese).EliteLook)
}

func TestLoad_StatusMessage(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	msg := c.StatusMessage(domain.LanguageEnglish, c.Atmosphere("monaco_yacht"), 1, 5)
	assert.Equal(t, "SYNTHESIZING ATMOSPHERE SUPER YACHT DECK... [2/5]", msg)

	assert.Equal(t, "Người Mẫu Elite 3", c.SuggestProfileName(domain.LanguageVietnamese, 2))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"壊れたYAML", "atmospheres: [\n"},
		{"雰囲気なし", "atmospheres: []\n"},
		{"ID重複", `
atmospheres:
  - id: a
  - id: a
`},
		{"ポーズ不足", `
atmospheres:
  - id: a
default_poses:
  en: [one]
  vi: [one]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
