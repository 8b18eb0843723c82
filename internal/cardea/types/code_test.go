package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	code, ok := ParseCode("010125SITEA12345")
	require.True(t, ok)
	assert.Equal(t, "010125", code.Date)
	assert.Equal(t, "SITE", code.Site)
	assert.Equal(t, "A1", code.Registry)
	assert.Equal(t, "2345", code.Serial)
}

func TestParseCode_BadLength(t *testing.T) {
	for _, raw := range []string{"", "2507231234ABCD", "010125SITEA123456", "123"} {
		_, ok := ParseCode(raw)
		assert.False(t, ok, "raw=%q", raw)
	}
}

func TestDateValid(t *testing.T) {
	tests := []struct {
		name string
		date string
		want bool
	}{
		{"plain", "010125", true},
		{"bounds", "311250", true},
		{"feb 30 passes, plausibility only", "300224", true},
		{"day zero", "000125", false},
		{"day 32", "320125", false},
		{"month zero", "010025", false},
		{"month 13", "011325", false},
		{"year below window", "010122", false},
		{"year above window", "010151", false},
		{"not digits", "ab0125", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ParseCode(tt.date + "SITEA12345")
			require.True(t, ok)
			assert.Equal(t, tt.want, code.DateValid(23, 50))
		})
	}
}

func TestMasterCode(t *testing.T) {
	assert.Equal(t, "123456SITE123456", MasterCode("SITE"))
}

func TestIsMasterForm(t *testing.T) {
	assert.True(t, IsMasterForm("123456SITE123456"))
	assert.True(t, IsMasterForm("123456123456")) // degenerate empty site
	assert.False(t, IsMasterForm("123456SITE123457"))
	assert.False(t, IsMasterForm("010125SITEA12345"))
	assert.False(t, IsMasterForm("12345612345")) // too short to carry both affixes
}
