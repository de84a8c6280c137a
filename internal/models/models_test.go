package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignRecordJSONDate(t *testing.T) {
	r := CampaignRecord{
		Date:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Platform: PlatformSocial,
		Campaign: "Spring",
		Revenue:  decimal.RequireFromString("12.5"),
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"date":"2024-01-02"`)
	assert.Contains(t, string(b), `"revenue":"12.5"`)

	var back CampaignRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, r.Date.Equal(back.Date))
	assert.Equal(t, "Spring", back.Campaign)
	assert.True(t, r.Revenue.Equal(back.Revenue))

	assert.Error(t, json.Unmarshal([]byte(`{"date":"02/01/2024"}`), &back))
}

func TestParsePlatform(t *testing.T) {
	p, ok := ParsePlatform("google-ads")
	assert.True(t, ok)
	assert.Equal(t, PlatformGoogleAds, p)
	assert.Equal(t, "Google Ads", p.DisplayName())

	_, ok = ParsePlatform("all")
	assert.False(t, ok)
	assert.Equal(t, "x", Platform("x").DisplayName())
}

func TestParseAudienceType(t *testing.T) {
	a, ok := ParseAudienceType("Converged")
	assert.True(t, ok)
	assert.Equal(t, AudienceConverged, a)

	_, ok = ParseAudienceType("converged")
	assert.False(t, ok)
	_, ok = ParseAudienceType("foo")
	assert.False(t, ok)
}
