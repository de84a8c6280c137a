package dimension

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractors(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string) (string, bool)
		input  string
		want   string
		wantOK bool
	}{
		{"campaign id marker", CampaignID, "ACME_CID123_Search", "123", true},
		{"campaign id phrase", CampaignID, "Campaign ID: 4455 Spring", "4455", true},
		{"campaign id long number", CampaignID, "ACME_20240115_987654321", "20240115", true},
		{"campaign id none", CampaignID, "ACME_Search_2024", "", false},
		{"campaign id marker inside word", CampaignID, "Acid123", "", false},
		{"amp id", AmpID, "LI_AMP42_Auto", "42", true},
		{"amp id with suffix", AmpID, "amp-id 77 retarget", "77", true},
		{"amp none", AmpID, "Campaign_Amplify", "", false},
		{"audience name", AudienceName, "LI_aud_Shoppers_1P", "Shoppers", true},
		{"audience phrase", AudienceName, "Audience: InMarketAuto", "InMarketAuto", true},
		{"audience none", AudienceName, "Audio_Spots", "", false},
		{"empty", CampaignID, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fn(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFloodlightClassifiers(t *testing.T) {
	assert.True(t, IsOrderActivity("Online Purchase"))
	assert.True(t, IsOrderActivity("ORDER_CONFIRM"))
	assert.True(t, IsOrderActivity("buy-now"))
	assert.False(t, IsOrderActivity("Newsletter Signup"))

	assert.True(t, IsLeadActivity("Newsletter Signup"))
	assert.True(t, IsLeadActivity("Contact Us"))
	assert.True(t, IsLeadActivity("Lead Form"))
	assert.False(t, IsLeadActivity("Homepage Visit"))
	assert.False(t, IsLeadActivity(""))
	assert.True(t, IsLeadActivity("Platform Visit"), "substring match on form")
	assert.False(t, IsOrderActivity(""))
}
