package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/AngelCh415/campaign-analyzer/internal/dimension"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

// Summarize computes the headline metrics over recs. Conversion rate is
// click-based, as in every table row.
func Summarize(recs []models.CampaignRecord) models.Summary {
	b := newBucket("", "")
	for _, r := range recs {
		b.add(r)
	}
	row := b.Row()
	return models.Summary{
		Records:              b.Records,
		Impressions:          row.Impressions,
		Clicks:               row.Clicks,
		Revenue:              row.Revenue,
		Conversions:          row.Conversions,
		PostClickConversions: row.PostClickConversions,
		PostViewConversions:  row.PostViewConversions,
		CTR:                  row.CTR,
		CPM:                  row.CPM,
		Viewability:          row.Viewability,
		ConversionRate:       row.ConversionRate,
	}
}

// RadarAxes names the axes of AudienceComparison.Radar values, in order.
var RadarAxes = []string{"CTR (%)", "Viewability (%)", "Conv. Rate (%)", "CPM Efficiency"}

// AudienceComparison contrasts 1st Party with Converged audiences.
type AudienceComparison struct {
	FirstParty models.Summary `json:"first_party"`
	Converged  models.Summary `json:"converged"`
	Axes       []string       `json:"axes"`
	// Radar scores each axis 0..100 relative to the better of the two.
	Radar map[models.AudienceType][]float64 `json:"radar"`
}

// CompareAudiences summarizes both audience groups and scales their CTR,
// viewability, conversion rate and CPM efficiency (100/CPM) against the
// larger of the pair, with a floor of 1 on each scale.
func CompareAudiences(recs []models.CampaignRecord) AudienceComparison {
	var fp, conv []models.CampaignRecord
	for _, r := range recs {
		switch r.AudienceType {
		case models.AudienceFirstParty:
			fp = append(fp, r)
		case models.AudienceConverged:
			conv = append(conv, r)
		}
	}
	a, b := Summarize(fp), Summarize(conv)

	eff := func(s models.Summary) float64 {
		if s.CPM <= 0 {
			return 0
		}
		return 100 / s.CPM
	}
	maxCTR := max(a.CTR, b.CTR, 1)
	maxView := max(a.Viewability, b.Viewability, 1)
	maxConv := max(a.ConversionRate, b.ConversionRate, 1)
	maxEff := max(eff(a), eff(b), 1)
	score := func(s models.Summary) []float64 {
		return []float64{
			round2(s.CTR / maxCTR * 100),
			round2(s.Viewability / maxView * 100),
			round2(s.ConversionRate / maxConv * 100),
			round2(eff(s) / maxEff * 100),
		}
	}
	return AudienceComparison{
		FirstParty: a,
		Converged:  b,
		Axes:       RadarAxes,
		Radar: map[models.AudienceType][]float64{
			models.AudienceFirstParty: score(a),
			models.AudienceConverged:  score(b),
		},
	}
}

// FloodlightReport breaks DV360 conversions down by floodlight activity.
type FloodlightReport struct {
	Activities []models.Row `json:"activities"`

	OrderConversions float64 `json:"order_conversions"`
	LeadConversions  float64 `json:"lead_conversions"`
	CostPerOrder     float64 `json:"cost_per_order"`
	CostPerLead      float64 `json:"cost_per_lead"`
}

// Floodlight aggregates the records that carry a floodlight activity.
// Order and lead attribution is decided per row from the activity name; a
// row can count toward both. Cost per order is the revenue of order rows
// over their conversions, likewise for leads.
func Floodlight(recs []models.CampaignRecord) FloodlightReport {
	var (
		tagged              []models.CampaignRecord
		orderRev, orderConv decimal.Decimal
		leadRev, leadConv   decimal.Decimal
	)
	for _, r := range recs {
		if r.FloodlightActivity == "" {
			continue
		}
		tagged = append(tagged, r)
		if dimension.IsOrderActivity(r.FloodlightActivity) {
			orderRev = orderRev.Add(r.Revenue)
			orderConv = orderConv.Add(r.TotalConversions)
		}
		if dimension.IsLeadActivity(r.FloodlightActivity) {
			leadRev = leadRev.Add(r.Revenue)
			leadConv = leadConv.Add(r.TotalConversions)
		}
	}
	return FloodlightReport{
		Activities:       Table(tagged, ByFloodlightActivity),
		OrderConversions: round2(orderConv.InexactFloat64()),
		LeadConversions:  round2(leadConv.InexactFloat64()),
		CostPerOrder:     round2(CPA(orderRev, orderConv)),
		CostPerLead:      round2(CPA(leadRev, leadConv)),
	}
}
