package services

import (
	"github.com/shopspring/decimal"

	"github.com/anacarla/crm-api/models"
)

// Recency score from days since the last delivered order; unknown recency scores 1.
func recencyScore(recencyDays *int) int {
	if recencyDays == nil {
		return 1
	}
	switch d := *recencyDays; {
	case d <= 7:
		return 5
	case d <= 14:
		return 4
	case d <= 30:
		return 3
	case d <= 60:
		return 2
	default:
		return 1
	}
}

func frequencyScore(totalOrders int) int {
	switch {
	case totalOrders >= 20:
		return 5
	case totalOrders >= 10:
		return 4
	case totalOrders >= 5:
		return 3
	case totalOrders >= 2:
		return 2
	default:
		return 1
	}
}

var monetaryBands = []struct {
	min   decimal.Decimal
	score int
}{
	{decimal.NewFromInt(50), 5},
	{decimal.NewFromInt(35), 4},
	{decimal.NewFromInt(25), 3},
	{decimal.NewFromInt(15), 2},
}

// Monetary score from the average ticket; unknown ticket scores 1.
func monetaryScore(avgTicket *decimal.Decimal) int {
	if avgTicket == nil {
		return 1
	}
	for _, band := range monetaryBands {
		if avgTicket.GreaterThanOrEqual(band.min) {
			return band.score
		}
	}
	return 1
}

// clusterFor labels an R/F/M triple. Rules are checked in order; the first
// match wins.
func clusterFor(r, f, m int) string {
	switch {
	case r >= 4 && f >= 4:
		return models.ClusterLoyal
	case r >= 4 && f <= 2:
		return models.ClusterNew
	case r <= 2 && f >= 4:
		return models.ClusterAtRisk
	case r <= 2 && f <= 2:
		return models.ClusterLost
	case float64(r+f+m)/3 >= 3.5:
		return models.ClusterPromising
	default:
		return models.ClusterRegular
	}
}

// ScoreRFM computes the RFM score for the given metrics
func ScoreRFM(recencyDays *int, totalOrders int, avgTicket *decimal.Decimal) *models.RFMScore {
	r := recencyScore(recencyDays)
	f := frequencyScore(totalOrders)
	m := monetaryScore(avgTicket)
	return &models.RFMScore{R: r, F: f, M: m, Cluster: clusterFor(r, f, m)}
}
