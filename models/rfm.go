package models

// Cluster labels assigned from an RFM score.
const (
	ClusterLoyal     = "LOYAL"
	ClusterNew       = "NEW"
	ClusterAtRisk    = "AT_RISK"
	ClusterLost      = "LOST"
	ClusterPromising = "PROMISING"
	ClusterRegular   = "REGULAR"
)

// RFMScore holds the Recency/Frequency/Monetary scores (1-5) and the
// resulting cluster label.
type RFMScore struct {
	R       int    `json:"R"`
	F       int    `json:"F"`
	M       int    `json:"M"`
	Cluster string `json:"cluster"`
}
