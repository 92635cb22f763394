package coach

import "time"

// AssetAnalysis is the stored row of one asset coach run.
type AssetAnalysis struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID *string   `json:"organization_id"`
	ISIN           string    `json:"isin"`
	AssetName      string    `json:"asset_name"`
	LastAmount     float64   `json:"last_amount"`
	LastFee        float64   `json:"last_fee"`
	Currency       string    `json:"currency"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// Analysis binds the history record of a run to its owner.
func (h HistoryRecord) Analysis(userID string, orgID *string) AssetAnalysis {
	return AssetAnalysis{
		UserID:         userID,
		OrganizationID: orgID,
		ISIN:           h.ISIN,
		AssetName:      h.AssetName,
		LastAmount:     h.Amount,
		LastFee:        h.Fee,
		Currency:       h.Currency,
	}
}
