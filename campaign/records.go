package campaign

const (
	FieldCount                        = "count"
	FieldLastViewed                   = "last_viewed"
	FieldSuppressForever              = "suppress_forever"
	FieldSuppressedNewsletterCampaign = "suppressed_newsletter_campaign"
)

type CampaignRecord struct {
	Count           int64 `json:"count"`
	LastViewed      int64 `json:"last_viewed"`
	SuppressForever bool  `json:"suppress_forever"`
}

// ClientRecord is open-ended client state. Only the newsletter suppression
// field has a fixed meaning.
type ClientRecord map[string]interface{}

func DefaultClientRecord() ClientRecord {
	return ClientRecord{FieldSuppressedNewsletterCampaign: false}
}

func (r ClientRecord) SuppressedNewsletterCampaign() bool {
	return CoerceBool(r[FieldSuppressedNewsletterCampaign])
}

func campaignRecordFrom(data map[string]interface{}) CampaignRecord {
	return CampaignRecord{
		Count:           nonNegative(CoerceInt(data[FieldCount])),
		LastViewed:      nonNegative(CoerceInt(data[FieldLastViewed])),
		SuppressForever: CoerceBool(data[FieldSuppressForever]),
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
