package campaign

import (
	"strconv"
)

// CampaignKey names the per-(client, campaign) transient. The client id is
// length-prefixed so no pair of ids can produce the same key.
func CampaignKey(clientID, campaignID string) string {
	return strconv.Itoa(len(clientID)) + ":" + clientID + "-" + campaignID + "-popup"
}

// ClientKey names the per-client transient. It ends in "-popups" and so never
// matches a CampaignKey.
func ClientKey(clientID string) string {
	return strconv.Itoa(len(clientID)) + ":" + clientID + "-popups"
}
