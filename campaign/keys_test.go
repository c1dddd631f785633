package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeysAreInjectiveAndDisjoint(t *testing.T) {
	ids := []string{"", "a", "a-b", "b", "b-popup", "popup", "1:a", "a-b-popup", "42", "s", "-"}

	seen := make(map[string]string)
	for _, client := range ids {
		for _, campaign := range ids {
			key := CampaignKey(client, campaign)
			origin := "campaign " + client + "|" + campaign
			if prev, exists := seen[key]; exists {
				t.Fatalf("%s collides with %s on %q", origin, prev, key)
			}
			seen[key] = origin
		}
	}

	for _, client := range ids {
		key := ClientKey(client)
		if prev, exists := seen[key]; exists {
			t.Fatalf("client %s collides with %s on %q", client, prev, key)
		}
		seen[key] = "client " + client
	}
}

func TestKeyShapes(t *testing.T) {
	assert.Equal(t, "6:abc123-42-popup", CampaignKey("abc123", "42"))
	assert.Equal(t, "6:abc123-popups", ClientKey("abc123"))
}
