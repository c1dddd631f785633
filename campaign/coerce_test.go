package campaign

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int64
	}{
		{nil, 0},
		{true, 1},
		{false, 0},
		{float64(3.9), 3},
		{float64(-2.5), -2},
		{math.NaN(), 0},
		{"12", 12},
		{"  7 views", 7},
		{"-4", -4},
		{"abc", 0},
		{"", 0},
		{"1700000000", 1700000000},
		{map[string]interface{}{}, 0},
		{map[string]interface{}{"a": 1}, 1},
		{[]interface{}{"x"}, 1},
		{int64(9), 9},
		{json.Number("9007199254740993"), 9007199254740993},
		{json.Number("12.8"), 12},
		{json.Number("1e400"), math.MaxInt64},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, CoerceInt(c.in), "input %#v", c.in)
	}
}

func TestCoerceBool(t *testing.T) {
	truthy := []interface{}{true, float64(1), json.Number("2"), "1", "yes", "false", []interface{}{0}, map[string]interface{}{"a": nil}}
	falsy := []interface{}{nil, false, float64(0), json.Number("0"), "", "0", []interface{}{}, map[string]interface{}{}}

	for _, v := range truthy {
		assert.True(t, CoerceBool(v), "input %#v", v)
	}
	for _, v := range falsy {
		assert.False(t, CoerceBool(v), "input %#v", v)
	}
}

func TestCampaignRecordFromLooseData(t *testing.T) {
	record := campaignRecordFrom(map[string]interface{}{
		"count":            "5",
		"last_viewed":      float64(1700000000.7),
		"suppress_forever": float64(1),
		"extra":            "ignored",
	})
	assert.Equal(t, CampaignRecord{Count: 5, LastViewed: 1700000000, SuppressForever: true}, record)

	assert.Equal(t, CampaignRecord{}, campaignRecordFrom(nil))
	assert.Equal(t, CampaignRecord{}, campaignRecordFrom(map[string]interface{}{"count": "-3"}))
}
