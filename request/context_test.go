package request

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-campaigns/campaign"
	"github.com/saiset-co/sai-campaigns/transient"
	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

// recordingStore fails the test if it is touched when it should not be.
type recordingStore struct {
	inner campaign.TransientStore
	calls int
}

func (r *recordingStore) Get(ctx context.Context, counters *transient.Counters, name string, target interface{}) (bool, error) {
	r.calls++
	if r.inner == nil {
		return false, nil
	}
	return r.inner.Get(ctx, counters, name, target)
}

func (r *recordingStore) Set(ctx context.Context, counters *transient.Counters, name string, value interface{}) error {
	r.calls++
	if r.inner == nil {
		return nil
	}
	return r.inner.Set(ctx, counters, name, value)
}

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

var trustedInfo = Info{Referer: "https://news.example.com/story", Host: "news.example.com"}

func newTestDeps(store campaign.TransientStore, debug bool) Dependencies {
	clock := &stepClock{now: time.Unix(1700000000, 0), step: 250 * time.Millisecond}
	return Dependencies{
		Store: store,
		Trust: NewRefererVerifier(),
		Debug: debug,
		Clock: clock.Now,
	}
}

func TestUntrustedRequestConcludesImmediately(t *testing.T) {
	store := &recordingStore{}
	rc := New(newTestDeps(store, true), Info{Referer: "https://evil.example.net/", Host: "news.example.com"})

	outcome, concluded := rc.Outcome()
	require.True(t, concluded)
	assert.Equal(t, http.StatusBadRequest, outcome.Status)
	assert.JSONEq(t, `{"error":"invalid_referer"}`, string(outcome.Body))

	_, err := rc.Campaigns()
	assert.True(t, errors.Is(err, types.ErrRequestConcluded))

	assert.Equal(t, outcome, rc.Respond())
	assert.Equal(t, 0, store.calls)
}

func TestMissingRefererIsUntrusted(t *testing.T) {
	rc := New(newTestDeps(&recordingStore{}, false), Info{Host: "news.example.com"})
	outcome, concluded := rc.Outcome()
	require.True(t, concluded)
	assert.Equal(t, http.StatusBadRequest, outcome.Status)
}

func TestRespondWithDebugCounters(t *testing.T) {
	store := &recordingStore{}
	rc := New(newTestDeps(store, true), trustedInfo)

	repo, err := rc.Campaigns()
	require.NoError(t, err)
	record, err := repo.GetCampaignData(context.Background(), "abc123", "42")
	require.NoError(t, err)
	require.NoError(t, rc.Set("campaign", record))

	outcome := rc.Respond()
	assert.Equal(t, http.StatusOK, outcome.Status)

	var body struct {
		Campaign campaign.CampaignRecord `json:"campaign"`
		Debug    transient.Counters      `json:"debug"`
	}
	require.NoError(t, utils.Unmarshal(outcome.Body, &body))
	assert.Equal(t, campaign.CampaignRecord{}, body.Campaign)
	assert.Equal(t, 1700000000.0, body.Debug.StartTime)
	assert.InDelta(t, 0.25, body.Debug.Duration, 1e-6)
	assert.Equal(t, 1, store.calls)
}

func TestRespondWithoutDebug(t *testing.T) {
	rc := New(newTestDeps(&recordingStore{}, false), trustedInfo)
	require.NoError(t, rc.Set("ok", true))

	outcome := rc.Respond()
	assert.JSONEq(t, `{"ok":true}`, string(outcome.Body))
}

func TestTerminalExclusivity(t *testing.T) {
	rc := New(newTestDeps(&recordingStore{}, false), trustedInfo)
	require.NoError(t, rc.Set("a", 1))

	first := rc.Error("store_unavailable")
	assert.Equal(t, http.StatusBadRequest, first.Status)
	assert.JSONEq(t, `{"error":"store_unavailable"}`, string(first.Body))

	assert.Equal(t, first, rc.Respond())
	assert.Equal(t, first, rc.Error("other"))
	assert.ErrorIs(t, rc.Set("b", 2), types.ErrRequestConcluded)
	assert.Equal(t, map[string]interface{}{"a": 1}, rc.Payload())
}

func TestUnserializablePayloadBecomesInternalError(t *testing.T) {
	rc := New(newTestDeps(&recordingStore{}, false), trustedInfo)
	require.NoError(t, rc.Set("bad", make(chan int)))

	outcome := rc.Respond()
	assert.Equal(t, http.StatusBadRequest, outcome.Status)
	assert.JSONEq(t, `{"error":"internal_error"}`, string(outcome.Body))
}
