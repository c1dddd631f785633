package campaign

import (
	"context"
	"time"

	"github.com/saiset-co/sai-campaigns/transient"
	"github.com/saiset-co/sai-campaigns/types"
)

type TransientStore interface {
	Get(ctx context.Context, counters *transient.Counters, name string, target interface{}) (bool, error)
	Set(ctx context.Context, counters *transient.Counters, name string, value interface{}) error
}

// Repository reads and writes campaign and client records for one request,
// tallying traffic into that request's counters.
//
// Saves overwrite the whole record. Two requests updating the same record
// concurrently are last-writer-wins, so view counts are approximate.
type Repository struct {
	store    TransientStore
	counters *transient.Counters
}

func NewRepository(store TransientStore, counters *transient.Counters) *Repository {
	return &Repository{
		store:    store,
		counters: counters,
	}
}

// GetCampaignData never reports absence: a missing record comes back zeroed.
func (r *Repository) GetCampaignData(ctx context.Context, clientID, campaignID string) (CampaignRecord, error) {
	if err := validateIDs(clientID, campaignID); err != nil {
		return CampaignRecord{}, err
	}

	var raw interface{}
	found, err := r.store.Get(ctx, r.counters, CampaignKey(clientID, campaignID), &raw)
	if err != nil || !found {
		return CampaignRecord{}, err
	}

	data, _ := raw.(map[string]interface{})
	return campaignRecordFrom(data), nil
}

func (r *Repository) SaveCampaignData(ctx context.Context, clientID, campaignID string, record CampaignRecord) error {
	if err := validateIDs(clientID, campaignID); err != nil {
		return err
	}

	return r.store.Set(ctx, r.counters, CampaignKey(clientID, campaignID), record)
}

func (r *Repository) GetClientData(ctx context.Context, clientID string) (ClientRecord, error) {
	if err := validateIDs(clientID); err != nil {
		return nil, err
	}

	var raw interface{}
	found, err := r.store.Get(ctx, r.counters, ClientKey(clientID), &raw)
	if err != nil {
		return nil, err
	}

	data, ok := raw.(map[string]interface{})
	if !found || !ok || len(data) == 0 {
		return DefaultClientRecord(), nil
	}

	record := ClientRecord(data)
	if _, exists := record[FieldSuppressedNewsletterCampaign]; !exists {
		record[FieldSuppressedNewsletterCampaign] = false
	}

	return record, nil
}

func (r *Repository) SaveClientData(ctx context.Context, clientID string, record ClientRecord) error {
	if err := validateIDs(clientID); err != nil {
		return err
	}

	if record == nil {
		record = DefaultClientRecord()
	}

	return r.store.Set(ctx, r.counters, ClientKey(clientID), record)
}

// RecordView bumps the view count and stamps the view time.
func (r *Repository) RecordView(ctx context.Context, clientID, campaignID string, now time.Time) (CampaignRecord, error) {
	record, err := r.GetCampaignData(ctx, clientID, campaignID)
	if err != nil {
		return CampaignRecord{}, err
	}

	record.Count++
	record.LastViewed = now.Unix()

	if err = r.SaveCampaignData(ctx, clientID, campaignID, record); err != nil {
		return CampaignRecord{}, err
	}

	return record, nil
}

// SuppressCampaign permanently dismisses a campaign for a client.
func (r *Repository) SuppressCampaign(ctx context.Context, clientID, campaignID string) (CampaignRecord, error) {
	record, err := r.GetCampaignData(ctx, clientID, campaignID)
	if err != nil {
		return CampaignRecord{}, err
	}

	if record.SuppressForever {
		return record, nil
	}

	record.SuppressForever = true
	if err = r.SaveCampaignData(ctx, clientID, campaignID, record); err != nil {
		return CampaignRecord{}, err
	}

	return record, nil
}

// SuppressNewsletter marks the client as signed up, keeping every other field.
func (r *Repository) SuppressNewsletter(ctx context.Context, clientID string) (ClientRecord, error) {
	record, err := r.GetClientData(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if record.SuppressedNewsletterCampaign() {
		return record, nil
	}

	record[FieldSuppressedNewsletterCampaign] = true
	if err = r.SaveClientData(ctx, clientID, record); err != nil {
		return nil, err
	}

	return record, nil
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return types.Errorf(types.ErrInvalidParameter, "identifier is empty")
		}
	}
	return nil
}
