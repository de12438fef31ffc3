package usecase

import (
	"sync"
	"time"
)

const (
	ProgressRunning = "enviando"
	ProgressDone    = "concluido"

	progressRetention = 24 * time.Hour
)

// CampaignOffer é a oferta de uma campanha: plano, preço promocional e validade.
type CampaignOffer struct {
	PlanID     int64      `json:"plan_id"`
	PlanName   string     `json:"plan_name"`
	PriceCents int64      `json:"price_cents"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (o *CampaignOffer) Expired(now time.Time) bool {
	return o != nil && o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

type CampaignProgress struct {
	CampaignID string         `json:"campaign_id"`
	BotID      int64          `json:"bot_id"`
	Target     string         `json:"target"`
	Status     string         `json:"status"`
	TestMode   bool           `json:"test_mode"`
	Total      int            `json:"total"`
	Sent       int            `json:"sent"`
	Blocked    int            `json:"blocked"`
	Failed     int            `json:"failed"`
	Offer      *CampaignOffer `json:"offer,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

func (p CampaignProgress) Processed() int {
	return p.Sent + p.Blocked + p.Failed
}

// ProgressTracker guarda o andamento de cada campanha pelo id. Várias campanhas podem rodar
// ao mesmo tempo sem uma sobrescrever a outra.
type ProgressTracker struct {
	mu        sync.RWMutex
	campaigns map[string]*CampaignProgress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{campaigns: make(map[string]*CampaignProgress)}
}

func (t *ProgressTracker) Begin(p CampaignProgress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(p.StartedAt)
	p.Status = ProgressRunning
	t.campaigns[p.CampaignID] = &p
}

func (t *ProgressTracker) Record(campaignID string, outcome DeliveryOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.campaigns[campaignID]
	if !ok {
		return
	}
	switch outcome {
	case DeliverySent:
		p.Sent++
	case DeliveryBlocked:
		p.Blocked++
	default:
		p.Failed++
	}
}

func (t *ProgressTracker) Finish(campaignID string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.campaigns[campaignID]; ok {
		p.Status = ProgressDone
		p.FinishedAt = &now
	}
}

// Get devolve uma cópia do andamento.
func (t *ProgressTracker) Get(campaignID string) (CampaignProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.campaigns[campaignID]
	if !ok {
		return CampaignProgress{}, false
	}
	return *p, true
}

// Offer devolve a oferta de uma campanha ainda em memória. Cliques chegam antes do registro
// da campanha ser gravado, que só acontece no fim do disparo.
func (t *ProgressTracker) Offer(campaignID string) (*CampaignOffer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.campaigns[campaignID]
	if !ok || p.Offer == nil || p.TestMode {
		return nil, false
	}
	offer := *p.Offer
	return &offer, true
}

func (t *ProgressTracker) prune(now time.Time) {
	for id, p := range t.campaigns {
		if p.FinishedAt != nil && now.Sub(*p.FinishedAt) > progressRetention {
			delete(t.campaigns, id)
		}
	}
}
