package entity

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrCampaignNotFound = errors.New("campanha não encontrada")

const (
	CampaignTypeMassive   = "massivo"
	CampaignStatusDone    = "concluido"
	CampaignStatusRunning = "enviando"
)

// CampaignConfig é a mensagem e a oferta serializadas junto da campanha, para reenvios.
type CampaignConfig struct {
	Message         string `json:"msg"`
	Media           string `json:"media,omitempty"`
	PlanID          int64  `json:"plan_id,omitempty"`
	PromoPriceCents int64  `json:"promo_price,omitempty"`
}

// RemarketingCampaign é o registro (só de inserção) de um disparo concluído.
type RemarketingCampaign struct {
	ID              int64          `json:"id"`
	BotID           int64          `json:"bot_id"`
	CampaignID      string         `json:"campaign_id"`
	Target          string         `json:"target"`
	Type            string         `json:"type"`
	Config          CampaignConfig `json:"config"`
	Status          string         `json:"status"`
	PlanID          *int64         `json:"plano_id,omitempty"`
	PromoPriceCents *int64         `json:"promo_price,omitempty"`
	ExpiresAt       *time.Time     `json:"expiration_at,omitempty"`
	TotalLeads      int            `json:"total_leads"`
	SentSuccess     int            `json:"sent_success"`
	BlockedCount    int            `json:"blocked_count"`
	CreatedAt       time.Time      `json:"data_envio"`
}

func (c *RemarketingCampaign) HasOffer() bool {
	return c.PlanID != nil && *c.PlanID > 0
}

func (c *RemarketingCampaign) OfferExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// ConfigJSON devolve a configuração como JSON para a coluna config.
func (c *RemarketingCampaign) ConfigJSON() (string, error) {
	b, err := json.Marshal(c.Config)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseCampaignConfig aceita o formato atual e o antigo, em que o JSON era gravado como string dentro de string.
func ParseCampaignConfig(raw string) CampaignConfig {
	var cfg CampaignConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err == nil {
		return cfg
	}
	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		_ = json.Unmarshal([]byte(inner), &cfg)
	}
	return cfg
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *RemarketingCampaign) error
	FindByID(ctx context.Context, id int64) (*RemarketingCampaign, error)
	FindByCampaignID(ctx context.Context, campaignID string) (*RemarketingCampaign, error)
	ListByBot(ctx context.Context, botID int64, limit, offset int) ([]*RemarketingCampaign, error)
	Delete(ctx context.Context, id int64) error
}
