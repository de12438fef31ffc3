package entity

import (
	"context"
	"errors"
	"time"
)

var ErrLeadNotFound = errors.New("lead não encontrado")

const (
	LeadStageCold = "lead_frio"
	LeadStageHot  = "lead_quente"
)

// Lead é um contato que só deu /start no bot (topo do funil). Vira Order no primeiro checkout.
type Lead struct {
	ID                int64      `json:"id"`
	BotID             int64      `json:"bot_id"`
	UserID            string     `json:"user_id"`
	Name              string     `json:"nome,omitempty"`
	Username          string     `json:"username,omitempty"`
	Stage             string     `json:"funil_stage"`
	FirstContactAt    time.Time  `json:"primeiro_contato"`
	LastContactAt     time.Time  `json:"ultimo_contato"`
	TotalRemarketings int        `json:"total_remarketings"`
	LastRemarketingAt *time.Time `json:"ultimo_remarketing,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type LeadRepositoryInterface interface {
	// Upsert cria o lead ou atualiza nome/username/último contato do par (bot, user).
	Upsert(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, botID int64, userID string) error
	ListByBot(ctx context.Context, botID int64) ([]*Lead, error)
}

type FunnelContactKind int

const (
	FunnelContactLead FunnelContactKind = iota + 1
	FunnelContactOrder
)

// FunnelContact é a visão única de um contato no funil: ou é Lead, ou tem Order.
type FunnelContact struct {
	Kind  FunnelContactKind
	Lead  *Lead
	Order *Order
}

func LeadContact(l *Lead) FunnelContact {
	return FunnelContact{Kind: FunnelContactLead, Lead: l}
}

func OrderContact(o *Order) FunnelContact {
	return FunnelContact{Kind: FunnelContactOrder, Order: o}
}

func (c FunnelContact) BotID() int64 {
	if c.Kind == FunnelContactOrder {
		return c.Order.BotID
	}
	return c.Lead.BotID
}

func (c FunnelContact) ContactID() string {
	if c.Kind == FunnelContactOrder {
		return c.Order.ContactID
	}
	return c.Lead.UserID
}

func (c FunnelContact) DisplayName() string {
	if c.Kind == FunnelContactOrder {
		return c.Order.FirstName
	}
	return c.Lead.Name
}

func (c FunnelContact) Username() string {
	if c.Kind == FunnelContactOrder {
		return c.Order.Username
	}
	return c.Lead.Username
}

// Stage devolve o estágio do funil: topo, meio, fundo ou expirado.
func (c FunnelContact) Stage() FunnelStage {
	if c.Kind == FunnelContactOrder {
		return c.Order.FunnelStage()
	}
	return StageTopo
}
