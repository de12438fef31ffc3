package entity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrOrderNotFound = errors.New("pedido não encontrado")

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusExpired = "expired"
)

// PaidStatuses são os status que já contam como pago (gateways e versões antigas gravaram variações).
var PaidStatuses = []string{"paid", "approved", "active", "completed", "succeeded"}

func IsPaidStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, p := range PaidStatuses {
		if s == p {
			return true
		}
	}
	return false
}

type FunnelStage string

const (
	StageTopo     FunnelStage = "topo"
	StageMeio     FunnelStage = "meio"
	StageFundo    FunnelStage = "fundo"
	StageExpirado FunnelStage = "expirado"
)

// Order (pedido) é o checkout/pagamento/direito de acesso de um contato em um bot.
// Existe no máximo um por (BotID, ContactID): um novo checkout sobrescreve o anterior.
type Order struct {
	ID         int64  `json:"id"`
	BotID      int64  `json:"bot_id"`
	ContactID  string `json:"telegram_id"`
	FirstName  string `json:"first_name"`
	Username   string `json:"username"`
	PlanID     int64  `json:"plano_id"`
	PlanName   string `json:"plano_nome"`
	PriceCents int64  `json:"valor"`
	Status     string `json:"status"`

	ChargeID  string     `json:"transaction_id"`
	PixCode   string     `json:"qr_code,omitempty"`
	HasUpsell bool       `json:"tem_order_bump"`
	Delivered bool       `json:"mensagem_enviada"`
	Origin    string     `json:"origem"`
	PaidAt    *time.Time `json:"data_aprovacao,omitempty"`
	ExpiresAt *time.Time `json:"data_expiracao,omitempty"`

	FirstContactAt *time.Time `json:"primeiro_contato,omitempty"`
	PlanChosenAt   *time.Time `json:"escolheu_plano_em,omitempty"`
	ChargedAt      *time.Time `json:"gerou_pix_em,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Order) IsPaid() bool {
	return IsPaidStatus(o.Status)
}

func (o *Order) IsLifetime() bool {
	return o.IsPaid() && o.ExpiresAt == nil
}

func (o *Order) FunnelStage() FunnelStage {
	switch {
	case o.IsPaid():
		return StageFundo
	case strings.EqualFold(o.Status, OrderStatusExpired):
		return StageExpirado
	default:
		return StageMeio
	}
}

// ResetForCheckout reaproveita o pedido para um novo checkout, limpando pagamento e validade anteriores.
func (o *Order) ResetForCheckout(plan *Plan, name string, priceCents int64, hasUpsell bool, now time.Time) {
	o.PlanID = plan.ID
	o.PlanName = name
	o.PriceCents = priceCents
	o.HasUpsell = hasUpsell
	o.Status = OrderStatusPending
	o.ChargeID = ""
	o.PixCode = ""
	o.PaidAt = nil
	o.ExpiresAt = nil
	o.Delivered = false
	o.PlanChosenAt = &now
	o.ChargedAt = nil
	o.UpdatedAt = now
}

type OrderRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*Order, error)
	FindByBotAndContact(ctx context.Context, botID int64, contactID string) (*Order, error)
	FindByChargeID(ctx context.Context, chargeID string) (*Order, error)
	// Save insere ou sobrescreve o pedido do par (bot, contato) e preenche o ID.
	Save(ctx context.Context, o *Order) error
	SetCharge(ctx context.Context, orderID int64, chargeID, pixCode string, chargedAt time.Time) error
	// MarkPaid só aplica em pedido pendente que ainda carrega a cobrança chargeID. Retorna false
	// quando já estava pago, expirado ou foi sobrescrito por outro checkout.
	MarkPaid(ctx context.Context, orderID int64, chargeID string, paidAt time.Time, expiresAt *time.Time) (bool, error)
	MarkDelivered(ctx context.Context, orderID int64) error
	MarkExpired(ctx context.Context, orderID int64) error
	ListExpired(ctx context.Context, now time.Time) ([]*Order, error)
	ListByBot(ctx context.Context, botID int64) ([]*Order, error)
}
