package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

// BumpDecision é a resposta do contato à oferta extra: aceitou ou recusou.
type BumpDecision struct {
	Offer    *entity.OrderBumpOffer
	Accepted bool
}

// Apply devolve nome, preço e flag de upsell finais do checkout.
func (d *BumpDecision) Apply(planName string, planPriceCents int64) (string, int64, bool) {
	if d == nil || !d.Accepted || d.Offer == nil {
		return planName, planPriceCents, false
	}
	return fmt.Sprintf("%s + %s", planName, d.Offer.Name), planPriceCents + d.Offer.PriceCents, true
}

type OrderBumpNegotiator struct {
	BumpRepo entity.OrderBumpRepositoryInterface
}

func NewOrderBumpNegotiator(repo entity.OrderBumpRepositoryInterface) *OrderBumpNegotiator {
	return &OrderBumpNegotiator{BumpRepo: repo}
}

// Offer devolve a oferta ativa do bot, ou nil se não houver.
func (n *OrderBumpNegotiator) Offer(ctx context.Context, botID int64) (*entity.OrderBumpOffer, error) {
	if n == nil || n.BumpRepo == nil {
		return nil, nil
	}
	offer, err := n.BumpRepo.FindByBot(ctx, botID)
	if errors.Is(err, entity.ErrOrderBumpNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar order bump: %w", err)
	}
	if offer == nil || !offer.Active {
		return nil, nil
	}
	return offer, nil
}

// Decide monta a decisão do contato. Sem oferta ativa, a decisão vira "sem bump".
func (n *OrderBumpNegotiator) Decide(ctx context.Context, botID int64, accepted bool) (*BumpDecision, error) {
	offer, err := n.Offer(ctx, botID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, nil
	}
	return &BumpDecision{Offer: offer, Accepted: accepted}, nil
}
