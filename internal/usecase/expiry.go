package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const (
	ExpirySourcePlan      = "plan"
	ExpirySourceName      = "name_heuristic"
	DefaultDurationDays   = 30
	expiryPlanLookupLimit = 3 * time.Second
)

// Expiry é a validade calculada para um pedido. ExpiresAt nil significa vitalício.
type Expiry struct {
	ExpiresAt *time.Time
	Source    string
}

func (e Expiry) Lifetime() bool {
	return e.ExpiresAt == nil
}

// ExpiryResolver é a única regra de validade do sistema, usada na conciliação do pagamento
// e no porteiro do canal.
type ExpiryResolver struct {
	PlanRepo entity.PlanRepositoryInterface
}

func NewExpiryResolver(planRepo entity.PlanRepositoryInterface) *ExpiryResolver {
	return &ExpiryResolver{PlanRepo: planRepo}
}

// Resolve calcula a validade a partir de anchor. Usa a duração do plano; se o plano não existe
// mais, cai na heurística pelo nome gravado no pedido.
func (r *ExpiryResolver) Resolve(ctx context.Context, order *entity.Order, anchor time.Time) Expiry {
	if order.PlanID > 0 && r.PlanRepo != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, expiryPlanLookupLimit)
		plan, err := r.PlanRepo.FindByID(lookupCtx, order.PlanID)
		cancel()
		if err == nil && plan != nil && plan.DurationDays > 0 {
			if plan.IsLifetime() {
				return Expiry{Source: ExpirySourcePlan}
			}
			exp := anchor.AddDate(0, 0, plan.DurationDays)
			return Expiry{ExpiresAt: &exp, Source: ExpirySourcePlan}
		}
		switch {
		case err != nil:
			log.Printf("⚠️ [EXPIRY] Plano %d indisponível para pedido %d (%v). Usando nome '%s'", order.PlanID, order.ID, err, order.PlanName)
		case plan != nil:
			log.Printf("⚠️ [EXPIRY] Plano %d com duração inválida (%d dias) no pedido %d. Usando nome '%s'", order.PlanID, plan.DurationDays, order.ID, order.PlanName)
		}
	}

	// TODO: remover quando os pedidos antigos tiverem plano_id migrado; o nome diverge do catálogo.
	days, lifetime := DurationFromPlanName(order.PlanName)
	if lifetime {
		return Expiry{Source: ExpirySourceName}
	}
	exp := anchor.AddDate(0, 0, days)
	return Expiry{ExpiresAt: &exp, Source: ExpirySourceName}
}

// AccessUntil devolve até quando o pedido dá acesso. Pedidos pagos já têm a validade gravada
// pelo Resolve no momento do pagamento; pedidos legados sem data de aprovação são recalculados.
func (r *ExpiryResolver) AccessUntil(ctx context.Context, order *entity.Order) *time.Time {
	if order.PaidAt != nil {
		return order.ExpiresAt
	}
	return r.Resolve(ctx, order, order.CreatedAt).ExpiresAt
}

// Entitled diz se o pedido ainda dá direito ao canal em now.
func (r *ExpiryResolver) Entitled(ctx context.Context, order *entity.Order, now time.Time) bool {
	if order == nil || !order.IsPaid() {
		return false
	}
	until := r.AccessUntil(ctx, order)
	return until == nil || now.Before(*until)
}

var lifetimeMarkers = []string{"vital", "mega", "eterno", "lifetime"}

var durationKeywords = []struct {
	keywords []string
	days     int
}{
	{[]string{"24", "diario", "1 dia", "daily"}, 1},
	{[]string{"semanal", "weekly"}, 7},
	{[]string{"trimestral", "quarterly"}, 90},
	{[]string{"anual", "annual", "yearly"}, 365},
}

// DurationFromPlanName aproxima a duração pelo nome do plano. Padrão: 30 dias.
func DurationFromPlanName(name string) (days int, lifetime bool) {
	nm := strings.ToLower(name)
	nm = strings.NewReplacer("á", "a", "â", "a", "ã", "a", "í", "i").Replace(nm)

	for _, m := range lifetimeMarkers {
		if strings.Contains(nm, m) {
			return 0, true
		}
	}
	for _, entry := range durationKeywords {
		for _, k := range entry.keywords {
			if strings.Contains(nm, k) {
				return entry.days, false
			}
		}
	}
	return DefaultDurationDays, false
}
