package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

type ReconcileOutcome string

const (
	ReconcileApplied          ReconcileOutcome = "applied"
	ReconcileAlreadyProcessed ReconcileOutcome = "already_processed"
	ReconcileNotFound         ReconcileOutcome = "not_found"
	ReconcileIgnored          ReconcileOutcome = "ignored"
)

// chargeIDFields são os nomes que os provedores já usaram para o id da cobrança, em ordem de preferência.
// data.id vem antes de id porque no Mercado Pago o id de topo é o da notificação.
var chargeIDFields = []string{"data.id", "id", "external_reference", "uuid", "transaction_id", "charge_id"}

// confirmedStatuses são os status de notificação que confirmam o pagamento.
var confirmedStatuses = map[string]bool{
	"paid":      true,
	"approved":  true,
	"completed": true,
	"succeeded": true,
}

// PaymentNotification é o corpo da notificação achatado em chave/valor (JSON ou form).
type PaymentNotification map[string]string

// ChargeID devolve o primeiro identificador presente, normalizado em minúsculas.
func (n PaymentNotification) ChargeID() string {
	for _, f := range chargeIDFields {
		if v := strings.TrimSpace(n[f]); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

func (n PaymentNotification) Status() string {
	return strings.ToLower(strings.TrimSpace(n["status"]))
}

// ChargeStatusChecker consulta o status de uma cobrança no provedor. Usado quando a notificação
// só traz o id (Mercado Pago).
type ChargeStatusChecker interface {
	ChargeStatus(ctx context.Context, chargeID string) (string, error)
}

type ReconcileResult struct {
	Outcome   ReconcileOutcome `json:"outcome"`
	ChargeID  string           `json:"charge_id,omitempty"`
	OrderID   int64            `json:"order_id,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	Lifetime  bool             `json:"lifetime,omitempty"`
}

type PaymentReconciler struct {
	OrderRepo entity.OrderRepositoryInterface
	Expiry    *ExpiryResolver
	Granter   AccessGranter
	Checker   ChargeStatusChecker
	Clock     Clock
}

func NewPaymentReconciler(orderRepo entity.OrderRepositoryInterface, expiry *ExpiryResolver, granter AccessGranter) *PaymentReconciler {
	return &PaymentReconciler{OrderRepo: orderRepo, Expiry: expiry, Granter: granter}
}

// Reconcile aplica uma notificação de pagamento. Notificações repetidas são no-op: o provedor
// reenvia e o acesso não pode ser entregue duas vezes.
func (uc *PaymentReconciler) Reconcile(ctx context.Context, n PaymentNotification) (*ReconcileResult, error) {
	chargeID := n.ChargeID()
	if chargeID == "" {
		return nil, &DomainError{Code: CodeInvalidRequest, Message: "notificação sem identificador de cobrança"}
	}
	result := &ReconcileResult{ChargeID: chargeID}

	status := n.Status()
	if status == "" && uc.Checker != nil {
		s, err := uc.Checker.ChargeStatus(ctx, chargeID)
		if err != nil {
			return nil, &TechnicalError{Code: CodePaymentFailed, Message: "falha ao consultar cobrança", Err: err}
		}
		status = strings.ToLower(s)
	}
	if !confirmedStatuses[status] {
		log.Printf("ℹ️ [WEBHOOK] Cobrança %s com status '%s' ignorada", chargeID, status)
		result.Outcome = ReconcileIgnored
		return result, nil
	}

	order, err := uc.OrderRepo.FindByChargeID(ctx, chargeID)
	if errors.Is(err, entity.ErrOrderNotFound) {
		log.Printf("⚠️ [WEBHOOK] Nenhum pedido para a cobrança %s", chargeID)
		result.Outcome = ReconcileNotFound
		return result, nil
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar pedido", Err: err}
	}
	result.OrderID = order.ID

	if order.Status != entity.OrderStatusPending {
		log.Printf("🔁 [WEBHOOK] Pedido %d já processado (status %s)", order.ID, order.Status)
		result.Outcome = ReconcileAlreadyProcessed
		return result, nil
	}

	now := uc.Clock.now()
	expiry := uc.Expiry.Resolve(ctx, order, now)

	applied, err := uc.OrderRepo.MarkPaid(ctx, order.ID, chargeID, now, expiry.ExpiresAt)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao aprovar pedido", Err: err}
	}
	if !applied {
		if current, err := uc.OrderRepo.FindByID(ctx, order.ID); err == nil && !strings.EqualFold(current.ChargeID, chargeID) {
			log.Printf("⚠️ [WEBHOOK] Cobrança %s paga, mas o pedido %d já foi sobrescrito por outro checkout", chargeID, order.ID)
			result.Outcome = ReconcileNotFound
			return result, nil
		}
		log.Printf("🔁 [WEBHOOK] Pedido %d aprovado por outra entrega da mesma notificação", order.ID)
		result.Outcome = ReconcileAlreadyProcessed
		return result, nil
	}

	if expiry.Lifetime() {
		log.Printf("✅ [WEBHOOK] Pedido %d pago: acesso vitalício (%s)", order.ID, expiry.Source)
	} else {
		log.Printf("✅ [WEBHOOK] Pedido %d pago: acesso até %s (%s)", order.ID, expiry.ExpiresAt.Format(time.RFC3339), expiry.Source)
	}

	result.Outcome = ReconcileApplied
	result.ExpiresAt = expiry.ExpiresAt
	result.Lifetime = expiry.Lifetime()

	if uc.Granter != nil {
		grant := AccessGrant{OrderID: order.ID, BotID: order.BotID, Origin: order.Origin}
		if err := uc.Granter.Grant(ctx, grant); err != nil {
			log.Printf("❌ [WEBHOOK] Pagamento do pedido %d registrado, mas a entrega falhou: %v", order.ID, err)
		}
	}
	return result, nil
}
