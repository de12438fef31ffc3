package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const (
	OriginBot         = "bot"
	OriginRemarketing = "remarketing"
)

type CheckoutInput struct {
	Bot     *entity.Bot
	Contact entity.User
	PlanID  int64
	Bump    *BumpDecision
	// PromoPriceCents substitui o preço do plano (clique em campanha).
	PromoPriceCents *int64
	NameSuffix      string
	Origin          string
}

type CheckoutOutput struct {
	OrderID    int64  `json:"order_id"`
	ChargeID   string `json:"charge_id"`
	PixCode    string `json:"pix_code"`
	QRCodeURL  string `json:"qr_code_url,omitempty"`
	PlanName   string `json:"plan_name"`
	PriceCents int64  `json:"price_cents"`
	Renewal    bool   `json:"renewal"`
}

// CheckoutOrderManager cria ou sobrescreve o único pedido do par (bot, contato) e gera a cobrança.
type CheckoutOrderManager struct {
	OrderRepo    entity.OrderRepositoryInterface
	PlanRepo     entity.PlanRepositoryInterface
	LeadRepo     entity.LeadRepositoryInterface
	Gateway      PaymentGateway
	Locker       Locker
	Clock        Clock
	NewReference func() string
}

func NewCheckoutOrderManager(
	orderRepo entity.OrderRepositoryInterface,
	planRepo entity.PlanRepositoryInterface,
	leadRepo entity.LeadRepositoryInterface,
	gateway PaymentGateway,
	locker Locker,
) *CheckoutOrderManager {
	return &CheckoutOrderManager{
		OrderRepo: orderRepo,
		PlanRepo:  planRepo,
		LeadRepo:  leadRepo,
		Gateway:   gateway,
		Locker:    locker,
	}
}

// Checkout grava o pedido, pede a cobrança e grava o id da cobrança antes de devolver o PIX.
// Quem chama só pode mostrar o código ao contato depois do retorno, senão um webhook rápido
// chega antes do charge id estar no banco.
func (uc *CheckoutOrderManager) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutOutput, error) {
	plan, err := uc.PlanRepo.FindByID(ctx, in.PlanID)
	if errors.Is(err, entity.ErrPlanNotFound) || (err == nil && plan.BotID != 0 && plan.BotID != in.Bot.ID) {
		return nil, &DomainError{Code: CodePlanNotFound, Message: "plano não encontrado"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar plano", Err: err}
	}

	name, price, hasUpsell := in.Bump.Apply(plan.Name, plan.PriceCents)
	if in.PromoPriceCents != nil && *in.PromoPriceCents > 0 {
		price = *in.PromoPriceCents
	}
	name += in.NameSuffix

	if uc.Locker != nil {
		unlock, err := uc.Locker.Lock(ctx, lockKey(in.Bot.ID, in.Contact.ID))
		if err != nil {
			return nil, &TechnicalError{Code: CodeLockFailed, Message: "checkout em andamento para este contato", Err: err}
		}
		defer unlock()
	}

	now := uc.Clock.now()
	order, err := uc.OrderRepo.FindByBotAndContact(ctx, in.Bot.ID, in.Contact.ID)
	renewal := err == nil
	switch {
	case errors.Is(err, entity.ErrOrderNotFound):
		order = &entity.Order{
			BotID:          in.Bot.ID,
			ContactID:      in.Contact.ID,
			Origin:         in.Origin,
			FirstContactAt: &now,
			CreatedAt:      now,
		}
	case err != nil:
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar pedido", Err: err}
	}

	order.FirstName = in.Contact.FirstName
	order.Username = in.Contact.Username
	if order.Origin == "" {
		order.Origin = OriginBot
	}
	order.ResetForCheckout(plan, name, price, hasUpsell, now)

	if err := uc.OrderRepo.Save(ctx, order); err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao salvar pedido", Err: err}
	}
	if renewal {
		log.Printf("📝 [CHECKOUT] Bot %d: pedido %d de %s sobrescrito (%s)", in.Bot.ID, order.ID, in.Contact.ID, name)
	} else {
		log.Printf("🆕 [CHECKOUT] Bot %d: pedido %d criado para %s (%s)", in.Bot.ID, order.ID, in.Contact.ID, name)
	}

	if uc.LeadRepo != nil {
		if err := uc.LeadRepo.Delete(ctx, in.Bot.ID, in.Contact.ID); err != nil && !errors.Is(err, entity.ErrLeadNotFound) {
			log.Printf("⚠️ [CHECKOUT] Falha ao promover lead %s do bot %d: %v", in.Contact.ID, in.Bot.ID, err)
		}
	}

	reference := uc.reference()
	charge, err := uc.Gateway.CreateCharge(ctx, entity.ChargeRequest{
		AmountCents: price,
		Reference:   reference,
		Description: name,
	})
	if err != nil {
		log.Printf("❌ [CHECKOUT] Provedor recusou cobrança do pedido %d: %v", order.ID, err)
		return nil, &TechnicalError{Code: CodePaymentFailed, Message: "falha ao gerar cobrança", Err: err}
	}

	chargeID := strings.ToLower(strings.TrimSpace(charge.ChargeID))
	if chargeID == "" {
		chargeID = reference
	}
	if err := uc.OrderRepo.SetCharge(ctx, order.ID, chargeID, charge.PixCode, now); err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao gravar cobrança", Err: err}
	}

	return &CheckoutOutput{
		OrderID:    order.ID,
		ChargeID:   chargeID,
		PixCode:    charge.PixCode,
		QRCodeURL:  charge.QRCodeURL,
		PlanName:   name,
		PriceCents: price,
		Renewal:    renewal,
	}, nil
}

func (uc *CheckoutOrderManager) reference() string {
	if uc.NewReference != nil {
		return uc.NewReference()
	}
	return uuid.New().String()
}
