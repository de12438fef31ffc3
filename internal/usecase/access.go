package usecase

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const (
	msgAccessFallback = "⚠️ <b>Pagamento confirmado!</b>\n\nNão conseguimos gerar seu link agora. O suporte vai te chamar em instantes."
	dateLayoutBR      = "02/01/2006"
)

// AccessProvisioner entrega o acesso de um pedido pago: link de convite, mensagem ao cliente
// e aviso de venda ao admin. Implementa AccessGranter sem fila.
type AccessProvisioner struct {
	OrderRepo entity.OrderRepositoryInterface
	BotRepo   entity.BotRepositoryInterface
	BumpRepo  entity.OrderBumpRepositoryInterface
	Messenger Messenger
	Notifier  OperatorNotifier
}

func NewAccessProvisioner(
	orderRepo entity.OrderRepositoryInterface,
	botRepo entity.BotRepositoryInterface,
	bumpRepo entity.OrderBumpRepositoryInterface,
	messenger Messenger,
	notifier OperatorNotifier,
) *AccessProvisioner {
	return &AccessProvisioner{
		OrderRepo: orderRepo,
		BotRepo:   botRepo,
		BumpRepo:  bumpRepo,
		Messenger: messenger,
		Notifier:  notifier,
	}
}

// Grant só devolve erro quando não dá para carregar pedido ou bot; falhas de mensagem são logadas.
func (uc *AccessProvisioner) Grant(ctx context.Context, grant AccessGrant) error {
	order, err := uc.OrderRepo.FindByID(ctx, grant.OrderID)
	if err != nil {
		return fmt.Errorf("erro ao carregar pedido %d: %w", grant.OrderID, err)
	}
	if order.Delivered {
		log.Printf("🔁 [ACCESS] Pedido %d já entregue", order.ID)
		return nil
	}
	if !order.IsPaid() {
		log.Printf("⚠️ [ACCESS] Pedido %d com status %s, entrega cancelada", order.ID, order.Status)
		return nil
	}

	bot, err := uc.BotRepo.FindByID(ctx, order.BotID)
	if err != nil {
		return fmt.Errorf("erro ao carregar bot %d: %w", order.BotID, err)
	}

	delivered := false
	if channel := bot.VIPChannel(); channel != "" {
		if err := uc.Messenger.Unban(ctx, bot.Token, channel, order.ContactID); err != nil {
			log.Printf("⚠️ [ACCESS] Unban de %s falhou (seguindo): %v", order.ContactID, err)
		}
		link, err := uc.Messenger.CreateInviteLink(ctx, bot.Token, channel, "Venda "+order.FirstName)
		if err != nil {
			log.Printf("❌ [ACCESS] Falha ao gerar convite do pedido %d: %v", order.ID, err)
		} else {
			text := accessMessage(order, link, uc.bumpLink(ctx, order))
			if _, err := uc.Messenger.SendText(ctx, bot.Token, order.ContactID, text, nil); err != nil {
				log.Printf("❌ [ACCESS] Falha ao enviar acesso do pedido %d: %v", order.ID, err)
			} else {
				delivered = true
			}
		}
	}

	if delivered {
		if err := uc.OrderRepo.MarkDelivered(ctx, order.ID); err != nil {
			log.Printf("⚠️ [ACCESS] Falha ao marcar entrega do pedido %d: %v", order.ID, err)
		}
		log.Printf("🎟️ [ACCESS] Acesso entregue: pedido %d, contato %s", order.ID, order.ContactID)
	} else {
		text := msgAccessFallback
		if bot.SupportUsername != "" {
			text += "\n\nSuporte: @" + strings.TrimPrefix(bot.SupportUsername, "@")
		}
		if _, err := uc.Messenger.SendText(ctx, bot.Token, order.ContactID, text, nil); err != nil {
			log.Printf("⚠️ [ACCESS] Falha ao avisar contato %s: %v", order.ContactID, err)
		}
	}

	uc.notifySale(ctx, bot, order)
	return nil
}

func (uc *AccessProvisioner) bumpLink(ctx context.Context, order *entity.Order) string {
	if !order.HasUpsell || uc.BumpRepo == nil {
		return ""
	}
	offer, err := uc.BumpRepo.FindByBot(ctx, order.BotID)
	if err != nil || offer == nil {
		return ""
	}
	return offer.AccessLink
}

func (uc *AccessProvisioner) notifySale(ctx context.Context, bot *entity.Bot, order *entity.Order) {
	if bot.AdminPrincipalID != "" {
		if _, err := uc.Messenger.SendText(ctx, bot.Token, bot.AdminPrincipalID, saleMessage(order), nil); err != nil {
			log.Printf("⚠️ [ACCESS] Falha ao notificar admin do bot %d: %v", bot.ID, err)
		}
	}
	if uc.Notifier == nil {
		return
	}
	err := uc.Notifier.NotifySale(ctx, SaleNotice{
		BotName:    bot.Name,
		Customer:   order.FirstName,
		Username:   order.Username,
		PlanName:   order.PlanName,
		PriceCents: order.PriceCents,
		ExpiresAt:  order.ExpiresAt,
	})
	if err != nil {
		log.Printf("⚠️ [ACCESS] Falha no e-mail de venda do pedido %d: %v", order.ID, err)
	}
}

func validityText(order *entity.Order) string {
	if order.ExpiresAt == nil {
		return "VITALÍCIO ♾️"
	}
	return order.ExpiresAt.Format(dateLayoutBR)
}

func accessMessage(order *entity.Order, link, bumpLink string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ <b>Pagamento confirmado!</b>\n\n")
	fmt.Fprintf(&b, "📦 Plano: %s\n", html.EscapeString(order.PlanName))
	fmt.Fprintf(&b, "📅 Validade: %s\n\n", validityText(order))
	fmt.Fprintf(&b, "👉 Seu acesso exclusivo:\n%s", link)
	if bumpLink != "" {
		fmt.Fprintf(&b, "\n\n🎁 Seu bônus:\n%s", bumpLink)
	}
	return b.String()
}

func saleMessage(order *entity.Order) string {
	user := order.Username
	if user != "" {
		user = "@" + user
	} else {
		user = order.ContactID
	}
	return fmt.Sprintf("💰 <b>NOVA VENDA!</b>\n\n👤 %s (%s)\n📦 %s\n💵 %s\n📅 Validade: %s",
		html.EscapeString(order.FirstName), html.EscapeString(user), html.EscapeString(order.PlanName), entity.FormatBRL(order.PriceCents), validityText(order))
}
