package usecase

import (
	"context"
	"errors"
	"log"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const msgAccessDenied = "🚫 <b>Acesso Negado</b>\n\nVocê não tem uma assinatura ativa para este canal. Digite /start para assinar."

type GateDecision string

const (
	GateAllowed GateDecision = "allowed"
	GateRevoked GateDecision = "revoked"
	GateSkipped GateDecision = "skipped"
)

// JoinEvent é a entrada de um membro em um chat administrado pelo bot.
type JoinEvent struct {
	Bot    *entity.Bot
	ChatID string
	Member entity.User
}

// ChannelGatekeeper confere o direito de acesso no momento da entrada no canal.
type ChannelGatekeeper struct {
	OrderRepo entity.OrderRepositoryInterface
	AdminRepo entity.AdminRepositoryInterface
	Expiry    *ExpiryResolver
	Messenger Messenger
	Clock     Clock
}

func NewChannelGatekeeper(
	orderRepo entity.OrderRepositoryInterface,
	adminRepo entity.AdminRepositoryInterface,
	expiry *ExpiryResolver,
	messenger Messenger,
) *ChannelGatekeeper {
	return &ChannelGatekeeper{
		OrderRepo: orderRepo,
		AdminRepo: adminRepo,
		Expiry:    expiry,
		Messenger: messenger,
	}
}

func (uc *ChannelGatekeeper) Check(ctx context.Context, ev JoinEvent) (GateDecision, error) {
	if ev.Bot == nil || !ev.Bot.IsVIPChannel(ev.ChatID) || ev.Member.IsBot {
		return GateSkipped, nil
	}

	admin, err := isBotAdmin(ctx, uc.AdminRepo, ev.Bot, ev.Member.ID)
	if err != nil {
		return GateSkipped, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao consultar admins", Err: err}
	}
	if admin {
		return GateAllowed, nil
	}

	order, err := uc.OrderRepo.FindByBotAndContact(ctx, ev.Bot.ID, ev.Member.ID)
	if err != nil && !errors.Is(err, entity.ErrOrderNotFound) {
		return GateSkipped, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao buscar pedido", Err: err}
	}
	if err == nil && uc.Expiry.Entitled(ctx, order, uc.Clock.now()) {
		return GateAllowed, nil
	}

	log.Printf("🚷 [GATEKEEPER] Bot %d: %s entrou sem assinatura ativa, removendo", ev.Bot.ID, ev.Member.ID)
	if err := uc.Messenger.SoftKick(ctx, ev.Bot.Token, ev.ChatID, ev.Member.ID); err != nil {
		log.Printf("❌ [GATEKEEPER] Falha ao remover %s: %v", ev.Member.ID, err)
	}
	if _, err := uc.Messenger.SendText(ctx, ev.Bot.Token, ev.Member.ID, msgAccessDenied, nil); err != nil {
		log.Printf("⚠️ [GATEKEEPER] Aviso para %s não enviado: %v", ev.Member.ID, err)
	}
	return GateRevoked, nil
}
