package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-funnel/internal/entity"
	"github.com/xavierca1/ligue-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-funnel/internal/infra/integration/telegram"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

type Conversations interface {
	ResolveBot(ctx context.Context, token string) (*entity.Bot, error)
	HandleStart(ctx context.Context, conv usecase.Conversation) error
	HandleCallback(ctx context.Context, ev usecase.CallbackEvent) error
}

type JoinChecker interface {
	Check(ctx context.Context, ev usecase.JoinEvent) (usecase.GateDecision, error)
}

// TelegramHandler recebe o webhook de cada bot em /webhook/telegram/{token}.
// Sempre responde 200: o Telegram reenviaria a mesma atualização em caso de erro.
type TelegramHandler struct {
	Funnel     Conversations
	Gatekeeper JoinChecker
}

func NewTelegramHandler(funnel Conversations, gatekeeper JoinChecker) *TelegramHandler {
	return &TelegramHandler{Funnel: funnel, Gatekeeper: gatekeeper}
}

func (h *TelegramHandler) Handle(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Printf("⚠️ [TELEGRAM] Update inválido: %v", err)
		return
	}

	ctx := r.Context()
	bot, err := h.Funnel.ResolveBot(ctx, chi.URLParam(r, "token"))
	if err != nil {
		log.Printf("⚠️ [TELEGRAM] Update %d para bot desconhecido: %v", update.UpdateID, err)
		return
	}

	if err := h.dispatch(ctx, bot, update); err != nil {
		log.Printf("❌ [TELEGRAM] Bot %d, update %d: %v", bot.ID, update.UpdateID, err)
	}
}

func (h *TelegramHandler) dispatch(ctx context.Context, bot *entity.Bot, update telegram.Update) error {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		user := cq.From.Entity()
		ev := usecase.CallbackEvent{
			Conversation: usecase.Conversation{Bot: bot, ChatID: user.ID, User: user},
			CallbackID:   cq.ID,
			Data:         cq.Data,
		}
		if cq.Message != nil {
			ev.ChatID = cq.Message.Chat.IDString()
			ev.MessageID = cq.Message.MessageID
		}
		return h.Funnel.HandleCallback(ctx, ev)

	case update.ChatMember != nil:
		if !update.ChatMember.Joined() {
			return nil
		}
		return h.checkJoin(ctx, bot, update.ChatMember.Chat.IDString(), update.ChatMember.NewChatMember.User)

	case update.Message != nil:
		msg := update.Message
		if len(msg.NewChatMembers) > 0 {
			for _, m := range msg.NewChatMembers {
				if err := h.checkJoin(ctx, bot, msg.Chat.IDString(), m); err != nil {
					return err
				}
			}
			return nil
		}
		if msg.From == nil || msg.Chat.Type != "private" || !isStartCommand(msg.Text) {
			return nil
		}
		return h.Funnel.HandleStart(ctx, usecase.Conversation{
			Bot:    bot,
			ChatID: msg.Chat.IDString(),
			User:   msg.From.Entity(),
		})
	}
	return nil
}

func (h *TelegramHandler) checkJoin(ctx context.Context, bot *entity.Bot, chatID string, member telegram.User) error {
	if h.Gatekeeper == nil {
		return nil
	}
	decision, err := h.Gatekeeper.Check(ctx, usecase.JoinEvent{Bot: bot, ChatID: chatID, Member: member.Entity()})
	if decision == usecase.GateRevoked {
		middleware.RecordRevocations("gatekeeper", 1)
	}
	return err
}

// isStartCommand aceita "/start", "/start payload" e "/start@NomeDoBot".
func isStartCommand(text string) bool {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/start"
}
