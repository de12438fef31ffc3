package usecase

import (
	"context"
	"log"
	"strings"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

type DeliveryOutcome string

const (
	DeliverySent    DeliveryOutcome = "sent"
	DeliveryBlocked DeliveryOutcome = "blocked"
	DeliveryFailed  DeliveryOutcome = "failed"
)

var blockedMarkers = []string{"blocked", "kicked", "deactivated", "chat not found"}

// IsBlockedError reconhece as recusas normais do Telegram: bloqueou o bot, conta apagada etc.
func IsBlockedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range blockedMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func ClassifyDelivery(err error) DeliveryOutcome {
	switch {
	case err == nil:
		return DeliverySent
	case IsBlockedError(err):
		return DeliveryBlocked
	default:
		return DeliveryFailed
	}
}

// sendContent manda mídia com legenda e, se a mídia falhar, só o texto.
func sendContent(ctx context.Context, m Messenger, token, chatID, media, text string, buttons []entity.Button) (int64, error) {
	if media != "" {
		id, err := m.SendMedia(ctx, token, chatID, media, text, buttons)
		if err == nil {
			return id, nil
		}
		if IsBlockedError(err) {
			return 0, err
		}
		log.Printf("⚠️ [SEND] Mídia falhou para %s, enviando só texto: %v", chatID, err)
	}
	return m.SendText(ctx, token, chatID, text, buttons)
}

func planButton(plan *entity.Plan) entity.Button {
	return entity.Button{
		Text:         "💎 " + plan.Name + " - " + entity.FormatBRL(plan.PriceCents),
		CallbackData: PlanCallback(plan.ID),
	}
}

func planButtons(plans []*entity.Plan) []entity.Button {
	buttons := make([]entity.Button, 0, len(plans))
	for _, p := range plans {
		buttons = append(buttons, planButton(p))
	}
	return buttons
}

func offerButtonText(planName string, priceCents int64) string {
	return "🔥 " + planName + " - " + entity.FormatBRL(priceCents)
}
