package usecase

import (
	"strconv"
	"strings"
)

type CallbackAction string

const (
	ActionFlowStart   CallbackAction = "flow_start"
	ActionFlowNext    CallbackAction = "flow_next"
	ActionCheckout    CallbackAction = "checkout"
	ActionPlan        CallbackAction = "plan"
	ActionBumpAccept  CallbackAction = "bump_accept"
	ActionBumpDecline CallbackAction = "bump_decline"
	ActionPromo       CallbackAction = "promo"
)

const (
	CallbackFlowStart = "flow:start"
	CallbackCheckout  = "flow:checkout"

	legacyFlowStart = "passo_2"
	legacyCheckout  = "go_checkout"
	legacyNextStep  = "next_step_"
)

// Callback é o callback_data de um botão já interpretado.
type Callback struct {
	Action     CallbackAction
	PlanID     int64
	StepOrder  int
	CampaignID string
}

func PlanCallback(planID int64) string {
	return "plan:" + strconv.FormatInt(planID, 10)
}

func NextStepCallback(stepOrder int) string {
	return "flow:next:" + strconv.Itoa(stepOrder)
}

func BumpCallback(accepted bool, planID int64) string {
	if accepted {
		return "bump:accept:" + strconv.FormatInt(planID, 10)
	}
	return "bump:decline:" + strconv.FormatInt(planID, 10)
}

func PromoCallback(campaignID string) string {
	return "promo:" + campaignID
}

// ParseCallback aceita o formato atual e os botões antigos (passo_2, next_step_<n>, go_checkout,
// checkout_<id>, promo_<uuid>) que ainda estão em conversas abertas.
func ParseCallback(data string) (Callback, error) {
	invalid := &DomainError{Code: CodeInvalidCallback, Message: "callback inválido: " + data}
	data = strings.TrimSpace(data)

	switch {
	case data == CallbackFlowStart, data == legacyFlowStart:
		return Callback{Action: ActionFlowStart}, nil
	case data == CallbackCheckout, data == legacyCheckout:
		return Callback{Action: ActionCheckout}, nil
	case strings.HasPrefix(data, "flow:next:"), strings.HasPrefix(data, legacyNextStep):
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(data, "flow:next:"), legacyNextStep))
		if err != nil || n < 0 {
			return Callback{}, invalid
		}
		return Callback{Action: ActionFlowNext, StepOrder: n}, nil
	case strings.HasPrefix(data, "plan:"), strings.HasPrefix(data, "checkout_"):
		raw := strings.TrimPrefix(strings.TrimPrefix(data, "plan:"), "checkout_")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Callback{}, invalid
		}
		return Callback{Action: ActionPlan, PlanID: id}, nil
	case strings.HasPrefix(data, "bump:accept:"), strings.HasPrefix(data, "bump:decline:"):
		action, raw := ActionBumpAccept, strings.TrimPrefix(data, "bump:accept:")
		if strings.HasPrefix(data, "bump:decline:") {
			action, raw = ActionBumpDecline, strings.TrimPrefix(data, "bump:decline:")
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Callback{}, invalid
		}
		return Callback{Action: action, PlanID: id}, nil
	case strings.HasPrefix(data, "promo:"), strings.HasPrefix(data, "promo_"):
		id := strings.TrimPrefix(strings.TrimPrefix(data, "promo:"), "promo_")
		if id == "" {
			return Callback{}, invalid
		}
		return Callback{Action: ActionPromo, CampaignID: id}, nil
	}
	return Callback{}, invalid
}
