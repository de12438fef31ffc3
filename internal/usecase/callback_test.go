package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		want Callback
	}{
		{"flow:start", Callback{Action: ActionFlowStart}},
		{"flow:checkout", Callback{Action: ActionCheckout}},
		{"flow:next:3", Callback{Action: ActionFlowNext, StepOrder: 3}},
		{"plan:12", Callback{Action: ActionPlan, PlanID: 12}},
		{"checkout_12", Callback{Action: ActionPlan, PlanID: 12}},
		{"bump:accept:5", Callback{Action: ActionBumpAccept, PlanID: 5}},
		{"bump:decline:5", Callback{Action: ActionBumpDecline, PlanID: 5}},
		{"promo:abc-123", Callback{Action: ActionPromo, CampaignID: "abc-123"}},
		{"promo_abc-123", Callback{Action: ActionPromo, CampaignID: "abc-123"}},
		{"passo_2", Callback{Action: ActionFlowStart}},
		{"next_step_3", Callback{Action: ActionFlowNext, StepOrder: 3}},
		{"go_checkout", Callback{Action: ActionCheckout}},
		{"  plan:7 ", Callback{Action: ActionPlan, PlanID: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := ParseCallback(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCallback_Invalid(t *testing.T) {
	for _, data := range []string{"", "xyz", "plan:", "plan:abc", "plan:0", "flow:next:x", "flow:next:-1", "next_step_", "next_step_x", "bump:accept:", "promo:"} {
		t.Run(data, func(t *testing.T) {
			_, err := ParseCallback(data)

			require.Error(t, err)
			assert.True(t, IsDomainError(err))
			assert.Equal(t, CodeInvalidCallback, ErrorCode(err))
		})
	}
}

func TestCallbackBuilders_RoundTrip(t *testing.T) {
	cb, err := ParseCallback(PlanCallback(9))
	require.NoError(t, err)
	assert.Equal(t, int64(9), cb.PlanID)

	cb, err = ParseCallback(NextStepCallback(4))
	require.NoError(t, err)
	assert.Equal(t, ActionFlowNext, cb.Action)
	assert.Equal(t, 4, cb.StepOrder)

	cb, err = ParseCallback(BumpCallback(false, 2))
	require.NoError(t, err)
	assert.Equal(t, ActionBumpDecline, cb.Action)

	cb, err = ParseCallback(PromoCallback("c1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", cb.CampaignID)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodePlanNotFound, ErrorCode(&DomainError{Code: CodePlanNotFound}))
	assert.Equal(t, CodeDatabaseError, ErrorCode(&TechnicalError{Code: CodeDatabaseError}))
	assert.Equal(t, "", ErrorCode(assert.AnError))

	te := &TechnicalError{Code: CodeSendFailed, Message: "falha", Err: assert.AnError}
	assert.ErrorIs(t, te, assert.AnError)
	assert.Equal(t, "falha: "+assert.AnError.Error(), te.Error())
}
