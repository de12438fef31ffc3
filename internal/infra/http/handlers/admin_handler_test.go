package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-funnel/internal/entity"
	"github.com/xavierca1/ligue-funnel/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

func adminRouter(h *handlers.AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/sweeper/run", h.RunSweeper)
	r.Post("/remarketing/send", h.SendCampaign)
	r.Get("/remarketing/status/{campaignId}", h.CampaignStatus)
	r.Get("/remarketing/history/{botId}", h.CampaignHistory)
	r.Delete("/remarketing/history/{id}", h.DeleteHistory)
	r.Post("/remarketing/send-individual", h.SendIndividual)
	r.Get("/bots/{botId}/audience/{segment}", h.Audience)
	r.Post("/bots/{botId}/webhook", h.RegisterWebhook)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// ============ TESTES DO ADMIN ============

// TestAdminRunSweeper - varredura manual devolve o resumo
func TestAdminRunSweeper(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("RunOnce", mock.Anything).Return(usecase.SweepResult{Checked: 3, Revoked: 2, Exempted: 1}, nil)

	w := do(adminRouter(&handlers.AdminHandler{Sweeper: sweeper}), http.MethodPost, "/sweeper/run", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var res usecase.SweepResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Revoked)
	assert.Equal(t, 1, res.Exempted)
}

// TestAdminRunSweeperFailure - falha ao listar pedidos vira 500
func TestAdminRunSweeperFailure(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("RunOnce", mock.Anything).Return(usecase.SweepResult{}, &usecase.TechnicalError{Code: usecase.CodeDatabaseError, Message: "falha"})

	w := do(adminRouter(&handlers.AdminHandler{Sweeper: sweeper}), http.MethodPost, "/sweeper/run", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), usecase.CodeDatabaseError)
}

// TestAdminSendCampaign - disparo aceito responde 202 com o id da campanha
func TestAdminSendCampaign(t *testing.T) {
	campaigns := new(MockCampaigns)
	campaigns.On("Start", mock.Anything, mock.MatchedBy(func(req usecase.CampaignRequest) bool {
		return req.BotID == 1 && req.Target == "pendentes" && req.PlanID == 10 &&
			req.PriceMode == usecase.PriceModeCustom && req.CustomPriceCents == 990 && !req.TestMode
	})).Return(usecase.CampaignProgress{CampaignID: "camp-1", Status: usecase.ProgressRunning, Total: 12}, nil)

	w := do(adminRouter(&handlers.AdminHandler{Campaigns: campaigns}), http.MethodPost, "/remarketing/send", `{
		"bot_id": 1,
		"target": "pendentes",
		"mensagem": "Volta!",
		"plano_id": 10,
		"price_mode": "custom",
		"custom_price": 990,
		"expiration_mode": "hours",
		"expiration_value": 2
	}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var p usecase.CampaignProgress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "camp-1", p.CampaignID)
	assert.Equal(t, 12, p.Total)
	campaigns.AssertExpectations(t)
}

// TestAdminSendCampaignErrors - JSON inválido e público vazio
func TestAdminSendCampaignErrors(t *testing.T) {
	campaigns := new(MockCampaigns)
	campaigns.On("Start", mock.Anything, mock.Anything).
		Return(usecase.CampaignProgress{}, &usecase.DomainError{Code: usecase.CodeEmptyAudience, Message: "vazio"})
	router := adminRouter(&handlers.AdminHandler{Campaigns: campaigns})

	w := do(router, http.MethodPost, "/remarketing/send", `{quebrado`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_JSON")

	w = do(router, http.MethodPost, "/remarketing/send", `{"bot_id": 1, "mensagem": "x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), usecase.CodeEmptyAudience)
}

// TestAdminCampaignStatus - status por id, 404 quando não existe
func TestAdminCampaignStatus(t *testing.T) {
	campaigns := new(MockCampaigns)
	campaigns.On("Status", mock.Anything, "camp-1").Return(usecase.CampaignProgress{CampaignID: "camp-1", Sent: 5}, nil)
	campaigns.On("Status", mock.Anything, "x").Return(usecase.CampaignProgress{}, &usecase.DomainError{Code: usecase.CodeCampaignNotFound})
	router := adminRouter(&handlers.AdminHandler{Campaigns: campaigns})

	w := do(router, http.MethodGet, "/remarketing/status/camp-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sent":5`)

	w = do(router, http.MethodGet, "/remarketing/status/x", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestAdminHistory - paginação e remoção do histórico
func TestAdminHistory(t *testing.T) {
	campaigns := new(MockCampaigns)
	campaigns.On("History", mock.Anything, int64(1), 2).Return([]*entity.RemarketingCampaign{{ID: 21, CampaignID: "c21"}}, nil)
	campaigns.On("DeleteHistory", mock.Anything, int64(21)).Return(nil)
	campaigns.On("DeleteHistory", mock.Anything, int64(22)).Return(&usecase.DomainError{Code: usecase.CodeCampaignNotFound})
	router := adminRouter(&handlers.AdminHandler{Campaigns: campaigns})

	w := do(router, http.MethodGet, "/remarketing/history/1?page=2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "c21")

	w = do(router, http.MethodGet, "/remarketing/history/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_PARAM")

	w = do(router, http.MethodDelete, "/remarketing/history/21", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodDelete, "/remarketing/history/22", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	campaigns.AssertExpectations(t)
}

// TestAdminSendIndividual - reenvio para um contato
func TestAdminSendIndividual(t *testing.T) {
	campaigns := new(MockCampaigns)
	campaigns.On("ResendIndividual", mock.Anything, usecase.ResendRequest{HistoryID: 5, ContactID: "555"}).Return(nil)
	campaigns.On("ResendIndividual", mock.Anything, usecase.ResendRequest{HistoryID: 5, ContactID: "666"}).
		Return(&usecase.TechnicalError{Code: usecase.CodeSendFailed, Message: "bloqueado"})
	router := adminRouter(&handlers.AdminHandler{Campaigns: campaigns})

	w := do(router, http.MethodPost, "/remarketing/send-individual", `{"history_id": 5, "user_telegram_id": "555"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/remarketing/send-individual", `{"history_id": 5, "user_telegram_id": "666"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// TestAdminAudience - público de um segmento com total
func TestAdminAudience(t *testing.T) {
	seg := new(MockSegmenter)
	seg.On("Segment", mock.Anything, int64(1), "pagantes").Return(&usecase.Audience{
		Segment: "pagantes",
		Members: []usecase.AudienceMember{{ContactID: "3", Stage: entity.StageFundo}},
	}, nil)

	w := do(adminRouter(&handlers.AdminHandler{Segmenter: seg}), http.MethodGet, "/bots/1/audience/pagantes", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Segment string                   `json:"segment"`
		Total   int                      `json:"total"`
		Members []usecase.AudienceMember `json:"members"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "pagantes", body.Segment)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "3", body.Members[0].ContactID)
}

// TestAdminRegisterWebhook - registra a URL pública com o token do bot
func TestAdminRegisterWebhook(t *testing.T) {
	bots := new(MockBotRepository)
	bots.On("FindByID", mock.Anything, int64(1)).Return(bot, nil)
	bots.On("FindByID", mock.Anything, int64(2)).Return(nil, entity.ErrBotNotFound)
	registrar := new(MockRegistrar)
	registrar.On("SetWebhook", mock.Anything, "123:abc", "https://api.exemplo.com/webhook/telegram/123:abc").Return(nil).Once()

	h := &handlers.AdminHandler{BotRepo: bots, Registrar: registrar, PublicBaseURL: "https://api.exemplo.com/"}
	router := adminRouter(h)

	w := do(router, http.MethodPost, "/bots/1/webhook", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/bots/2/webhook", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	registrar.AssertExpectations(t)
}

// TestAdminRegisterWebhookFailures - sem URL pública ou Telegram recusando
func TestAdminRegisterWebhookFailures(t *testing.T) {
	bots := new(MockBotRepository)
	bots.On("FindByID", mock.Anything, int64(1)).Return(bot, nil)
	registrar := new(MockRegistrar)
	registrar.On("SetWebhook", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("Unauthorized"))

	w := do(adminRouter(&handlers.AdminHandler{BotRepo: bots, Registrar: registrar}), http.MethodPost, "/bots/1/webhook", "")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	h := &handlers.AdminHandler{BotRepo: bots, Registrar: registrar, PublicBaseURL: "https://api.exemplo.com"}
	w = do(adminRouter(h), http.MethodPost, "/bots/1/webhook", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "TELEGRAM_ERROR")
}

// ============ TESTES DO HEALTH ============

// TestHealthHandler - dependências opcionais e degradadas
func TestHealthHandler(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	t.Run("tudo de pé", func(t *testing.T) {
		h := handlers.NewHealthHandler(nil, map[string]handlers.Checker{"redis": ok, "rabbitmq": nil})
		w := httptest.NewRecorder()

		h.Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var res handlers.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "healthy", res.Status)
		assert.Equal(t, "not configured", res.Dependencies["database"])
		assert.Equal(t, "not configured", res.Dependencies["rabbitmq"])
		assert.Equal(t, "healthy", res.Dependencies["redis"])
	})

	t.Run("redis fora", func(t *testing.T) {
		h := handlers.NewHealthHandler(nil, map[string]handlers.Checker{"redis": down})
		w := httptest.NewRecorder()

		h.Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
		assert.Contains(t, w.Body.String(), "degraded")
	})
}
