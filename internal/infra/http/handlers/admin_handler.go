package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-funnel/internal/entity"
	"github.com/xavierca1/ligue-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

type Sweeper interface {
	RunOnce(ctx context.Context) (usecase.SweepResult, error)
}

type Campaigns interface {
	Start(ctx context.Context, req usecase.CampaignRequest) (usecase.CampaignProgress, error)
	Status(ctx context.Context, campaignID string) (usecase.CampaignProgress, error)
	History(ctx context.Context, botID int64, page int) ([]*entity.RemarketingCampaign, error)
	DeleteHistory(ctx context.Context, id int64) error
	ResendIndividual(ctx context.Context, req usecase.ResendRequest) error
}

type Segmenter interface {
	Segment(ctx context.Context, botID int64, name string) (*usecase.Audience, error)
}

type WebhookRegistrar interface {
	SetWebhook(ctx context.Context, token, url string) error
}

// AdminHandler expõe as operações do painel: varredura manual, remarketing, públicos e webhook.
type AdminHandler struct {
	Sweeper       Sweeper
	Campaigns     Campaigns
	Segmenter     Segmenter
	BotRepo       entity.BotRepositoryInterface
	Registrar     WebhookRegistrar
	PublicBaseURL string
}

func (h *AdminHandler) RunSweeper(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sweeper.RunOnce(r.Context())
	middleware.RecordRevocations("sweeper", res.Revoked)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	var req usecase.CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return
	}

	progress, err := h.Campaigns.Start(r.Context(), req)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, progress)
}

func (h *AdminHandler) CampaignStatus(w http.ResponseWriter, r *http.Request) {
	progress, err := h.Campaigns.Status(r.Context(), chi.URLParam(r, "campaignId"))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *AdminHandler) CampaignHistory(w http.ResponseWriter, r *http.Request) {
	botID, ok := int64Param(w, r, "botId")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	list, err := h.Campaigns.History(r.Context(), botID, page)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	if err := h.Campaigns.DeleteHistory(r.Context(), id); err != nil {
		writeUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) SendIndividual(w http.ResponseWriter, r *http.Request) {
	var req usecase.ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return
	}
	if err := h.Campaigns.ResendIndividual(r.Context(), req); err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) Audience(w http.ResponseWriter, r *http.Request) {
	botID, ok := int64Param(w, r, "botId")
	if !ok {
		return
	}
	aud, err := h.Segmenter.Segment(r.Context(), botID, chi.URLParam(r, "segment"))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"segment": aud.Segment,
		"total":   aud.Size(),
		"members": aud.Members,
	})
}

// RegisterWebhook aponta o webhook do bot para esta API.
func (h *AdminHandler) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	botID, ok := int64Param(w, r, "botId")
	if !ok {
		return
	}
	if h.PublicBaseURL == "" {
		writeErrorResponse(w, http.StatusPreconditionFailed, "MISSING_PUBLIC_URL", "PUBLIC_BASE_URL não configurada")
		return
	}

	bot, err := h.BotRepo.FindByID(r.Context(), botID)
	if errors.Is(err, entity.ErrBotNotFound) {
		writeErrorResponse(w, http.StatusNotFound, usecase.CodeBotNotFound, "bot não encontrado")
		return
	}
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, usecase.CodeDatabaseError, "falha ao buscar bot")
		return
	}

	url := strings.TrimRight(h.PublicBaseURL, "/") + "/webhook/telegram/" + bot.Token
	if err := h.Registrar.SetWebhook(r.Context(), bot.Token, url); err != nil {
		log.Printf("❌ [TELEGRAM] setWebhook do bot %d falhou: %v", bot.ID, err)
		middleware.RecordIntegrationError("telegram")
		writeErrorResponse(w, http.StatusBadGateway, "TELEGRAM_ERROR", err.Error())
		return
	}
	log.Printf("🔗 [TELEGRAM] Webhook do bot %d registrado", bot.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAM", name+" inválido")
		return 0, false
	}
	return v, true
}
