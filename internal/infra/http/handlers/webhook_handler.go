package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/xavierca1/ligue-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

const maxWebhookBody = 1 << 20

type Reconciler interface {
	Reconcile(ctx context.Context, n usecase.PaymentNotification) (*usecase.ReconcileResult, error)
}

// WebhookHandler recebe as notificações PIX. Erro técnico devolve 500 para o provedor reenviar.
type WebhookHandler struct {
	Reconciler Reconciler
}

func NewWebhookHandler(reconciler Reconciler) *WebhookHandler {
	return &WebhookHandler{Reconciler: reconciler}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	n, err := parseNotification(r)
	if err != nil {
		log.Printf("⚠️ [WEBHOOK] Corpo inválido: %v", err)
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_BODY", "corpo da notificação inválido")
		return
	}

	result, err := h.Reconciler.Reconcile(r.Context(), n)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	middleware.RecordReconcile(result.Outcome)
	writeJSON(w, http.StatusOK, result)
}

// parseNotification aceita JSON (objetos aninhados viram "pai.filho") ou form. Parâmetros da
// query completam o que o corpo não trouxer (Mercado Pago manda data.id na URL).
func parseNotification(r *http.Request) (usecase.PaymentNotification, error) {
	n := usecase.PaymentNotification{}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	trimmed := strings.TrimSpace(string(body))
	switch {
	case trimmed == "":
	case mediaType == "application/json" || strings.HasPrefix(trimmed, "{"):
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		flatten("", raw, n)
	default:
		values, err := url.ParseQuery(trimmed)
		if err != nil {
			return nil, err
		}
		addValues(values, n)
	}

	addValues(r.URL.Query(), n)
	return n, nil
}

func addValues(values url.Values, n usecase.PaymentNotification) {
	for k, v := range values {
		if _, ok := n[k]; !ok && len(v) > 0 {
			n[k] = v[0]
		}
	}
}

func flatten(prefix string, raw map[string]any, out usecase.PaymentNotification) {
	for k, v := range raw {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
		case string:
			out[key] = val
		case []any:
			// listas não carregam id nem status
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
