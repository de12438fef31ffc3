package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/xavierca1/ligue-funnel/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// writeUseCaseError traduz DomainError/TechnicalError em status HTTP.
func writeUseCaseError(w http.ResponseWriter, err error) {
	code := usecase.ErrorCode(err)
	status := http.StatusInternalServerError

	switch code {
	case usecase.CodeBotNotFound, usecase.CodePlanNotFound, usecase.CodeCampaignNotFound:
		status = http.StatusNotFound
	case usecase.CodeInvalidRequest, usecase.CodeInvalidCallback, usecase.CodeOfferExpired:
		status = http.StatusBadRequest
	case usecase.CodeEmptyAudience:
		status = http.StatusUnprocessableEntity
	case usecase.CodePaymentFailed, usecase.CodeSendFailed:
		status = http.StatusBadGateway
	case "":
		code = "INTERNAL_ERROR"
	}

	if status >= 500 {
		log.Printf("❌ [HTTP] %s: %v", code, err)
	}
	writeErrorResponse(w, status, code, err.Error())
}
