package usecase

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// messageLimit é o tamanho máximo de texto aceito pelo sendMessage.
const messageLimit = 4096

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateCampaignRequest confere o pedido de disparo antes de tocar no banco.
func ValidateCampaignRequest(req CampaignRequest) []ValidationError {
	var errors []ValidationError

	msg := strings.TrimSpace(req.Message)
	media := strings.TrimSpace(req.Media)

	if msg == "" && media == "" {
		errors = append(errors, ValidationError{"mensagem", "mensagem ou mídia obrigatória"})
	} else if utf8.RuneCountInString(req.Message) > messageLimit {
		errors = append(errors, ValidationError{"mensagem", fmt.Sprintf("não pode passar de %d caracteres", messageLimit)})
	}

	if media != "" && !isValidMediaURL(media) {
		errors = append(errors, ValidationError{"media_url", "deve ser uma URL http(s)"})
	}

	switch req.PriceMode {
	case "", PriceModeOriginal, PriceModeCustom:
	default:
		errors = append(errors, ValidationError{"price_mode", "deve ser original ou custom"})
	}
	if req.CustomPriceCents < 0 {
		errors = append(errors, ValidationError{"custom_price", "não pode ser negativo"})
	}

	if !isValidExpirationMode(req.ExpirationMode) {
		errors = append(errors, ValidationError{"expiration_mode", "deve ser none, minutes, hours ou days"})
	}
	if req.ExpirationValue < 0 {
		errors = append(errors, ValidationError{"expiration_value", "não pode ser negativo"})
	}

	return errors
}

// validationFailure junta os erros num DomainError de pedido inválido.
func validationFailure(errs []ValidationError) error {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return &DomainError{Code: CodeInvalidRequest, Message: strings.Join(parts, "; ")}
}

func isValidMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isValidExpirationMode(mode string) bool {
	switch strings.ToLower(mode) {
	case "", ExpirationNone, ExpirationMinutes, ExpirationHours, ExpirationDays:
		return true
	}
	return false
}
