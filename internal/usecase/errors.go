package usecase

import "errors"

const (
	CodeBotNotFound      = "BOT_NOT_FOUND"
	CodePlanNotFound     = "PLAN_NOT_FOUND"
	CodeCampaignNotFound = "CAMPAIGN_NOT_FOUND"
	CodeOfferExpired     = "OFFER_EXPIRED"
	CodeInvalidCallback  = "INVALID_CALLBACK"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeEmptyAudience    = "EMPTY_AUDIENCE"

	CodeDatabaseError = "DATABASE_ERROR"
	CodePaymentFailed = "PAYMENT_FAILED"
	CodeLockFailed    = "LOCK_FAILED"
	CodeSendFailed    = "SEND_FAILED"
)

// DomainError é erro de regra de negócio: o chamador pode mostrar a mensagem.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError é falha de infraestrutura (banco, provedor, lock).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ErrorCode devolve o código de um DomainError ou TechnicalError, ou "" para outros erros.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
