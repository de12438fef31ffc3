package mercadopago

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/xavierca1/ligue-funnel/internal/entity"
)

var ErrMissingAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")

// Gateway gera PIX pelo Mercado Pago. Alternativa à PushinPay.
type Gateway struct {
	client       payment.Client
	payerEmail   string
	notification string
}

func NewGateway(accessToken, payerEmail, notificationURL string) (*Gateway, error) {
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("erro ao configurar sdk mercado pago: %w", err)
	}
	log.Printf("💳 [MERCADOPAGO] Cliente inicializado")
	return &Gateway{client: payment.NewClient(cfg), payerEmail: payerEmail, notification: notificationURL}, nil
}

func (g *Gateway) CreateCharge(ctx context.Context, input entity.ChargeRequest) (*entity.Charge, error) {
	email := input.PayerEmail
	if email == "" {
		email = g.payerEmail
	}
	req := payment.Request{
		TransactionAmount: float64(input.AmountCents) / 100,
		PaymentMethodID:   "pix",
		Description:       input.Description,
		ExternalReference: input.Reference,
		NotificationURL:   g.notification,
		Payer:             &payment.PayerRequest{Email: email},
	}

	resp, err := g.client.Create(ctx, req)
	if err != nil {
		log.Printf("❌ [MERCADOPAGO] Falha ao criar pagamento %s: %v", input.Reference, err)
		return nil, fmt.Errorf("erro ao criar pix mercado pago: %w", err)
	}

	qr := resp.PointOfInteraction.TransactionData.QRCode
	if qr == "" {
		return nil, fmt.Errorf("mercado pago não devolveu código pix (pagamento %d)", resp.ID)
	}
	return &entity.Charge{
		ChargeID:  strconv.Itoa(resp.ID),
		PixCode:   qr,
		QRCodeURL: resp.PointOfInteraction.TransactionData.TicketURL,
	}, nil
}

// ChargeStatus busca o pagamento: a notificação do Mercado Pago não traz o status.
func (g *Gateway) ChargeStatus(ctx context.Context, chargeID string) (string, error) {
	id, err := strconv.Atoi(chargeID)
	if err != nil {
		return "", fmt.Errorf("id de pagamento inválido: %s", chargeID)
	}
	resp, err := g.client.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("erro ao consultar pagamento %d: %w", id, err)
	}
	return resp.Status, nil
}
