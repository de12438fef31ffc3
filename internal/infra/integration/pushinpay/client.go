package pushinpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const DefaultBaseURL = "https://api.pushinpay.com.br"

// Client gera cobranças PIX (cash-in) na PushinPay.
type Client struct {
	baseURL    string
	token      string
	webhookURL string
	http       *http.Client
}

func NewClient(token, baseURL, webhookURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateCharge cria o PIX. O valor vai em centavos.
func (c *Client) CreateCharge(ctx context.Context, input entity.ChargeRequest) (*entity.Charge, error) {
	if c.token == "" {
		return nil, fmt.Errorf("token pushinpay não configurado")
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("valor inválido para cobrança: %d", input.AmountCents)
	}

	payload := cashInRequest{
		Value:             input.AmountCents,
		WebhookURL:        c.webhookURL,
		ExternalReference: input.Reference,
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pix/cashIn", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro na conexão com pushinpay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("❌ [PUSHINPAY] Cobrança recusada (status %d): %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("api pushinpay rejeitou (status %d)", resp.StatusCode)
	}

	var response cashInResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("erro ao ler resposta pushinpay: %w", err)
	}
	if response.pixCode() == "" {
		return nil, fmt.Errorf("pushinpay não devolveu código pix")
	}

	return &entity.Charge{
		ChargeID: strings.ToLower(response.ID),
		PixCode:  response.pixCode(),
	}, nil
}

// ChargeStatus consulta uma transação pelo id.
func (c *Client) ChargeStatus(ctx context.Context, chargeID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/transactions/"+chargeID, nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("erro na conexão com pushinpay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api pushinpay rejeitou consulta (status %d)", resp.StatusCode)
	}
	var response transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("erro ao ler resposta pushinpay: %w", err)
	}
	return response.Status, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
