package pushinpay

type cashInRequest struct {
	Value             int64  `json:"value"`
	WebhookURL        string `json:"webhook_url,omitempty"`
	ExternalReference string `json:"external_reference"`
}

// cashInResponse: versões antigas da API devolviam qr_code em vez de qr_code_text.
type cashInResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Value        int64  `json:"value"`
	QRCodeText   string `json:"qr_code_text"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

func (r cashInResponse) pixCode() string {
	if r.QRCodeText != "" {
		return r.QRCodeText
	}
	return r.QRCode
}

type transactionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
