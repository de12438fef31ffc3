package entity

// Button é um botão inline: texto visível e o callback que volta no webhook.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// User é quem fala com o bot (vem do Telegram).
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
	IsBot     bool   `json:"is_bot"`
}

// ChargeRequest é o pedido de cobrança PIX enviado ao provedor.
type ChargeRequest struct {
	AmountCents int64
	Reference   string
	Description string
	PayerEmail  string
}

// Charge é a cobrança criada pelo provedor.
type Charge struct {
	ChargeID  string
	PixCode   string
	QRCodeURL string
}
