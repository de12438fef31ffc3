package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/xavierca1/ligue-funnel/internal/entity"
	"github.com/xavierca1/ligue-funnel/internal/usecase"
	"gopkg.in/gomail.v2"
)

var saleTemplate = template.Must(template.New("sale").Parse(`
<h2>💰 Nova venda em {{.BotName}}</h2>
<p><b>Cliente:</b> {{.Customer}}{{if .Username}} (@{{.Username}}){{end}}</p>
<p><b>Plano:</b> {{.PlanName}}</p>
<p><b>Valor:</b> {{.Price}}</p>
<p><b>Validade:</b> {{.ExpiresAt}}</p>
`))

func NewEmailSender(host string, port int, user, password, from, to string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

// NotifySale avisa o operador por e-mail. Implementa usecase.OperatorNotifier.
func (s *EmailSender) NotifySale(ctx context.Context, sale usecase.SaleNotice) error {
	body, err := RenderSale(sale)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from())
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("Nova venda: %s - %s", sale.PlanName, entity.FormatBRL(sale.PriceCents)))
	m.SetBody("text/html", body)

	if err := ctx.Err(); err != nil {
		return err
	}
	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return nil
}

func RenderSale(sale usecase.SaleNotice) (string, error) {
	data := SaleEmailData{
		BotName:   sale.BotName,
		Customer:  sale.Customer,
		Username:  sale.Username,
		PlanName:  sale.PlanName,
		Price:     entity.FormatBRL(sale.PriceCents),
		ExpiresAt: "vitalício",
	}
	if sale.ExpiresAt != nil {
		data.ExpiresAt = sale.ExpiresAt.Format("02/01/2006")
	}

	var body bytes.Buffer
	if err := saleTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("erro ao processar template: %w", err)
	}
	return body.String(), nil
}

func (s *EmailSender) from() string {
	if s.From != "" {
		return s.From
	}
	return s.User
}
