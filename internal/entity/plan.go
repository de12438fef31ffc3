package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrPlanNotFound = errors.New("plano não encontrado")

// LifetimeThresholdDays: planos com duração igual ou maior são vitalícios (o painel grava 99999).
const LifetimeThresholdDays = 90000

type Plan struct {
	ID             int64  `json:"id"`
	BotID          int64  `json:"bot_id"`
	KeyID          string `json:"key_id,omitempty"`
	Name           string `json:"nome_exibicao"`
	Description    string `json:"descricao,omitempty"`
	FullPriceCents int64  `json:"preco_cheio"`
	PriceCents     int64  `json:"preco_atual"`
	DurationDays   int    `json:"dias_duracao"`
}

func (p *Plan) IsLifetime() bool {
	return p.DurationDays >= LifetimeThresholdDays
}

type PlanRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*Plan, error)
	ListByBot(ctx context.Context, botID int64) ([]*Plan, error)
}

// FormatBRL formata centavos como "R$ 19,90".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	reais := cents / 100
	s := fmt.Sprintf("%d", reais)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("R$ %s%s,%02d", sign, b.String(), cents%100)
}
