package entity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrFlowNotFound      = errors.New("fluxo não configurado")
	ErrOrderBumpNotFound = errors.New("order bump não configurado")
)

// FlowConfig guarda as mensagens fixas do funil: boas-vindas e oferta final.
type FlowConfig struct {
	BotID               int64  `json:"bot_id"`
	WelcomeText         string `json:"msg_boas_vindas"`
	WelcomeMedia        string `json:"media_url,omitempty"`
	WelcomeButton       string `json:"btn_text_1"`
	AutoDestructWelcome bool   `json:"autodestruir_1"`
	ShowPlansOnWelcome  bool   `json:"mostrar_planos_1"`
	OfferText           string `json:"msg_2_texto,omitempty"`
	OfferMedia          string `json:"msg_2_media,omitempty"`
	ShowPlansOnOffer    bool   `json:"mostrar_planos_2"`
}

// DefaultFlowConfig é usado quando o bot ainda não salvou fluxo no painel.
func DefaultFlowConfig(bot *Bot) *FlowConfig {
	return &FlowConfig{
		BotID:            bot.ID,
		WelcomeText:      "Olá! Eu sou o " + bot.Name + ".",
		WelcomeButton:    "🔓 DESBLOQUEAR ACESSO",
		ShowPlansOnOffer: true,
	}
}

// FlowStep é um passo intermediário do funil. A ordem é por StepOrder e pode ter buracos.
type FlowStep struct {
	ID           int64     `json:"id"`
	BotID        int64     `json:"bot_id"`
	StepOrder    int       `json:"step_order"`
	Text         string    `json:"msg_texto"`
	Media        string    `json:"msg_media,omitempty"`
	ButtonText   string    `json:"btn_texto"`
	AutoDestruct bool      `json:"autodestruir"`
	ShowButton   bool      `json:"mostrar_botao"`
	DelaySeconds int       `json:"delay_seconds"`
	CreatedAt    time.Time `json:"created_at"`
}

type FlowRepositoryInterface interface {
	FindConfig(ctx context.Context, botID int64) (*FlowConfig, error)
	ListSteps(ctx context.Context, botID int64) ([]*FlowStep, error)
}

// OrderBumpOffer é a oferta extra mostrada entre a escolha do plano e o pagamento.
type OrderBumpOffer struct {
	ID            int64  `json:"id"`
	BotID         int64  `json:"bot_id"`
	Active        bool   `json:"ativo"`
	Name          string `json:"nome_produto"`
	PriceCents    int64  `json:"preco"`
	AccessLink    string `json:"link_acesso,omitempty"`
	AutoDestruct  bool   `json:"autodestruir"`
	Text          string `json:"msg_texto"`
	Media         string `json:"msg_media,omitempty"`
	AcceptButton  string `json:"btn_aceitar"`
	DeclineButton string `json:"btn_recusar"`
}

type OrderBumpRepositoryInterface interface {
	FindByBot(ctx context.Context, botID int64) (*OrderBumpOffer, error)
}
