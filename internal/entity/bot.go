package entity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrBotNotFound = errors.New("bot não encontrado")

const (
	BotStatusActive = "ativo"
	BotStatusPaused = "pausado"
)

// Bot é um bot do Telegram operado pela plataforma. Cada bot vende acesso a um canal VIP.
type Bot struct {
	ID               int64     `json:"id"`
	Name             string    `json:"nome"`
	Token            string    `json:"-"`
	Username         string    `json:"username"`
	VIPChannelID     string    `json:"id_canal_vip"`
	AdminPrincipalID string    `json:"admin_principal_id"`
	SupportUsername  string    `json:"suporte_username"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func (b *Bot) IsPaused() bool {
	return b.Status == BotStatusPaused
}

// VIPChannel devolve o id do canal sem espaços (o painel salva com espaços às vezes).
func (b *Bot) VIPChannel() string {
	return strings.TrimSpace(b.VIPChannelID)
}

// IsVIPChannel compara o chat do evento com o canal configurado.
func (b *Bot) IsVIPChannel(chatID string) bool {
	return b.VIPChannel() != "" && b.VIPChannel() == strings.TrimSpace(chatID)
}

type BotRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*Bot, error)
	FindByToken(ctx context.Context, token string) (*Bot, error)
}

// Admin é um administrador de um bot. Admins nunca são removidos do canal.
type Admin struct {
	ID         int64     `json:"id"`
	BotID      int64     `json:"bot_id"`
	TelegramID string    `json:"telegram_id"`
	Name       string    `json:"nome"`
	CreatedAt  time.Time `json:"created_at"`
}

type AdminRepositoryInterface interface {
	IsAdmin(ctx context.Context, botID int64, telegramID string) (bool, error)
	ListByBot(ctx context.Context, botID int64) ([]*Admin, error)
}
