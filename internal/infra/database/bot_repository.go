package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

type BotRepository struct {
	DB *sql.DB
}

func NewBotRepository(db *sql.DB) *BotRepository {
	return &BotRepository{DB: db}
}

const botColumns = `id, nome, token, username, id_canal_vip, admin_principal_id, suporte_username, status, created_at`

func (r *BotRepository) FindByID(ctx context.Context, id int64) (*entity.Bot, error) {
	return r.findOne(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id)
}

func (r *BotRepository) FindByToken(ctx context.Context, token string) (*entity.Bot, error) {
	return r.findOne(ctx, `SELECT `+botColumns+` FROM bots WHERE token = $1`, token)
}

func (r *BotRepository) findOne(ctx context.Context, query string, arg any) (*entity.Bot, error) {
	var (
		b                             entity.Bot
		username, channel, admin, sup sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&b.ID,
		&b.Name,
		&b.Token,
		&username,
		&channel,
		&admin,
		&sup,
		&b.Status,
		&b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrBotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar bot: %w", err)
	}
	b.Username = stringOrEmpty(username)
	b.VIPChannelID = stringOrEmpty(channel)
	b.AdminPrincipalID = stringOrEmpty(admin)
	b.SupportUsername = stringOrEmpty(sup)
	return &b, nil
}

type AdminRepository struct {
	DB *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{DB: db}
}

func (r *AdminRepository) IsAdmin(ctx context.Context, botID int64, telegramID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bot_admins WHERE bot_id = $1 AND telegram_id = $2)`,
		botID, telegramID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("erro ao consultar admin: %w", err)
	}
	return exists, nil
}

func (r *AdminRepository) ListByBot(ctx context.Context, botID int64) ([]*entity.Admin, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, bot_id, telegram_id, nome, created_at FROM bot_admins WHERE bot_id = $1 ORDER BY id`, botID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar admins: %w", err)
	}
	defer rows.Close()

	var admins []*entity.Admin
	for rows.Next() {
		var (
			a    entity.Admin
			name sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.BotID, &a.TelegramID, &name, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Name = stringOrEmpty(name)
		admins = append(admins, &a)
	}
	return admins, rows.Err()
}
