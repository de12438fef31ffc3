package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/xavierca1/ligue-funnel/internal/entity"
)

var ErrDuplicateCharge = errors.New("transaction_id já usado por outro pedido")

type OrderRepository struct {
	DB *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

const orderColumns = `
	id, bot_id, telegram_id, first_name, username, plano_id, plano_nome, valor_cents, status,
	transaction_id, qr_code, tem_order_bump, mensagem_enviada, origem, data_aprovacao, data_expiracao,
	primeiro_contato, escolheu_plano_em, gerou_pix_em, created_at, updated_at`

const markPaidQuery = `
		UPDATE pedidos
		SET status = $2, data_aprovacao = $3, data_expiracao = $4, mensagem_enviada = FALSE, updated_at = $3
		WHERE id = $1 AND status = $5 AND LOWER(transaction_id) = LOWER($6)`

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*entity.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM pedidos WHERE id = $1`, id)
}

func (r *OrderRepository) FindByBotAndContact(ctx context.Context, botID int64, contactID string) (*entity.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM pedidos WHERE bot_id = $1 AND telegram_id = $2`, botID, contactID)
}

// FindByChargeID compara sem diferenciar maiúsculas: provedores devolvem o id em caixas diferentes.
func (r *OrderRepository) FindByChargeID(ctx context.Context, chargeID string) (*entity.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM pedidos WHERE LOWER(transaction_id) = LOWER($1)`, chargeID)
}

// Save faz o upsert pela chave (bot_id, telegram_id). O primeiro contato original é preservado.
func (r *OrderRepository) Save(ctx context.Context, o *entity.Order) error {
	query := `
		INSERT INTO pedidos (
			bot_id, telegram_id, first_name, username, plano_id, plano_nome, valor_cents, status,
			transaction_id, qr_code, tem_order_bump, mensagem_enviada, origem, data_aprovacao,
			data_expiracao, primeiro_contato, escolheu_plano_em, gerou_pix_em, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (bot_id, telegram_id)
		DO UPDATE SET
			first_name = EXCLUDED.first_name,
			username = EXCLUDED.username,
			plano_id = EXCLUDED.plano_id,
			plano_nome = EXCLUDED.plano_nome,
			valor_cents = EXCLUDED.valor_cents,
			status = EXCLUDED.status,
			transaction_id = EXCLUDED.transaction_id,
			qr_code = EXCLUDED.qr_code,
			tem_order_bump = EXCLUDED.tem_order_bump,
			mensagem_enviada = EXCLUDED.mensagem_enviada,
			data_aprovacao = EXCLUDED.data_aprovacao,
			data_expiracao = EXCLUDED.data_expiracao,
			primeiro_contato = COALESCE(pedidos.primeiro_contato, EXCLUDED.primeiro_contato),
			escolheu_plano_em = EXCLUDED.escolheu_plano_em,
			gerou_pix_em = EXCLUDED.gerou_pix_em,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = o.UpdatedAt
	}

	err := r.DB.QueryRowContext(ctx, query,
		o.BotID,
		o.ContactID,
		nullString(o.FirstName),
		nullString(o.Username),
		o.PlanID,
		o.PlanName,
		o.PriceCents,
		o.Status,
		nullString(o.ChargeID),
		nullString(o.PixCode),
		o.HasUpsell,
		o.Delivered,
		o.Origin,
		o.PaidAt,
		o.ExpiresAt,
		o.FirstContactAt,
		o.PlanChosenAt,
		o.ChargedAt,
		createdAt,
		o.UpdatedAt,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCharge
		}
		log.Printf("Erro crítico no banco ao salvar pedido: %v", err)
		return fmt.Errorf("erro ao salvar pedido: %w", err)
	}
	return nil
}

func (r *OrderRepository) SetCharge(ctx context.Context, orderID int64, chargeID, pixCode string, chargedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE pedidos SET transaction_id = $2, qr_code = $3, gerou_pix_em = $4, updated_at = $4 WHERE id = $1`,
		orderID, chargeID, nullString(pixCode), chargedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateCharge
	}
	if err != nil {
		return fmt.Errorf("erro ao gravar cobrança do pedido %d: %w", orderID, err)
	}
	return nil
}

// MarkPaid só troca pending -> paid e só se o pedido ainda for da cobrança paga. Duas entregas
// simultâneas da mesma notificação: uma aplica, a outra recebe false. Um checkout novo no meio
// troca o transaction_id e a cobrança antiga não aprova o pedido novo.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID int64, chargeID string, paidAt time.Time, expiresAt *time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, markPaidQuery,
		orderID, entity.OrderStatusPaid, paidAt, expiresAt, entity.OrderStatusPending, chargeID,
	)
	if err != nil {
		return false, fmt.Errorf("erro ao aprovar pedido %d: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *OrderRepository) MarkDelivered(ctx context.Context, orderID int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE pedidos SET mensagem_enviada = TRUE, updated_at = NOW() WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("erro ao marcar entrega do pedido %d: %w", orderID, err)
	}
	return nil
}

func (r *OrderRepository) MarkExpired(ctx context.Context, orderID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE pedidos SET status = $2, updated_at = NOW() WHERE id = $1`, orderID, entity.OrderStatusExpired)
	if err != nil {
		return fmt.Errorf("erro ao expirar pedido %d: %w", orderID, err)
	}
	return nil
}

// ListExpired devolve pedidos pagos (em qualquer grafia de status pago) com validade vencida.
func (r *OrderRepository) ListExpired(ctx context.Context, now time.Time) ([]*entity.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM pedidos
		WHERE LOWER(status) = ANY($1) AND data_expiracao IS NOT NULL AND data_expiracao < $2
		ORDER BY data_expiracao`,
		pq.Array(entity.PaidStatuses), now,
	)
}

func (r *OrderRepository) ListByBot(ctx context.Context, botID int64) ([]*entity.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM pedidos WHERE bot_id = $1 ORDER BY id`, botID)
}

func (r *OrderRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Order, error) {
	o, err := scanOrder(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar pedido: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]*entity.Order, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar pedidos: %w", err)
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(s scanner) (*entity.Order, error) {
	var (
		o                               entity.Order
		firstName, username, planName   sql.NullString
		chargeID, pixCode               sql.NullString
		planID                          sql.NullInt64
		paidAt, expiresAt, firstContact sql.NullTime
		planChosen, charged             sql.NullTime
	)
	err := s.Scan(
		&o.ID, &o.BotID, &o.ContactID, &firstName, &username, &planID, &planName, &o.PriceCents, &o.Status,
		&chargeID, &pixCode, &o.HasUpsell, &o.Delivered, &o.Origin, &paidAt, &expiresAt,
		&firstContact, &planChosen, &charged, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.FirstName = stringOrEmpty(firstName)
	o.Username = stringOrEmpty(username)
	o.PlanID = planID.Int64
	o.PlanName = stringOrEmpty(planName)
	o.ChargeID = stringOrEmpty(chargeID)
	o.PixCode = stringOrEmpty(pixCode)
	o.PaidAt = timePtr(paidAt)
	o.ExpiresAt = timePtr(expiresAt)
	o.FirstContactAt = timePtr(firstContact)
	o.PlanChosenAt = timePtr(planChosen)
	o.ChargedAt = timePtr(charged)
	return &o, nil
}
