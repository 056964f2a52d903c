package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type Repository interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetSessionByRemoteID(ctx context.Context, providerID, remoteID string) (*Session, error)
	GetLatestSessionByResource(ctx context.Context, providerID, resourceID string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error

	SavePaymentWebhook(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		externalID string,
		payload json.RawMessage,
	) (webhookID int64, alreadyProcessed bool, err error)

	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const sessionColumns = `id, provider_id, resource_id, remote_id, status, amount, currency_code, data, created_at, updated_at`

func (r *repository) CreateSession(ctx context.Context, s *Session) error {
	const q = `
	INSERT INTO payment_sessions (
		id,
		provider_id,
		resource_id,
		remote_id,
		status,
		amount,
		currency_code,
		data
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at, updated_at;
	`

	return r.db.QueryRowContext(ctx, q,
		s.ID, s.ProviderID, s.ResourceID, s.RemoteID, s.Status, s.Amount, s.CurrencyCode, []byte(s.Data),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *repository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions WHERE id = $1
	`, id)
	return scanSession(row)
}

func (r *repository) GetSessionByRemoteID(ctx context.Context, providerID, remoteID string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions WHERE provider_id = $1 AND remote_id = $2
	`, providerID, remoteID)
	return scanSession(row)
}

func (r *repository) GetLatestSessionByResource(ctx context.Context, providerID, resourceID string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions WHERE provider_id = $1 AND resource_id = $2
		ORDER BY created_at DESC LIMIT 1
	`, providerID, resourceID)
	return scanSession(row)
}

func (r *repository) UpdateSession(ctx context.Context, s *Session) error {
	const q = `
	UPDATE payment_sessions
	SET status = $2, amount = $3, currency_code = $4, data = $5, updated_at = now()
	WHERE id = $1;
	`

	res, err := r.db.ExecContext(ctx, q, s.ID, s.Status, s.Amount, s.CurrencyCode, []byte(s.Data))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func scanSession(row *sql.Row) (*Session, error) {
	var (
		s    Session
		data []byte
	)
	err := row.Scan(
		&s.ID, &s.ProviderID, &s.ResourceID, &s.RemoteID, &s.Status,
		&s.Amount, &s.CurrencyCode, &data, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Data = json.RawMessage(data)
	return &s, nil
}

func (r *repository) SavePaymentWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	externalID string,
	payload json.RawMessage,
) (int64, bool, error) {

	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		external_id,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET received_at = now()
	RETURNING id, processed_at IS NOT NULL;
	`

	var (
		id        int64
		processed bool
	)
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		eventID,
		eventType,
		externalID,
		[]byte(payload),
	).Scan(&id, &processed)
	if err != nil {
		return 0, false, err
	}

	// A redelivery of a row that was never processed is handed back for another attempt.
	return id, processed, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	const q = `
	UPDATE payment_webhooks
	SET processed_at = now()
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	const q = `
	UPDATE payment_webhooks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return err
}
