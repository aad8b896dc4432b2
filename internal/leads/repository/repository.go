package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"outreach_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("lead not found")
	ErrDuplicate = errors.New("lead already exists")
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, email, name, source, status, phone, message, hubspot_id, metadata, created_at, updated_at`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE lower(email) = $1`, domain.NormalizeEmail(email))
	return scanLead(row)
}

func (r *Repository) ListByStatusNotIn(ctx context.Context, excluded []domain.Status) ([]domain.Lead, error) {
	statuses := make([]string, 0, len(excluded))
	for _, s := range excluded {
		statuses = append(statuses, string(s))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE NOT (status = ANY($1::text[]))
		ORDER BY created_at ASC, email ASC
	`, statuses)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at ASC, email ASC`)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

func (r *Repository) Insert(ctx context.Context, params InsertParams) (domain.Lead, error) {
	if err := params.Metadata.Validate(); err != nil {
		return domain.Lead{}, err
	}
	meta, err := json.Marshal(params.Metadata)
	if err != nil {
		return domain.Lead{}, err
	}
	status := params.Status
	if status == "" {
		status = domain.StatusNew
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (id, email, name, source, status, phone, message, hubspot_id, metadata)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
		ON CONFLICT DO NOTHING
		RETURNING `+leadColumns,
		uuid.New(), domain.NormalizeEmail(params.Email), params.Name, params.Source, string(status),
		params.Phone, params.Message, params.CRMID, meta,
	)
	lead, err := scanLead(row)
	if errors.Is(err, ErrNotFound) {
		return domain.Lead{}, ErrDuplicate
	}
	return lead, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown lead status %q", status)
	}
	return r.execOne(ctx, `UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
}

func (r *Repository) SetCRMID(ctx context.Context, id uuid.UUID, crmID string) error {
	return r.execOne(ctx, `UPDATE leads SET hubspot_id = $2, updated_at = now() WHERE id = $1`, id, crmID)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `DELETE FROM leads WHERE id = $1`, id)
}

func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, params ProfileUpdate) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if params.Name != nil {
			tag, err := tx.Exec(ctx, `UPDATE leads SET name = $2, updated_at = now() WHERE id = $1`, id, *params.Name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrNotFound
			}
		}
		if params.Company == nil && params.Interest == nil {
			return nil
		}
		_, err := mutateMetadataTx(ctx, tx, id, func(m *domain.Metadata) error {
			if params.Company != nil {
				m.Company = *params.Company
			}
			if params.Interest != nil {
				m.Interest = *params.Interest
			}
			return nil
		})
		return err
	})
}

// UpdateMetadata locks the row, applies mutate and writes the validated result.
func (r *Repository) UpdateMetadata(ctx context.Context, id uuid.UUID, mutate func(*domain.Metadata) error) (domain.Metadata, error) {
	var out domain.Metadata
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		m, err := mutateMetadataTx(ctx, tx, id, mutate)
		out = m
		return err
	})
	return out, err
}

func (r *Repository) UpdateStageFields(ctx context.Context, id uuid.UUID, fields StageFields) (domain.Metadata, error) {
	return r.UpdateMetadata(ctx, id, func(m *domain.Metadata) error {
		m.RecordSend(fields.Stage, fields.LastContactedAt)
		return nil
	})
}

func (r *Repository) AppendEvent(ctx context.Context, leadID uuid.UUID, eventType string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lead_events (lead_id, event_type, details)
		VALUES ($1, $2, $3)
	`, leadID, eventType, payload)
	return err
}

// ListEvents returns the audit log of a lead, newest first.
func (r *Repository) ListEvents(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, event_type, details, created_at
		FROM lead_events
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Event, 0)
	for rows.Next() {
		var (
			ev  domain.Event
			raw []byte
		)
		if err := rows.Scan(&ev.ID, &ev.LeadID, &ev.Type, &raw, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ev.Details); err != nil {
				return nil, fmt.Errorf("decode event %d: %w", ev.ID, err)
			}
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}

func mutateMetadataTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, mutate func(*domain.Metadata) error) (domain.Metadata, error) {
	var raw []byte
	err := tx.QueryRow(ctx, `SELECT metadata FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Metadata{}, ErrNotFound
	}
	if err != nil {
		return domain.Metadata{}, err
	}

	var m domain.Metadata
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return domain.Metadata{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if err := mutate(&m); err != nil {
		return domain.Metadata{}, err
	}
	if err := m.Validate(); err != nil {
		return domain.Metadata{}, err
	}

	encoded, err := json.Marshal(m)
	if err != nil {
		return domain.Metadata{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE leads SET metadata = $2, updated_at = now() WHERE id = $1`, id, encoded); err != nil {
		return domain.Metadata{}, err
	}
	return m, nil
}

func (r *Repository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead    domain.Lead
		status  string
		phone   *string
		message *string
		raw     []byte
		created time.Time
		updated time.Time
	)
	err := row.Scan(&lead.ID, &lead.Email, &lead.Name, &lead.Source, &status, &phone, &message, &lead.CRMID, &raw, &created, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	lead.Status = domain.Status(status)
	if phone != nil {
		lead.Phone = *phone
	}
	if message != nil {
		lead.Message = *message
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &lead.Metadata); err != nil {
			return domain.Lead{}, fmt.Errorf("decode metadata for %s: %w", lead.Email, err)
		}
		if err := lead.Metadata.Validate(); err != nil {
			return domain.Lead{}, fmt.Errorf("lead %s: %w", lead.Email, err)
		}
	}
	lead.CreatedAt = created
	lead.UpdatedAt = updated
	return lead, nil
}
