// Package store persists attachment sagas in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, account_id, list, item_id, state, files, uploaded, failed, last_error, created_at, updated_at
func scanSaga(s scanner) (attachment.Saga, error) {
	var (
		saga                    attachment.Saga
		state                   string
		files, uploaded, failed []byte
	)

	if err := s.Scan(
		&saga.ID, &saga.Account, &saga.List, &saga.ItemID, &state,
		&files, &uploaded, &failed, &saga.LastError,
		&saga.CreatedAt, &saga.UpdatedAt,
	); err != nil {
		return attachment.Saga{}, err
	}

	saga.State = attachment.State(state)

	for _, col := range []struct {
		raw []byte
		dst *[]string
	}{{files, &saga.Files}, {uploaded, &saga.Uploaded}, {failed, &saga.Failed}} {
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return attachment.Saga{}, fmt.Errorf("decoding file names: %w", err)
		}
	}

	return saga, nil
}

func (s *Store) Save(ctx context.Context, saga *attachment.Saga) error {
	files, err := names(saga.Files)
	if err != nil {
		return err
	}

	uploaded, err := names(saga.Uploaded)
	if err != nil {
		return err
	}

	failed, err := names(saga.Failed)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO attachment_sagas (id, account_id, list, item_id, state, files, uploaded, failed, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state,
			uploaded = EXCLUDED.uploaded,
			failed = EXCLUDED.failed,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		saga.ID, saga.Account, saga.List, saga.ItemID, string(saga.State),
		files, uploaded, failed, saga.LastError,
		saga.CreatedAt, saga.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving attachment saga: %w", err)
	}

	return nil
}

func (s *Store) Pending(ctx context.Context, account string) ([]attachment.Saga, error) {
	query := `
		SELECT id, account_id, list, item_id, state, files, uploaded, failed, last_error, created_at, updated_at
		FROM attachment_sagas
		WHERE account_id = $1 AND state <> $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, account, string(attachment.StateAttachmentsComplete))
	if err != nil {
		return nil, fmt.Errorf("listing pending sagas: %w", err)
	}
	defer rows.Close()

	var sagas []attachment.Saga

	for rows.Next() {
		saga, err := scanSaga(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning saga: %w", err)
		}

		sagas = append(sagas, saga)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sagas: %w", err)
	}

	return sagas, nil
}

func names(v []string) ([]byte, error) {
	if v == nil {
		v = []string{}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding file names: %w", err)
	}

	return raw, nil
}

var _ attachment.Journal = (*Store)(nil)
