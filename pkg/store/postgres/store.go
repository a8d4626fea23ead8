package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ store.Provider = (*Store)(nil)

//go:embed schema.sql
var schema string

// Store keeps documents and the patch log in Postgres. Appends and reverts
// lock the document row, so version checks and log writes of one document
// are serialized.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)

	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{
		pool: pool,
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) CreateDocument(ctx context.Context, doc *document.Document) error {
	data, err := json.Marshal(doc)

	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO documents (id, data, created_at) VALUES ($1, $2, $3)`, doc.ID, string(data), doc.CreatedAt)

	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrAlreadyExists
	}

	return err
}

func (s *Store) Document(ctx context.Context, id string) (*document.Document, error) {
	var data []byte

	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE id = $1`, id).Scan(&data)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	var doc document.Document

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) OverlayVersion(ctx context.Context, docID string, pageIndex int) (int, error) {
	if err := s.exists(ctx, s.pool, docID, false); err != nil {
		return 0, err
	}

	return s.version(ctx, s.pool, docID, pageIndex)
}

func (s *Store) AppendPatchset(ctx context.Context, docID string, ps document.Patchset, baseVersion int) (int, error) {
	data, err := json.Marshal(ps)

	if err != nil {
		return 0, err
	}

	var version int

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.exists(ctx, tx, docID, true); err != nil {
			return err
		}

		current, err := s.version(ctx, tx, docID, ps.PageIndex)

		if err != nil {
			return err
		}

		if current != baseVersion {
			version = current
			return store.ErrVersionConflict
		}

		if _, err := tx.Exec(ctx, `INSERT INTO patchsets (id, doc_id, page_index, data) VALUES ($1, $2, $3, $4)`, ps.ID, docID, ps.PageIndex, string(data)); err != nil {
			return err
		}

		version, err = s.bump(ctx, tx, docID, ps.PageIndex)
		return err
	})

	return version, err
}

func (s *Store) Patchsets(ctx context.Context, docID string) ([]document.Patchset, error) {
	if err := s.exists(ctx, s.pool, docID, false); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT data FROM patchsets WHERE doc_id = $1 ORDER BY seq`, docID)

	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (document.Patchset, error) {
		var data []byte
		var ps document.Patchset

		if err := row.Scan(&data); err != nil {
			return ps, err
		}

		err := json.Unmarshal(data, &ps)
		return ps, err
	})
}

func (s *Store) RevertLast(ctx context.Context, docID string) (*document.Patchset, error) {
	var reverted *document.Patchset

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.exists(ctx, tx, docID, true); err != nil {
			return err
		}

		var seq int64
		var data []byte

		err := tx.QueryRow(ctx, `SELECT seq, data FROM patchsets WHERE doc_id = $1 ORDER BY seq DESC LIMIT 1`, docID).Scan(&seq, &data)

		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNothingToRevert
		}

		if err != nil {
			return err
		}

		var ps document.Patchset

		if err := json.Unmarshal(data, &ps); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM patchsets WHERE seq = $1`, seq); err != nil {
			return err
		}

		if _, err := s.bump(ctx, tx, docID, ps.PageIndex); err != nil {
			return err
		}

		reverted = &ps
		return nil
	})

	return reverted, err
}

func (s *Store) Custom(ctx context.Context, docID string, pageIndex int) ([]document.Element, error) {
	if err := s.exists(ctx, s.pool, docID, false); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT data FROM custom_elements WHERE doc_id = $1 AND page_index = $2 ORDER BY element_id`, docID, pageIndex)

	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (document.Element, error) {
		var data []byte
		var e document.Element

		if err := row.Scan(&data); err != nil {
			return e, err
		}

		err := json.Unmarshal(data, &e)
		return e, err
	})
}

func (s *Store) PutCustom(ctx context.Context, docID string, pageIndex int, elements []document.Element) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.exists(ctx, tx, docID, false); err != nil {
			return err
		}

		if len(elements) == 0 {
			return nil
		}

		batch := &pgx.Batch{}

		for _, e := range elements {
			data, err := json.Marshal(e)

			if err != nil {
				return err
			}

			batch.Queue(`INSERT INTO custom_elements (doc_id, page_index, element_id, data) VALUES ($1, $2, $3, $4)
				ON CONFLICT (doc_id, page_index, element_id) DO UPDATE SET data = EXCLUDED.data`, docID, pageIndex, e.ID, string(data))
		}

		return tx.SendBatch(ctx, batch).Close()
	})
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) exists(ctx context.Context, q querier, docID string, lock bool) error {
	query := `SELECT id FROM documents WHERE id = $1`

	if lock {
		query += ` FOR UPDATE`
	}

	var id string

	err := q.QueryRow(ctx, query, docID).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	return err
}

func (s *Store) version(ctx context.Context, q querier, docID string, pageIndex int) (int, error) {
	var version int

	err := q.QueryRow(ctx, `SELECT version FROM page_versions WHERE doc_id = $1 AND page_index = $2`, docID, pageIndex).Scan(&version)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}

	return version, err
}

func (s *Store) bump(ctx context.Context, tx pgx.Tx, docID string, pageIndex int) (int, error) {
	var version int

	err := tx.QueryRow(ctx, `INSERT INTO page_versions (doc_id, page_index, version) VALUES ($1, $2, 1)
		ON CONFLICT (doc_id, page_index) DO UPDATE SET version = page_versions.version + 1
		RETURNING version`, docID, pageIndex).Scan(&version)

	return version, err
}
