package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/store"

	"github.com/redis/go-redis/v9"
)

var _ store.Provider = (*Store)(nil)

// Store keeps each document under a set of keys sharing the document prefix:
// the document itself, the patch log as a list, the page versions as a hash
// and the custom elements as a hash keyed by page and element id.
type Store struct {
	client *redis.Client

	prefix string
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(url string, options ...Option) (*Store, error) {
	opts, err := redis.ParseURL(url)

	if err != nil {
		return nil, err
	}

	s := &Store{
		client: redis.NewClient(opts),

		prefix: "forge",
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) documentKey(id string) string {
	return s.prefix + ":doc:" + id
}

func (s *Store) patchsetsKey(id string) string {
	return s.documentKey(id) + ":patchsets"
}

func (s *Store) versionsKey(id string) string {
	return s.documentKey(id) + ":versions"
}

func (s *Store) customKey(id string, pageIndex int) string {
	return s.documentKey(id) + ":custom:" + strconv.Itoa(pageIndex)
}

func (s *Store) CreateDocument(ctx context.Context, doc *document.Document) error {
	data, err := json.Marshal(doc)

	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.documentKey(doc.ID), data, 0).Result()

	if err != nil {
		return err
	}

	if !ok {
		return store.ErrAlreadyExists
	}

	return nil
}

func (s *Store) Document(ctx context.Context, id string) (*document.Document, error) {
	data, err := s.client.Get(ctx, s.documentKey(id)).Bytes()

	if errors.Is(err, redis.Nil) {
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
	doc, err := s.Document(ctx, id)

	if err != nil {
		return err
	}

	keys := []string{
		s.documentKey(id),
		s.patchsetsKey(id),
		s.versionsKey(id),
	}

	for _, page := range doc.Pages {
		keys = append(keys, s.customKey(id, page.Index))
	}

	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) OverlayVersion(ctx context.Context, docID string, pageIndex int) (int, error) {
	if err := s.exists(ctx, s.client, docID); err != nil {
		return 0, err
	}

	return s.version(ctx, s.client, docID, pageIndex)
}

func (s *Store) AppendPatchset(ctx context.Context, docID string, ps document.Patchset, baseVersion int) (int, error) {
	data, err := json.Marshal(ps)

	if err != nil {
		return 0, err
	}

	var version int

	txf := func(tx *redis.Tx) error {
		if err := s.exists(ctx, tx, docID); err != nil {
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

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, s.patchsetsKey(docID), data)
			pipe.HIncrBy(ctx, s.versionsKey(docID), strconv.Itoa(ps.PageIndex), 1)

			return nil
		})

		version = current + 1

		return err
	}

	err = s.client.Watch(ctx, txf, s.versionsKey(docID), s.patchsetsKey(docID))

	// a concurrent writer touched the page versions between read and write
	if errors.Is(err, redis.TxFailedErr) {
		return 0, store.ErrVersionConflict
	}

	if err != nil {
		return version, err
	}

	return version, nil
}

func (s *Store) Patchsets(ctx context.Context, docID string) ([]document.Patchset, error) {
	if err := s.exists(ctx, s.client, docID); err != nil {
		return nil, err
	}

	items, err := s.client.LRange(ctx, s.patchsetsKey(docID), 0, -1).Result()

	if err != nil {
		return nil, err
	}

	result := make([]document.Patchset, 0, len(items))

	for _, item := range items {
		var ps document.Patchset

		if err := json.Unmarshal([]byte(item), &ps); err != nil {
			return nil, err
		}

		result = append(result, ps)
	}

	return result, nil
}

func (s *Store) RevertLast(ctx context.Context, docID string) (*document.Patchset, error) {
	var reverted *document.Patchset

	txf := func(tx *redis.Tx) error {
		if err := s.exists(ctx, tx, docID); err != nil {
			return err
		}

		data, err := tx.LIndex(ctx, s.patchsetsKey(docID), -1).Bytes()

		if errors.Is(err, redis.Nil) {
			return store.ErrNothingToRevert
		}

		if err != nil {
			return err
		}

		var ps document.Patchset

		if err := json.Unmarshal(data, &ps); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPop(ctx, s.patchsetsKey(docID))
			pipe.HIncrBy(ctx, s.versionsKey(docID), strconv.Itoa(ps.PageIndex), 1)

			return nil
		})

		reverted = &ps

		return err
	}

	if err := s.client.Watch(ctx, txf, s.versionsKey(docID), s.patchsetsKey(docID)); err != nil {
		return nil, err
	}

	return reverted, nil
}

func (s *Store) Custom(ctx context.Context, docID string, pageIndex int) ([]document.Element, error) {
	if err := s.exists(ctx, s.client, docID); err != nil {
		return nil, err
	}

	items, err := s.client.HGetAll(ctx, s.customKey(docID, pageIndex)).Result()

	if err != nil {
		return nil, err
	}

	var result []document.Element

	for _, item := range items {
		var e document.Element

		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, err
		}

		result = append(result, e)
	}

	slices.SortFunc(result, func(a, b document.Element) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return result, nil
}

func (s *Store) PutCustom(ctx context.Context, docID string, pageIndex int, elements []document.Element) error {
	if err := s.exists(ctx, s.client, docID); err != nil {
		return err
	}

	if len(elements) == 0 {
		return nil
	}

	values := make([]any, 0, len(elements)*2)

	for _, e := range elements {
		data, err := json.Marshal(e)

		if err != nil {
			return err
		}

		values = append(values, e.ID, data)
	}

	return s.client.HSet(ctx, s.customKey(docID, pageIndex), values...).Err()
}

func (s *Store) exists(ctx context.Context, c redis.Cmdable, docID string) error {
	n, err := c.Exists(ctx, s.documentKey(docID)).Result()

	if err != nil {
		return err
	}

	if n == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) version(ctx context.Context, c redis.Cmdable, docID string, pageIndex int) (int, error) {
	version, err := c.HGet(ctx, s.versionsKey(docID), strconv.Itoa(pageIndex)).Int()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return version, err
}
