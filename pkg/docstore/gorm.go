package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dialectPostgres = "postgres"

// SQLClient is the subset of pkg/db.Client used by GormStore.
type SQLClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	Dialect() string
}

type documentRow struct {
	Collection string    `gorm:"column:collection;primaryKey;size:64"`
	ID         string    `gorm:"column:id;primaryKey;size:64"`
	Version    int64     `gorm:"column:version;not null"`
	Data       string    `gorm:"column:data;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (documentRow) TableName() string { return "documents" }

// GormStore persists documents as JSON rows in the documents table.
type GormStore struct {
	client SQLClient
	now    func() time.Time
	newID  func() string
}

func NewGormStore(client SQLClient) (*GormStore, error) {
	if client == nil {
		return nil, fmt.Errorf("docstore: sql client required")
	}
	return &GormStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}, nil
}

func (s *GormStore) Create(ctx context.Context, collection string, data any) (Document, error) {
	if err := validCollection(collection); err != nil {
		return Document{}, err
	}
	normalized, err := normalizeData(data)
	if err != nil {
		return Document{}, err
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	now := s.now()
	row := documentRow{
		Collection: collection,
		ID:         s.newID(),
		Version:    1,
		Data:       string(raw),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.client.DB().WithContext(ctx).Create(&row).Error; err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return Document{ID: row.ID, Version: row.Version, Data: normalized, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := s.client.DB().WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("load document: %w", err)
	}
	return row.document()
}

func (s *GormStore) Update(ctx context.Context, collection, id string, upd Update) (Document, error) {
	var out Document
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		q := tx.Where("collection = ? AND id = ?", collection, id)
		if s.client.Dialect() == dialectPostgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row documentRow
		if err := q.Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock document: %w", err)
		}
		if upd.IfVersion != 0 && upd.IfVersion != row.Version {
			return ErrVersionConflict
		}

		current, err := row.document()
		if err != nil {
			return err
		}
		next, err := applyUpdate(current.Data, upd)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}

		now := s.now()
		res := tx.Model(&documentRow{}).
			Where("collection = ? AND id = ? AND version = ?", collection, id, row.Version).
			Updates(map[string]any{
				"data":       string(raw),
				"version":    row.Version + 1,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("update document: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		out = Document{
			ID:        id,
			Version:   row.Version + 1,
			Data:      next,
			CreatedAt: row.CreatedAt,
			UpdatedAt: now,
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	return out, nil
}

// Query pushes string equality filters down to SQL and re-checks every filter
// on the decoded rows, so non-string values still match exactly.
func (s *GormStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	compiled, err := compileFilters(filters)
	if err != nil {
		return nil, err
	}

	q := s.client.DB().WithContext(ctx).Where("collection = ?", collection)
	for _, f := range compiled {
		str, ok := f.value.(string)
		if !ok {
			continue
		}
		if s.client.Dialect() == dialectPostgres {
			q = q.Where("data->>? = ?", f.field, str)
		} else {
			q = q.Where("json_extract(data, ?) = ?", "$."+f.field, str)
		}
	}

	var rows []documentRow
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.document()
		if err != nil {
			return nil, err
		}
		if matches(doc.Data, compiled) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	res := s.client.DB().WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{})
	if res.Error != nil {
		return fmt.Errorf("delete document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r documentRow) document() (Document, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(r.Data), &data); err != nil {
		return Document{}, fmt.Errorf("decode document %s/%s: %w", r.Collection, r.ID, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return Document{
		ID:        r.ID,
		Version:   r.Version,
		Data:      data,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}
