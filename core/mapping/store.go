package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed mapping store shared by the VCOM and Yuman pipelines.
type Store struct {
	db       *gorm.DB
	profiles map[reconcile.EntityType]Profile
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithProfiles replaces the profiles of the given entity types.
func WithProfiles(profiles ...Profile) StoreOption {
	return func(s *Store) {
		for _, p := range profiles {
			s.profiles[p.EntityType] = p
		}
	}
}

// WithClock overrides the clock used for obsolete and resolution timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store over db with the default profiles.
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, profiles: DefaultProfiles(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Profile returns the profile of an entity type.
func (s *Store) Profile(t reconcile.EntityType) (Profile, error) {
	p, ok := s.profiles[t]
	if !ok {
		return Profile{}, &UnknownEntityTypeError{EntityType: t}
	}
	return p, nil
}

// Profiles returns every registered profile, sorted by table name.
func (s *Store) Profiles() []Profile {
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableName < out[j].TableName })
	return out
}

// Fetch returns every stored record of an entity type, obsolete ones included, ordered by row id.
func (s *Store) Fetch(ctx context.Context, t reconcile.EntityType) ([]reconcile.Entity, error) {
	return s.Query(ctx, t, nil)
}

// Query returns the stored records matching every condition. Conditions are keyed
// by logical field name; a nil value matches NULL.
func (s *Store) Query(ctx context.Context, t reconcile.EntityType, conds map[string]any) ([]reconcile.Entity, error) {
	p, err := s.Profile(t)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Table(p.TableName).Select(p.ColumnNames())
	for _, field := range sortedFieldNames(conds) {
		col, ok := p.Physical(field)
		if !ok {
			return nil, fmt.Errorf("unknown field %q for %s", field, t)
		}
		// clause.Eq renders IS NULL for nil values
		q = q.Where(clause.Eq{Column: clause.Column{Name: col.Name}, Value: col.Kind.Encode(conds[field])})
	}

	// Scan raw rows; GORM's Find does not keep driver types in map slices
	rows, err := q.Order(p.IDColumn).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", p.TableName, err)
	}
	defer rows.Close()

	records, err := scanEntities(rows, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.TableName, err)
	}
	return records, nil
}

// Upsert writes records through the profile whitelist, one atomic statement per row.
//
// Known rows are updated by id. A new record whose secondary source key matches
// a row still lacking the identity key adopts that row; otherwise it is inserted
// with INSERT ... ON CONFLICT on the identity column. Written rows are reactivated.
func (s *Store) Upsert(ctx context.Context, t reconcile.EntityType, records []reconcile.Entity) error {
	p, err := s.Profile(t)
	if err != nil {
		return err
	}
	db := s.db.WithContext(ctx)

	for _, e := range records {
		row := encodeRow(p, e)

		if id, ok := rowID(e.LocalKey); ok {
			res := db.Table(p.TableName).Where(clause.Eq{Column: clause.Column{Name: p.IDColumn}, Value: id}).Updates(row)
			if res.Error != nil {
				return fmt.Errorf("failed to update %s row %s: %w", p.TableName, e.LocalKey, res.Error)
			}
			if res.RowsAffected > 0 {
				continue
			}
		}

		identity := p.Identity()
		if row[identity.Name] == nil {
			return fmt.Errorf("cannot write %s record without %s", t, identity.Name)
		}

		if sec := p.Secondary(); sec.Name != "" && row[sec.Name] != nil {
			res := db.Table(p.TableName).
				Where(clause.Eq{Column: clause.Column{Name: sec.Name}, Value: row[sec.Name]}).
				Where(clause.Eq{Column: clause.Column{Name: identity.Name}, Value: nil}).
				Updates(row)
			if res.Error != nil {
				return fmt.Errorf("failed to link %s row on %s: %w", p.TableName, sec.Name, res.Error)
			}
			if res.RowsAffected > 0 {
				continue
			}
		}

		updateCols := make([]string, 0, len(row))
		for col := range row {
			if col != identity.Name {
				updateCols = append(updateCols, col)
			}
		}
		sort.Strings(updateCols)

		insert := row
		if created, ok := p.Columns["created_at"]; ok && insert[created.Name] == nil {
			insert = make(map[string]any, len(row)+1)
			for k, v := range row {
				insert[k] = v
			}
			insert[created.Name] = s.now().UTC()
		}

		err := db.Table(p.TableName).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: identity.Name}},
			DoUpdates: clause.AssignmentColumns(updateCols),
		}).Create(insert).Error
		if err != nil {
			return fmt.Errorf("failed to upsert %s %v: %w", p.TableName, row[identity.Name], err)
		}
	}
	return nil
}

// MarkObsolete soft-deletes rows by id in a single statement.
func (s *Store) MarkObsolete(ctx context.Context, t reconcile.EntityType, localKeys []string) error {
	if len(localKeys) == 0 {
		return nil
	}
	p, err := s.Profile(t)
	if err != nil {
		return err
	}

	ids := make([]any, 0, len(localKeys))
	for _, k := range localKeys {
		if id, ok := rowID(k); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).
		Table(p.TableName).
		Where(p.IDColumn+" IN ?", ids).
		Updates(map[string]any{colIsObsolete: true, colObsoleteAt: s.now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to mark %d %s rows obsolete: %w", len(ids), p.TableName, err)
	}
	return nil
}

// UpdateFields writes a partial set of fields on one row. Source keys can be
// set by their column name; other fields outside the whitelist are dropped.
func (s *Store) UpdateFields(ctx context.Context, t reconcile.EntityType, localKey string, fields map[string]any) error {
	p, err := s.Profile(t)
	if err != nil {
		return err
	}
	id, ok := rowID(localKey)
	if !ok {
		return fmt.Errorf("invalid %s key %q", t, localKey)
	}

	updates := make(map[string]any, len(fields))
	for field, v := range fields {
		if col, ok := p.Physical(field); ok && field != p.IDColumn {
			updates[col.Name] = col.Kind.Encode(v)
		}
	}
	if len(updates) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Table(p.TableName).Where(clause.Eq{Column: clause.Column{Name: p.IDColumn}, Value: id}).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s row %s: %w", p.TableName, localKey, res.Error)
	}
	return nil
}

// encodeRow maps an entity onto physical columns through the whitelist.
func encodeRow(p Profile, e reconcile.Entity) map[string]any {
	row := make(map[string]any, len(e.Fields)+4)
	for field, v := range e.Fields {
		col, ok := p.Columns[field]
		if !ok {
			continue
		}
		row[col.Name] = col.Kind.Encode(v)
	}
	if p.KeyA.Name != "" && e.KeyA != "" {
		row[p.KeyA.Name] = p.KeyA.Kind.Encode(e.KeyA)
	}
	if p.KeyB.Name != "" && e.KeyB != "" {
		row[p.KeyB.Name] = p.KeyB.Kind.Encode(e.KeyB)
	}
	if p.ChangedAtColumn != "" && e.ChangedAt != nil {
		row[p.ChangedAtColumn] = e.ChangedAt.UTC()
	}
	row[colIsObsolete] = false
	row[colObsoleteAt] = nil
	return row
}

func scanEntities(rows *sql.Rows, p Profile) ([]reconcile.Entity, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []reconcile.Entity
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, decodeRow(p, row))
	}
	return out, rows.Err()
}

func decodeRow(p Profile, row map[string]any) reconcile.Entity {
	e := reconcile.Entity{
		Type:       p.EntityType,
		LocalKey:   utils.ToString(row[p.IDColumn]),
		Source:     reconcile.SourceStore,
		Fields:     make(map[string]any, len(p.Columns)),
		IsObsolete: utils.ToBool(row[colIsObsolete]),
		ObsoleteAt: utils.TimePtr(row[colObsoleteAt]),
	}
	if p.KeyA.Name != "" {
		e.KeyA = utils.ToString(p.KeyA.Kind.Decode(row[p.KeyA.Name]))
	}
	if p.KeyB.Name != "" {
		e.KeyB = utils.ToString(p.KeyB.Kind.Decode(row[p.KeyB.Name]))
	}
	if p.ChangedAtColumn != "" {
		e.ChangedAt = utils.TimePtr(row[p.ChangedAtColumn])
	}
	for field, col := range p.Columns {
		e.Fields[field] = col.Kind.Decode(row[col.Name])
	}
	return e
}

func rowID(localKey string) (int64, bool) {
	if localKey == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(localKey, 10, 64)
	return id, err == nil
}

func sortedFieldNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// isNotFound reports whether err is gorm's record-not-found error.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
