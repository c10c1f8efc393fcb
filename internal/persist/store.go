package persist

import (
	"encoding/json"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"grabby-orchestrator/internal/errkind"
	"grabby-orchestrator/internal/queue"
	"grabby-orchestrator/internal/rules"
)

// Store persists queue items and rule definitions to sqlite so they
// survive a process restart.
type Store struct {
	db *gorm.DB
}

// Open creates or attaches to the sqlite database at path and migrates
// the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errkind.Wrap(errkind.PersistenceUnavailable, "open sqlite store", err)
	}
	if err := db.AutoMigrate(&ItemRecord{}, &RuleRecord{}); err != nil {
		return nil, errkind.Wrap(errkind.PersistenceUnavailable, "migrate schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveItem upserts a queue item's persisted representation.
func (s *Store) SaveItem(it *queue.Item) error {
	metaJSON, err := json.Marshal(it.Metadata)
	if err != nil {
		return errkind.Wrap(errkind.InternalInvariantViolation, "marshal item metadata", err)
	}
	rec := ItemRecord{
		ID:          it.ID,
		URL:         it.URL,
		Priority:    int(it.Priority),
		Status:      string(it.Status),
		CreatedAt:   it.CreatedAt,
		Metadata:    string(metaJSON),
		PlaylistID:  it.PlaylistID,
		EngineHint:  it.EngineHint,
		RetryCount:  it.RetryCount,
		NextRetryAt: it.NextRetryAt,
	}
	if err := s.db.Save(&rec).Error; err != nil {
		return errkind.Wrap(errkind.PersistenceUnavailable, "save item", err)
	}
	return nil
}

// DeleteItem removes a persisted item by ID.
func (s *Store) DeleteItem(id string) error {
	if err := s.db.Delete(&ItemRecord{}, "id = ?", id).Error; err != nil {
		return errkind.Wrap(errkind.PersistenceUnavailable, "delete item", err)
	}
	return nil
}

// LoadItems returns every persisted item, converted back to queue.Item.
func (s *Store) LoadItems() ([]*queue.Item, error) {
	var recs []ItemRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, errkind.Wrap(errkind.PersistenceUnavailable, "load items", err)
	}

	items := make([]*queue.Item, 0, len(recs))
	for _, rec := range recs {
		var meta map[string]any
		if rec.Metadata != "" {
			if err := json.Unmarshal([]byte(rec.Metadata), &meta); err != nil {
				return nil, errkind.Wrap(errkind.InternalInvariantViolation, "unmarshal item metadata", err)
			}
		}
		items = append(items, &queue.Item{
			ID:          rec.ID,
			URL:         rec.URL,
			Priority:    queue.Priority(rec.Priority),
			Status:      queue.Status(rec.Status),
			CreatedAt:   rec.CreatedAt,
			Metadata:    meta,
			PlaylistID:  rec.PlaylistID,
			EngineHint:  rec.EngineHint,
			RetryCount:  rec.RetryCount,
			NextRetryAt: rec.NextRetryAt,
		})
	}
	return items, nil
}

// SaveRule upserts a rule definition.
func (s *Store) SaveRule(r rules.Rule) error {
	defJSON, err := json.Marshal(r)
	if err != nil {
		return errkind.Wrap(errkind.InternalInvariantViolation, "marshal rule", err)
	}
	rec := RuleRecord{ID: r.ID, Name: r.Name, Priority: r.Priority, Enabled: r.Enabled, Definition: string(defJSON)}
	if err := s.db.Save(&rec).Error; err != nil {
		return errkind.Wrap(errkind.PersistenceUnavailable, "save rule", err)
	}
	return nil
}

// LoadRules returns every persisted rule definition.
func (s *Store) LoadRules() ([]rules.Rule, error) {
	var recs []RuleRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, errkind.Wrap(errkind.PersistenceUnavailable, "load rules", err)
	}
	out := make([]rules.Rule, 0, len(recs))
	for _, rec := range recs {
		var r rules.Rule
		if err := json.Unmarshal([]byte(rec.Definition), &r); err != nil {
			return nil, errkind.Wrap(errkind.InternalInvariantViolation, "unmarshal rule", err)
		}
		out = append(out, r)
	}
	return out, nil
}
