package history

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/errors"
	"github.com/verdanthq/plantid-go/internal/logging"
	"github.com/verdanthq/plantid-go/internal/observability/metrics"
	"github.com/verdanthq/plantid-go/internal/plantid"
)

const defaultCapacity = 100

// Store is a bounded, newest-first identification history. When an insert
// exceeds the capacity the oldest entries are evicted. Safe for concurrent
// use; SQLite serializes writers.
type Store struct {
	db       *gorm.DB
	capacity int
	metrics  *metrics.HistoryMetrics
	logger   *slog.Logger
}

// Open creates the history store, opening (or creating) the SQLite database
// at the configured path. The metrics argument may be nil. Use the path
// ":memory:" for an ephemeral store.
func Open(settings *conf.Settings, m *metrics.HistoryMetrics) (*Store, error) {
	path := settings.History.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileIO).
				Context("path", filepath.Dir(path)).
				Build()
		}
	}

	logLevel := gormlogger.Silent
	if settings.Debug {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Build()
	}

	capacity := settings.History.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	return &Store{
		db:       db,
		capacity: capacity,
		metrics:  m,
		logger:   logging.ForService("history"),
	}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save stores an identification and evicts the oldest entries beyond the
// capacity. It returns the stored entry with its generated id.
func (s *Store) Save(record *plantid.PlantRecord, imageData string) (*Entry, error) {
	start := time.Now()
	defer s.observe("save", start)

	if record == nil {
		return nil, errors.NewStd("nil record")
	}

	entry := &Entry{
		ID:             uuid.NewString(),
		Timestamp:      time.Now(),
		PlantName:      record.PlantName,
		ScientificName: record.ScientificName,
		Family:         record.Family,
		Description:    record.Description,
		Confidence:     record.Confidence,
		ImageData:      imageData,
		Record:         *record,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return s.evictOldest(tx)
	})
	if err != nil {
		s.fail("save")
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "save").
			Build()
	}

	if s.metrics != nil {
		s.metrics.IncrementSaves()
	}
	s.updateEntryGauge()
	s.logger.Debug("identification saved", "id", entry.ID, "plant", entry.PlantName)

	return entry, nil
}

// evictOldest deletes entries beyond the capacity, oldest first.
func (s *Store) evictOldest(tx *gorm.DB) error {
	var victims []string
	err := tx.Model(&Entry{}).
		Order("timestamp DESC, id DESC").
		Offset(s.capacity).
		Limit(-1).
		Pluck("id", &victims).Error
	if err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	if err := tx.Delete(&Entry{}, "id IN ?", victims).Error; err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementEvictions(float64(len(victims)))
	}
	return nil
}

// List returns all entries, newest first.
func (s *Store) List() ([]Entry, error) {
	start := time.Now()
	defer s.observe("list", start)

	var entries []Entry
	if err := s.db.Order("timestamp DESC, id DESC").Find(&entries).Error; err != nil {
		s.fail("list")
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "list").
			Build()
	}
	return entries, nil
}

// Filter returns entries whose name, scientific name, family or description
// contains the query, case-insensitively, newest first. An empty query
// returns everything.
func (s *Store) Filter(query string) ([]Entry, error) {
	if query == "" {
		return s.List()
	}

	start := time.Now()
	defer s.observe("filter", start)

	pattern := "%" + escapeLike(query) + "%"
	var entries []Entry
	err := s.db.
		Where(`plant_name LIKE ? ESCAPE '\' COLLATE NOCASE
			OR scientific_name LIKE ? ESCAPE '\' COLLATE NOCASE
			OR family LIKE ? ESCAPE '\' COLLATE NOCASE
			OR description LIKE ? ESCAPE '\' COLLATE NOCASE`,
			pattern, pattern, pattern, pattern).
		Order("timestamp DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		s.fail("filter")
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "filter").
			Build()
	}
	return entries, nil
}

// Get returns a single entry by id.
func (s *Store) Get(id string) (*Entry, error) {
	var entry Entry
	err := s.db.First(&entry, "id = ?", id).Error
	switch {
	case err == nil:
		return &entry, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errors.Newf("history entry not found: %s", id).
			Category(errors.CategoryNotFound).
			Build()
	default:
		s.fail("get")
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "get").
			Build()
	}
}

// Delete removes exactly the entry with the given id. It returns a
// not-found error if no such entry exists.
func (s *Store) Delete(id string) error {
	start := time.Now()
	defer s.observe("delete", start)

	res := s.db.Delete(&Entry{}, "id = ?", id)
	if res.Error != nil {
		s.fail("delete")
		return errors.New(res.Error).
			Category(errors.CategoryDatabase).
			Context("operation", "delete").
			Build()
	}
	if res.RowsAffected == 0 {
		return errors.Newf("history entry not found: %s", id).
			Category(errors.CategoryNotFound).
			Build()
	}

	if s.metrics != nil {
		s.metrics.IncrementDeletes()
	}
	s.updateEntryGauge()
	return nil
}

// Clear removes all entries.
func (s *Store) Clear() error {
	start := time.Now()
	defer s.observe("clear", start)

	if err := s.db.Where("1 = 1").Delete(&Entry{}).Error; err != nil {
		s.fail("clear")
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "clear").
			Build()
	}
	s.updateEntryGauge()
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var count int64
	if err := s.db.Model(&Entry{}).Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "count").
			Build()
	}
	return int(count), nil
}

// Export writes the full history as a JSON array, newest first.
func (s *Store) Export(w io.Writer) error {
	entries, err := s.List()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "export").
			Build()
	}
	return nil
}

// ExportFilename returns the download filename for an export taken at the
// given time, e.g. "plant-identification-history-2026-08-31.json".
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("plant-identification-history-%s.json", now.Format("2006-01-02"))
}

// ComputeStats summarizes the stored history. Family ties are broken in
// favor of the family seen most recently first.
func (s *Store) ComputeStats() (*Stats, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalIdentifications: len(entries)}
	if len(entries) == 0 {
		return stats, nil
	}

	species := make(map[string]struct{})
	families := make(map[string]int)
	familyOrder := make([]string, 0)
	confidenceSum := 0

	for i := range entries {
		e := &entries[i]
		species[e.ScientificName] = struct{}{}
		confidenceSum += e.Confidence
		if e.Family != "" {
			if _, seen := families[e.Family]; !seen {
				familyOrder = append(familyOrder, e.Family)
			}
			families[e.Family]++
		}
	}

	stats.UniqueSpecies = len(species)
	stats.AverageConfidence = int(math.Round(float64(confidenceSum) / float64(len(entries))))

	best := 0
	for _, family := range familyOrder {
		if families[family] > best {
			best = families[family]
			stats.MostCommonFamily = family
		}
	}

	newest := entries[0].Timestamp
	oldest := entries[len(entries)-1].Timestamp
	stats.NewestEntry = &newest
	stats.OldestEntry = &oldest

	return stats, nil
}

// escapeLike escapes LIKE wildcards so user queries match literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func (s *Store) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperationDuration(operation, time.Since(start).Seconds())
	}
}

func (s *Store) fail(operation string) {
	if s.metrics != nil {
		s.metrics.IncrementOperationErrors(operation)
	}
}

func (s *Store) updateEntryGauge() {
	if s.metrics == nil {
		return
	}
	if count, err := s.Count(); err == nil {
		s.metrics.SetEntries(float64(count))
	}
}
