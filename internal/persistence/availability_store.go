package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"summard/internal/models"
	"summard/internal/persistence/interfaces"
	"summard/internal/providers"
	"summard/internal/structures"
	"time"

	json "github.com/goccy/go-json"
)

const availabilityVersion = 1

var ErrCorrupt = errors.New("corrupt availability store")

type availabilityDocument struct {
	Version int                         `json:"version"`
	Peers   []models.AvailabilityRecord `json:"peers"`
}

type rawAvailabilityDocument struct {
	Version int               `json:"version"`
	Peers   []json.RawMessage `json:"peers"`
}

// legacyAvailability is the older per-peer moving average format, keyed by
// peer id at the top level.
type legacyAvailability struct {
	Count     int64   `json:"count"`
	Connected bool    `json:"connected"`
	Avail     float64 `json:"avail"`
}

type AvailabilityStore struct {
	path     string
	interval time.Duration
	window   time.Duration
	files    *FileManager
	logger   providers.Logger
}

func NewAvailabilityStore(conf *structures.Config, files *FileManager, logger providers.Logger) interfaces.AvailabilityStoreInterface {
	return &AvailabilityStore{
		path:     conf.Persistence.FilePath,
		interval: conf.Availability.Interval,
		window:   conf.Availability.Window,
		files:    files,
		logger:   logger,
	}
}

func (s *AvailabilityStore) Save(records []models.AvailabilityRecord) error {
	if records == nil {
		records = []models.AvailabilityRecord{}
	}
	return s.files.SaveToFile(s.path, availabilityDocument{Version: availabilityVersion, Peers: records})
}

// Load reads the store. A missing or empty file yields no records. Records
// that fail to decode or validate are skipped.
func (s *AvailabilityStore) Load() ([]models.AvailabilityRecord, error) {
	data, err := s.files.LoadFromFile(s.path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var doc rawAvailabilityDocument
	if err := json.Unmarshal(data, &doc); err == nil && doc.Version > 0 {
		return s.decodeRecords(doc.Peers), nil
	}

	s.logger.Warnf(providers.TypeApp, "Inconsistent availability store found, try to migrate from old data format")
	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	records := s.migrateLegacy(legacy)
	s.logger.Warnf(providers.TypeApp, "Migrated %d peers from old availability format", len(records))
	return records, nil
}

func (s *AvailabilityStore) decodeRecords(raw []json.RawMessage) []models.AvailabilityRecord {
	records := make([]models.AvailabilityRecord, 0, len(raw))
	for i, r := range raw {
		var rec models.AvailabilityRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			s.logger.Warnf(providers.TypeApp, "Skipping malformed availability record #%d: %s", i, err)
			continue
		}
		if !rec.Valid() {
			s.logger.Warnf(providers.TypeApp, "Skipping invalid availability record #%d for %q", i, rec.PeerID)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (s *AvailabilityStore) migrateLegacy(legacy map[string]json.RawMessage) []models.AvailabilityRecord {
	end := time.Now()
	if st, err := os.Stat(s.path); err == nil {
		end = st.ModTime()
	}
	interval := int64(s.interval / time.Second)
	window := int64(s.window / time.Second)

	records := make([]models.AvailabilityRecord, 0, len(legacy))
	for peerID, raw := range legacy {
		var old legacyAvailability
		if err := json.Unmarshal(raw, &old); err != nil || old.Count < 0 || math.IsNaN(old.Avail) {
			s.logger.Warnf(providers.TypeApp, "Skipping malformed legacy availability for %q", peerID)
			continue
		}
		total := min(old.Count*interval, window)
		ratio := min(max(old.Avail, 0), 1)
		rec := models.AvailabilityRecord{
			PeerID:           peerID,
			WindowEnd:        end.Unix(),
			WindowStart:      end.Unix() - total,
			TotalSeconds:     total,
			ConnectedSeconds: int64(math.Round(ratio * float64(total))),
		}
		if rec.Valid() {
			records = append(records, rec)
		}
	}
	return records
}
