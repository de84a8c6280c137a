package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

var ErrUnknownUpload = errors.New("unknown upload")

// MemoryStore owns the working dataset for the life of the process.
// Writers are serialized; readers get copies.
type MemoryStore struct {
	id      string
	mu      sync.RWMutex
	records []models.CampaignRecord
	uploads []models.UploadInfo
	version uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{id: uuid.NewString()}
}

// ID identifies this store instance. Versions restart at zero in every
// process, so anything keyed by Version shared across processes must also
// carry the ID.
func (s *MemoryStore) ID() string { return s.id }

func (s *MemoryStore) Append(recs ...models.CampaignRecord) {
	if len(recs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recs...)
	s.version++
}

// Replace swaps the whole dataset. The upload registry is cleared since
// the new records are not tied to it.
func (s *MemoryStore) Replace(recs []models.CampaignRecord) {
	cp := make([]models.CampaignRecord, len(recs))
	copy(cp, recs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cp
	s.uploads = nil
	s.version++
}

func (s *MemoryStore) Snapshot() []models.CampaignRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CampaignRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.uploads = nil
	s.version++
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases on every mutation.
func (s *MemoryStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// RegisterUpload assigns the upload an ID, stamps it on recs and appends
// them in one step, so a concurrent RemoveUpload never sees half an upload.
func (s *MemoryStore) RegisterUpload(info models.UploadInfo, recs []models.CampaignRecord) models.UploadInfo {
	info.ID = uuid.NewString()
	if info.IngestedAt.IsZero() {
		info.IngestedAt = time.Now().UTC()
	}
	stamped := make([]models.CampaignRecord, len(recs))
	for i, r := range recs {
		r.UploadID = info.ID
		stamped[i] = r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, info)
	s.records = append(s.records, stamped...)
	s.version++
	return info
}

// Uploads lists registered uploads in registration order.
func (s *MemoryStore) Uploads() []models.UploadInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UploadInfo, len(s.uploads))
	copy(out, s.uploads)
	return out
}

// RemoveUpload drops an upload and every record it contributed.
func (s *MemoryStore) RemoveUpload(id string) (removed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, u := range s.uploads {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, ErrUnknownUpload
	}
	s.uploads = append(s.uploads[:idx], s.uploads[idx+1:]...)
	kept := s.records[:0]
	for _, r := range s.records {
		if r.UploadID == id {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	// clear the tail so dropped records can be collected
	clear(s.records[len(kept):])
	s.records = kept
	s.version++
	return removed, nil
}

// Query returns records dated within [from, to]; zero bounds are open.
func (s *MemoryStore) Query(from, to time.Time, f func(models.CampaignRecord) bool) []models.CampaignRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CampaignRecord
	for _, r := range s.records {
		if !from.IsZero() && r.Date.Before(from) {
			continue
		}
		if !to.IsZero() && r.Date.After(to) {
			continue
		}
		if f == nil || f(r) {
			out = append(out, r)
		}
	}
	return out
}
