package registry

import (
	"sync"

	"github.com/kbase/kbsearch/internal/models"
)

// Registry is the in-memory document metadata store. All methods are safe
// for concurrent use. State does not survive a restart; the vector index and
// the files on disk do.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]models.DocumentRecord
}

func New() *Registry {
	return &Registry{
		docs: make(map[string]models.DocumentRecord),
	}
}

func (r *Registry) Put(rec models.DocumentRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[rec.ID] = rec
}

func (r *Registry) Get(id string) (models.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.docs[id]
	if !ok {
		return models.DocumentRecord{}, &models.NotFoundError{ID: id}
	}
	return rec, nil
}

func (r *Registry) List() []models.DocumentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]models.DocumentRecord, 0, len(r.docs))
	for _, rec := range r.docs {
		records = append(records, rec)
	}
	return records
}

// Delete removes the record and returns it, so the caller can purge the
// index entries and the backing file.
func (r *Registry) Delete(id string) (models.DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.docs[id]
	if !ok {
		return models.DocumentRecord{}, &models.NotFoundError{ID: id}
	}
	delete(r.docs, id)
	return rec, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
