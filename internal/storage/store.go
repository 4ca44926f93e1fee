// Package storage holds the canonical work item records and the YAML
// snapshot codec. The store is the leaf dependency of the engine: it knows
// nothing about transitions or edges, it only keeps records and history.
package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

// ItemNotFoundError reports a lookup of a work item that does not exist.
type ItemNotFoundError struct {
	ID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("work item %s not found", e.ID)
}

// ItemExistsError reports creation of a work item whose ID is taken.
type ItemExistsError struct {
	ID string
}

func (e *ItemExistsError) Error() string {
	return fmt.Sprintf("work item %s already exists", e.ID)
}

// WorkItemStore defines the interface for the canonical work item records
// and their immutable transition history.
type WorkItemStore interface {
	Create(item models.WorkItem) error
	Get(id string) (*models.WorkItem, error)
	Update(item models.WorkItem) error
	Remove(id string) error
	// List returns the items belonging to a project, or every item when
	// project is empty, sorted by ID.
	List(project string) ([]models.WorkItem, error)
	AppendHistory(entry models.HistoryEntry) error
	// History returns the entries for one item in append order, or every
	// entry when itemID is empty.
	History(itemID string) ([]models.HistoryEntry, error)
}

// memoryStore is the in-memory WorkItemStore implementation. It is safe for
// concurrent use; the engine's per-project locking provides the
// operation-level serialization on top.
type memoryStore struct {
	mu      sync.RWMutex
	items   map[string]models.WorkItem
	history []models.HistoryEntry
}

// NewMemoryStore creates an empty in-memory WorkItemStore.
func NewMemoryStore() WorkItemStore {
	return &memoryStore{items: make(map[string]models.WorkItem)}
}

func (s *memoryStore) Create(item models.WorkItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid work item: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return &ItemExistsError{ID: item.ID}
	}
	s.items[item.ID] = cloneItem(item)
	return nil
}

func (s *memoryStore) Get(id string) (*models.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, &ItemNotFoundError{ID: id}
	}
	out := cloneItem(item)
	return &out, nil
}

func (s *memoryStore) Update(item models.WorkItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid work item: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return &ItemNotFoundError{ID: item.ID}
	}
	s.items[item.ID] = cloneItem(item)
	return nil
}

func (s *memoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return &ItemNotFoundError{ID: id}
	}
	delete(s.items, id)
	return nil
}

func (s *memoryStore) List(project string) ([]models.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.WorkItem
	for _, item := range s.items {
		if project == "" || item.Project == project {
			items = append(items, cloneItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *memoryStore) AppendHistory(entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	return nil
}

func (s *memoryStore) History(itemID string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []models.HistoryEntry
	for _, e := range s.history {
		if itemID == "" || e.ItemID == itemID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// cloneItem copies the item including its metadata map and pointer fields so
// callers never share mutable state with the store.
func cloneItem(item models.WorkItem) models.WorkItem {
	out := item
	if item.Metadata != nil {
		out.Metadata = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			out.Metadata[k] = v
		}
	}
	if item.EstimateHours != nil {
		est := *item.EstimateHours
		out.EstimateHours = &est
	}
	if item.Blocked != nil {
		blocked := *item.Blocked
		out.Blocked = &blocked
	}
	return out
}
