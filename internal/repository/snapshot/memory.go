package snapshot

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/oshokin/vm-maintenance/internal/domain/snapshot"
)

// MemoryRepository keeps snapshots in a map. Error hooks let tests inject
// failures per operation and per snapshot name.
type MemoryRepository struct {
	// Now stamps created snapshots; defaults to time.Now.
	Now func() time.Time
	// CreateErr, when set, is returned by every Create call.
	CreateErr error
	// ListErr, when set, is returned by every List call.
	ListErr error
	// DeleteErrs maps snapshot names to the error Delete returns for them.
	DeleteErrs map[string]error

	// mu protects snapshots and deleted.
	mu sync.Mutex
	// snapshots holds the stored snapshots by name.
	snapshots map[string]*domain.Snapshot
	// deleted records successful deletions in call order.
	deleted []string
}

// NewMemoryRepository returns a repository seeded with snapshots.
func NewMemoryRepository(seed ...*domain.Snapshot) *MemoryRepository {
	r := &MemoryRepository{
		snapshots:  make(map[string]*domain.Snapshot, len(seed)),
		DeleteErrs: make(map[string]error),
	}

	for _, s := range seed {
		r.snapshots[s.Name] = s
	}

	return r
}

// Create stores a new snapshot named req.Name.
func (r *MemoryRepository) Create(_ context.Context, req *CreateRequest) (*domain.Snapshot, error) {
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snapshots[req.Name]; ok {
		return nil, ErrAlreadyExists
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	s := &domain.Snapshot{
		Name:       req.Name,
		CreatedAt:  now(),
		SourceDisk: req.Disk,
	}

	if req.StorageLocation != "" {
		s.StorageLocations = []string{req.StorageLocation}
	}

	r.snapshots[s.Name] = s

	return s, nil
}

// List returns the stored snapshots whose name contains prefix.
func (r *MemoryRepository) List(_ context.Context, _, prefix string) ([]*domain.Snapshot, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*domain.Snapshot, 0, len(r.snapshots))

	for name, s := range r.snapshots {
		if strings.Contains(name, prefix) {
			result = append(result, s)
		}
	}

	return result, nil
}

// Delete removes the named snapshot unless an error is registered for it.
func (r *MemoryRepository) Delete(_ context.Context, _, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.DeleteErrs[name]; err != nil {
		return err
	}

	if _, ok := r.snapshots[name]; !ok {
		return ErrNotFound
	}

	delete(r.snapshots, name)
	r.deleted = append(r.deleted, name)

	return nil
}

// Names returns the stored snapshot names, newest first.
func (r *MemoryRepository) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*domain.Snapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		all = append(all, s)
	}

	domain.SortNewestFirst(all)

	return domain.Names(all)
}

// Deleted returns the names removed so far, in deletion order.
func (r *MemoryRepository) Deleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.deleted...)
}
