package appointments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments. Every mutation changes the slot or status
// and updated_at together, and updated_at strictly increases.
type Repository interface {
	Create(ctx context.Context, appt Appointment) (*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	ListByEmail(ctx context.Context, email string) ([]Appointment, error)
	// Reschedule returns ErrNotFound or ErrCancelled without writing.
	Reschedule(ctx context.Context, id string, to Schedule) (Change, error)
	// Cancel is a no-op for an already cancelled appointment; Before equals After.
	Cancel(ctx context.Context, id string) (Change, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// InMemoryRepository is a Repository for tests and local development.
type InMemoryRepository struct {
	mu    sync.Mutex
	items map[string]Appointment
	now   func() time.Time
}

// NewInMemoryRepository creates an empty in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		items: make(map[string]Appointment),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(_ context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	now := r.now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.items[appt.ID] = appt
	out := appt
	return &out, nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &appt, nil
}

func (r *InMemoryRepository) ListByEmail(_ context.Context, email string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, appt := range r.items {
		if strings.EqualFold(appt.Email, email) {
			out = append(out, appt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Schedule().String() < out[j].Schedule().String()
	})
	return out, nil
}

func (r *InMemoryRepository) Reschedule(_ context.Context, id string, to Schedule) (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before, ok := r.items[id]
	if !ok {
		return Change{}, ErrNotFound
	}
	if before.Status == StatusCancelled {
		return Change{}, ErrCancelled
	}
	after := before
	after.Date = to.Date
	after.Time = to.Time
	after.UpdatedAt = r.nextUpdatedAt(before.UpdatedAt)
	r.items[id] = after
	return Change{Before: before, After: after}, nil
}

func (r *InMemoryRepository) Cancel(_ context.Context, id string) (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before, ok := r.items[id]
	if !ok {
		return Change{}, ErrNotFound
	}
	if before.Status == StatusCancelled {
		return Change{Before: before, After: before}, nil
	}
	after := before
	after.Status = StatusCancelled
	after.UpdatedAt = r.nextUpdatedAt(before.UpdatedAt)
	r.items[id] = after
	return Change{Before: before, After: after}, nil
}

func (r *InMemoryRepository) CountByStatus(_ context.Context) (map[Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[Status]int)
	for _, appt := range r.items {
		counts[appt.Status]++
	}
	return counts, nil
}

// nextUpdatedAt mirrors GREATEST(now(), updated_at + 1µs).
func (r *InMemoryRepository) nextUpdatedAt(prev time.Time) time.Time {
	next := r.now()
	if floor := prev.Add(time.Microsecond); next.Before(floor) {
		return floor
	}
	return next
}
