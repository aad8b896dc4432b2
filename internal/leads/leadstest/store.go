// Package leadstest provides an in-memory lead store for tests.
package leadstest

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Store is a concurrency-safe in-memory repository.LeadStore.
type Store struct {
	mu     sync.Mutex
	leads  map[uuid.UUID]domain.Lead
	events []domain.Event
	seq    int
	now    func() time.Time

	// FailMetadataFor makes UpdateMetadata fail for the given emails.
	FailMetadataFor map[string]error
}

var _ repository.LeadStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		leads: make(map[uuid.UUID]domain.Lead),
		now:   time.Now,
	}
}

// Seed inserts leads as-is, assigning ids where missing. It returns the stored copies.
func (s *Store) Seed(leads ...domain.Lead) []domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Lead, 0, len(leads))
	for _, lead := range leads {
		if lead.ID == uuid.Nil {
			lead.ID = uuid.New()
		}
		lead.Email = domain.NormalizeEmail(lead.Email)
		if lead.Status == "" {
			lead.Status = domain.StatusActive
		}
		s.seq++
		if lead.CreatedAt.IsZero() {
			lead.CreatedAt = time.Unix(int64(s.seq), 0).UTC()
		}
		lead.Metadata = cloneMetadata(lead.Metadata)
		s.leads[lead.ID] = lead
		out = append(out, lead)
	}
	return out
}

// Lead returns the stored lead by email, for assertions.
func (s *Store) Lead(email string) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lead := range s.leads {
		if lead.Email == domain.NormalizeEmail(email) {
			return copyLead(lead), true
		}
	}
	return domain.Lead{}, false
}

// Events returns all appended events of the given type.
func (s *Store) Events(eventType string) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, 0)
	for _, ev := range s.events {
		if eventType == "" || ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return copyLead(lead), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := domain.NormalizeEmail(email)
	for _, lead := range s.leads {
		if lead.Email == want {
			return copyLead(lead), nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (s *Store) ListByStatusNotIn(_ context.Context, excluded []domain.Status) ([]domain.Lead, error) {
	skip := make(map[domain.Status]bool, len(excluded))
	for _, st := range excluded {
		skip[st] = true
	}
	return s.list(func(l domain.Lead) bool { return !skip[l.Status] }), nil
}

func (s *Store) ListAll(_ context.Context) ([]domain.Lead, error) {
	return s.list(func(domain.Lead) bool { return true }), nil
}

func (s *Store) Insert(_ context.Context, params repository.InsertParams) (domain.Lead, error) {
	if err := params.Metadata.Validate(); err != nil {
		return domain.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := domain.NormalizeEmail(params.Email)
	for _, lead := range s.leads {
		if lead.Email == email {
			return domain.Lead{}, repository.ErrDuplicate
		}
	}
	status := params.Status
	if status == "" {
		status = domain.StatusNew
	}
	s.seq++
	lead := domain.Lead{
		ID:        uuid.New(),
		Email:     email,
		Name:      params.Name,
		Source:    params.Source,
		Status:    status,
		Phone:     params.Phone,
		Message:   params.Message,
		CRMID:     params.CRMID,
		Metadata:  cloneMetadata(params.Metadata),
		CreatedAt: s.now().Add(time.Duration(s.seq)),
	}
	s.leads[lead.ID] = lead
	return copyLead(lead), nil
}

func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, status domain.Status) error {
	return s.modify(id, func(l *domain.Lead) error {
		l.Status = status
		return nil
	})
}

func (s *Store) UpdateProfile(_ context.Context, id uuid.UUID, params repository.ProfileUpdate) error {
	return s.modify(id, func(l *domain.Lead) error {
		if params.Name != nil {
			l.Name = *params.Name
		}
		if params.Company != nil {
			l.Metadata.Company = *params.Company
		}
		if params.Interest != nil {
			l.Metadata.Interest = *params.Interest
		}
		return nil
	})
}

func (s *Store) SetCRMID(_ context.Context, id uuid.UUID, crmID string) error {
	return s.modify(id, func(l *domain.Lead) error {
		v := crmID
		l.CRMID = &v
		return nil
	})
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.leads, id)
	return nil
}

func (s *Store) UpdateMetadata(_ context.Context, id uuid.UUID, mutate func(*domain.Metadata) error) (domain.Metadata, error) {
	var out domain.Metadata
	err := s.modify(id, func(l *domain.Lead) error {
		if err, ok := s.FailMetadataFor[l.Email]; ok {
			return err
		}
		m := cloneMetadata(l.Metadata)
		if err := mutate(&m); err != nil {
			return err
		}
		if err := m.Validate(); err != nil {
			return err
		}
		l.Metadata = m
		out = cloneMetadata(m)
		return nil
	})
	return out, err
}

func (s *Store) UpdateStageFields(ctx context.Context, id uuid.UUID, fields repository.StageFields) (domain.Metadata, error) {
	return s.UpdateMetadata(ctx, id, func(m *domain.Metadata) error {
		m.RecordSend(fields.Stage, fields.LastContactedAt)
		return nil
	})
}

func (s *Store) AppendEvent(_ context.Context, leadID uuid.UUID, eventType string, details map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, domain.Event{
		ID:        int64(len(s.events) + 1),
		LeadID:    leadID,
		Type:      eventType,
		Details:   details,
		CreatedAt: s.now(),
	})
	return nil
}

func (s *Store) list(keep func(domain.Lead) bool) []domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		if keep(lead) {
			out = append(out, copyLead(lead))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out
}

func (s *Store) modify(id uuid.UUID, fn func(*domain.Lead) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(&lead); err != nil {
		return err
	}
	s.leads[id] = lead
	return nil
}

func copyLead(l domain.Lead) domain.Lead {
	l.Metadata = cloneMetadata(l.Metadata)
	if l.CRMID != nil {
		v := *l.CRMID
		l.CRMID = &v
	}
	return l
}

// cloneMetadata deep-copies through JSON so tests never share pointers with the store.
func cloneMetadata(m domain.Metadata) domain.Metadata {
	data, err := json.Marshal(m)
	if err != nil {
		panic(errors.Join(errors.New("leadstest: clone metadata"), err))
	}
	var out domain.Metadata
	if err := json.Unmarshal(data, &out); err != nil {
		panic(errors.Join(errors.New("leadstest: clone metadata"), err))
	}
	return out
}
