package payments

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process. It is meant for local development
// and tests; state is lost on restart.
type MemoryStore struct {
	mu        sync.Mutex
	records   map[string]Transaction
	callbacks []CallbackEvent
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Transaction{}, now: time.Now}
}

func (s *MemoryStore) Create(ctx context.Context, t *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[t.TransactionID]; ok {
		return ErrDuplicateTransaction
	}
	s.records[t.TransactionID] = *t
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, tranID string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.records[tranID]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, nil
}

func (s *MemoryStore) AttachSession(ctx context.Context, tranID, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.records[tranID]
	if !ok {
		return ErrTransactionNotFound
	}
	if t.Status != StatusPending {
		return nil
	}
	t.SessionKey = &sessionKey
	t.UpdatedAt = s.now()
	s.records[tranID] = t
	return nil
}

func (s *MemoryStore) Transition(ctx context.Context, tranID string, in TransitionInput) (Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.records[tranID]
	if !ok {
		return Transaction{}, false, ErrTransactionNotFound
	}
	if t.Status != StatusPending {
		return t, false, nil
	}
	in.applyTo(&t, s.now())
	s.records[tranID] = t
	return t, true, nil
}

func (s *MemoryStore) RecordCallback(ctx context.Context, ev CallbackEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callbacks = append(s.callbacks, ev)
	return nil
}

// Callbacks returns a copy of the recorded callback log.
func (s *MemoryStore) Callbacks() []CallbackEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CallbackEvent, len(s.callbacks))
	copy(out, s.callbacks)
	return out
}
