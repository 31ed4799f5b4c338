package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

var (
	_ ports.CodeStore   = (*CodeStore)(nil)
	_ ports.RateLimiter = (*RateLimiter)(nil)
)

// CodeStore códigos OTP en memoria del proceso (un solo nodo, se pierden al reiniciar).
// Con REDIS_ADDR configurado se usa el adaptador de Redis.
type CodeStore struct {
	mu     sync.Mutex
	codes  map[string]*entity.ResetCode
	latest map[string]string // email -> id
	now    func() time.Time
}

// NewCodeStore construye el almacén.
func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]*entity.ResetCode), latest: make(map[string]string), now: time.Now}
}

func (s *CodeStore) Save(_ context.Context, c *entity.ResetCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge()
	cp := *c
	s.codes[c.ID] = &cp
	s.latest[strings.ToLower(c.Email)] = c.ID
	return nil
}

func (s *CodeStore) Latest(_ context.Context, email string) (*entity.ResetCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.latest[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return s.get(id), nil
}

func (s *CodeStore) Get(_ context.Context, id string) (*entity.ResetCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id), nil
}

func (s *CodeStore) Consume(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[id]
	if !ok || c.Consumed || c.Expired(s.now()) {
		return false, nil
	}
	c.Consumed = true
	return true, nil
}

func (s *CodeStore) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.codes[id]; ok {
		c.Consumed = false
	}
	return nil
}

func (s *CodeStore) get(id string) *entity.ResetCode {
	c, ok := s.codes[id]
	if !ok || c.Expired(s.now()) {
		return nil
	}
	cp := *c
	return &cp
}

func (s *CodeStore) purge() {
	now := s.now()
	for id, c := range s.codes {
		if c.Expired(now) {
			delete(s.codes, id)
		}
	}
}

// RateLimiter ventana deslizante en memoria del proceso.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter permite max operaciones por clave dentro de window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: max, window: window, hits: make(map[string][]time.Time), now: time.Now}
}

func (l *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false, kept[0].Add(l.window).Sub(now), nil
	}
	l.hits[key] = append(kept, now)
	return true, 0, nil
}
