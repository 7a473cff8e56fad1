package service

import (
	"strings"
	"sync"

	"glow-llm/internal/domain"
)

// SessionProducts acumula los productos descubiertos via tool calls durante
// una corrida de sintesis, indexados por id y por nombre en minusculas.
// Es la fuente autoritativa que el resolver consulta primero. Pertenece a una
// sola corrida; el mutex solo cubre las tool calls concurrentes de una ronda.
type SessionProducts struct {
	mu     sync.RWMutex
	byID   map[string]domain.Product
	byName map[string]domain.Product
}

func NewSessionProducts() *SessionProducts {
	return &SessionProducts{
		byID:   make(map[string]domain.Product),
		byName: make(map[string]domain.Product),
	}
}

// Remember registra un producto descubierto por el modelo.
func (s *SessionProducts) Remember(p domain.Product) {
	if p.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
	if name := strings.ToLower(strings.TrimSpace(p.Name)); name != "" {
		s.byName[name] = p
	}
}

// ByID busca por id exacto.
func (s *SessionProducts) ByID(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

// ByName busca por nombre exacto (case-insensitive); si no hay match exacto
// intenta substring en ambas direcciones.
func (s *SessionProducts) ByName(name string) (domain.Product, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return domain.Product{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.byName[needle]; ok {
		return p, true
	}
	for stored, p := range s.byName {
		if strings.Contains(stored, needle) || strings.Contains(needle, stored) {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Count devuelve cuantos productos unicos se han descubierto.
func (s *SessionProducts) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
