// Package store provides storage backends for the atendente service.
//
// This file implements an in-memory store used for tests and for the
// ephemeral web-session conversation state.
package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/seguroscampos/atendente/internal/models"
)

// InMemoryStore is a concurrency-safe Store kept entirely in process
// memory. Conversation state is keyed per session or phone, never
// shared between keys.
type InMemoryStore struct {
	mu            sync.RWMutex
	customers     []models.Customer
	products      []models.Product
	facts         []models.MemoryFact
	conversations map[string]*models.Conversation
	nextID        int64
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]*models.Conversation),
		nextID:        1,
	}
}

// FindCustomerByName looks a customer up by full name, case-insensitively.
func (s *InMemoryStore) FindCustomerByName(nome string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.customers {
		if strings.EqualFold(s.customers[i].Nome, nome) {
			c := s.customers[i]
			return &c, nil
		}
	}
	return nil, nil
}

// FindCustomerByPhone looks a customer up by phone number.
func (s *InMemoryStore) FindCustomerByPhone(telefone string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.customers {
		if s.customers[i].Telefone == telefone {
			c := s.customers[i]
			return &c, nil
		}
	}
	return nil, nil
}

// SaveCustomer upserts a customer keyed by name, enforcing the unique
// email and phone invariant the SQL backends get from their schema.
func (s *InMemoryStore) SaveCustomer(c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.customers {
		if strings.EqualFold(s.customers[i].Nome, c.Nome) {
			continue
		}
		if c.Email != "" && strings.EqualFold(s.customers[i].Email, c.Email) {
			return fmt.Errorf("%w: email %s", ErrDuplicateContact, c.Email)
		}
		if c.Telefone != "" && s.customers[i].Telefone == c.Telefone {
			return fmt.Errorf("%w: telefone %s", ErrDuplicateContact, c.Telefone)
		}
	}
	for i := range s.customers {
		if strings.EqualFold(s.customers[i].Nome, c.Nome) {
			existing := &s.customers[i]
			if c.Email != "" {
				existing.Email = c.Email
			}
			if c.Telefone != "" {
				existing.Telefone = c.Telefone
			}
			if c.Idade != "" {
				existing.Idade = c.Idade
			}
			if c.CNPJ != "" {
				existing.CNPJ = c.CNPJ
			}
			if c.UltimaInteracao != "" {
				existing.UltimaInteracao = c.UltimaInteracao
			}
			return nil
		}
	}
	saved := *c
	saved.ID = s.nextID
	s.nextID++
	s.customers = append(s.customers, saved)
	return nil
}

// TouchCustomer refreshes the free-text last-interaction marker.
func (s *InMemoryStore) TouchCustomer(nome, ultimaInteracao string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.customers {
		if strings.EqualFold(s.customers[i].Nome, nome) {
			s.customers[i].UltimaInteracao = ultimaInteracao
			return nil
		}
	}
	return nil
}

// ListProducts returns the catalog in insertion order.
func (s *InMemoryStore) ListProducts() ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

// AddProduct appends a catalog entry.
func (s *InMemoryStore) AddProduct(p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	s.products = append(s.products, *p)
	return nil
}

// Remember appends a memory fact. Facts are never updated in place.
func (s *InMemoryStore) Remember(clienteNome, chave, valor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, models.MemoryFact{
		ID:          s.nextID,
		ClienteNome: clienteNome,
		Chave:       chave,
		Valor:       valor,
	})
	s.nextID++
	return nil
}

// Recall returns the most recently appended value for (cliente, chave).
func (s *InMemoryStore) Recall(clienteNome, chave string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.facts) - 1; i >= 0; i-- {
		if s.facts[i].ClienteNome == clienteNome && s.facts[i].Chave == chave {
			return s.facts[i].Valor, true, nil
		}
	}
	return "", false, nil
}

// GetConversation loads conversation state by key.
func (s *InMemoryStore) GetConversation(key string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[key]
	if !ok {
		return nil, nil
	}
	clone := *conv
	clone.Transcript = append([]models.Utterance(nil), conv.Transcript...)
	return &clone, nil
}

// SaveConversation stores or updates conversation state for a key.
func (s *InMemoryStore) SaveConversation(key string, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *conv
	clone.Transcript = append([]models.Utterance(nil), conv.Transcript...)
	s.conversations[key] = &clone
	return nil
}

// DeleteConversation removes conversation state for a key.
func (s *InMemoryStore) DeleteConversation(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
