// Package store provides storage backends for the atendente service.
//
// Three logical tables back the conversation core: clientes (unique
// email and phone), produtos (catalog, insertion order) and memoria
// (append-only facts, latest value wins). A fourth table, conversas,
// persists per-phone conversation state for the WhatsApp channel.
// PostgreSQL and SQLite implementations are provided, plus an
// in-memory store used for web sessions and tests.
package store

import (
	"errors"

	"github.com/seguroscampos/atendente/internal/models"
)

// Store is the persistence contract used by the channel adapters and
// the intake state machine. Absent rows come back as (nil, nil) or an
// explicit found flag, never as an error.
type Store interface {
	// Customer directory.
	FindCustomerByName(nome string) (*models.Customer, error)
	FindCustomerByPhone(telefone string) (*models.Customer, error)
	SaveCustomer(c *models.Customer) error
	TouchCustomer(nome, ultimaInteracao string) error

	// Catalog, read in insertion order.
	ListProducts() ([]models.Product, error)
	AddProduct(p *models.Product) error

	// Append-only memory facts.
	Remember(clienteNome, chave, valor string) error
	Recall(clienteNome, chave string) (string, bool, error)

	// Durable conversation state, keyed per phone (WhatsApp channel).
	GetConversation(key string) (*models.Conversation, error)
	SaveConversation(key string, conv *models.Conversation) error
	DeleteConversation(key string) error

	Close() error
}

// Sentinel errors shared by all backends.
var (
	// ErrDuplicateContact is returned when saving a customer would
	// violate the unique email or phone constraint. Duplicates are
	// reported, never merged.
	ErrDuplicateContact = errors.New("customer with this email or phone already exists")
)

// Opts holds configuration options for storage backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for storage backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}
