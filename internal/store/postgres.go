// Package store provides storage backends for the atendente service.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/lib/pq"
	"github.com/seguroscampos/atendente/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// pqUniqueViolation is the PostgreSQL error code for unique_violation.
const pqUniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
// TLS policy is taken from the DSN (sslmode parameter), never decided here.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	// Run migrations so the clientes, produtos, memoria and conversas tables exist.
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// FindCustomerByName looks a customer up by full name, case-insensitively.
// Returns (nil, nil) when no customer matches.
func (s *PostgresStore) FindCustomerByName(nome string) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, nome, email, telefone, idade, cnpj, ultima_interacao FROM clientes WHERE nome ILIKE $1 LIMIT 1`, nome)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore FindCustomerByName failed", "error", err, "nome", nome)
		return nil, fmt.Errorf("failed to query customer by name: %w", err)
	}
	return c, nil
}

// FindCustomerByPhone looks a customer up by phone number.
// Returns (nil, nil) when no customer matches.
func (s *PostgresStore) FindCustomerByPhone(telefone string) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, nome, email, telefone, idade, cnpj, ultima_interacao FROM clientes WHERE telefone = $1 LIMIT 1`, telefone)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore FindCustomerByPhone failed", "error", err, "telefone", telefone)
		return nil, fmt.Errorf("failed to query customer by phone: %w", err)
	}
	return c, nil
}

// SaveCustomer upserts a customer keyed by name. Existing fields are
// only overwritten by non-empty values. A unique violation on email or
// phone is reported as ErrDuplicateContact.
func (s *PostgresStore) SaveCustomer(c *models.Customer) error {
	res, err := s.db.Exec(`
		UPDATE clientes SET
			email = COALESCE($2, email),
			telefone = COALESCE($3, telefone),
			idade = COALESCE($4, idade),
			cnpj = COALESCE($5, cnpj),
			ultima_interacao = COALESCE($6, ultima_interacao)
		WHERE nome ILIKE $1`,
		c.Nome, nilIfEmpty(c.Email), nilIfEmpty(c.Telefone), nilIfEmpty(c.Idade), nilIfEmpty(c.CNPJ), nilIfEmpty(c.UltimaInteracao))
	if err != nil {
		return s.wrapSaveCustomerErr(err, c.Nome)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save customer %s: %w", c.Nome, err)
	}
	if affected > 0 {
		slog.Debug("PostgresStore SaveCustomer updated", "nome", c.Nome)
		return nil
	}
	_, err = s.db.Exec(`INSERT INTO clientes (nome, email, telefone, idade, cnpj, ultima_interacao) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.Nome, nilIfEmpty(c.Email), nilIfEmpty(c.Telefone), nilIfEmpty(c.Idade), nilIfEmpty(c.CNPJ), nilIfEmpty(c.UltimaInteracao))
	if err != nil {
		return s.wrapSaveCustomerErr(err, c.Nome)
	}
	slog.Debug("PostgresStore SaveCustomer inserted", "nome", c.Nome)
	return nil
}

func (s *PostgresStore) wrapSaveCustomerErr(err error, nome string) error {
	if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
		slog.Warn("PostgresStore SaveCustomer duplicate contact", "nome", nome, "constraint", pqErr.Constraint)
		return fmt.Errorf("%w: %s", ErrDuplicateContact, pqErr.Constraint)
	}
	slog.Error("PostgresStore SaveCustomer failed", "error", err, "nome", nome)
	return fmt.Errorf("failed to save customer %s: %w", nome, err)
}

// TouchCustomer refreshes the free-text last-interaction marker.
func (s *PostgresStore) TouchCustomer(nome, ultimaInteracao string) error {
	_, err := s.db.Exec(`UPDATE clientes SET ultima_interacao = $2 WHERE nome ILIKE $1`, nome, ultimaInteracao)
	if err != nil {
		slog.Error("PostgresStore TouchCustomer failed", "error", err, "nome", nome)
		return fmt.Errorf("failed to touch customer %s: %w", nome, err)
	}
	return nil
}

// ListProducts returns the catalog in insertion order.
func (s *PostgresStore) ListProducts() ([]models.Product, error) {
	rows, err := s.db.Query(`SELECT id, nome, COALESCE(cobertura, ''), COALESCE(preco, 0) FROM produtos ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore ListProducts query failed", "error", err)
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()
	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Nome, &p.Cobertura, &p.Preco); err != nil {
			slog.Error("PostgresStore ListProducts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListProducts rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate product rows: %w", err)
	}
	return products, nil
}

// AddProduct appends a catalog entry.
func (s *PostgresStore) AddProduct(p *models.Product) error {
	err := s.db.QueryRow(`INSERT INTO produtos (nome, cobertura, preco) VALUES ($1, $2, $3) RETURNING id`,
		p.Nome, nilIfEmpty(p.Cobertura), p.Preco).Scan(&p.ID)
	if err != nil {
		slog.Error("PostgresStore AddProduct failed", "error", err, "nome", p.Nome)
		return fmt.Errorf("failed to insert product %s: %w", p.Nome, err)
	}
	return nil
}

// Remember appends a memory fact. Facts are never updated in place.
func (s *PostgresStore) Remember(clienteNome, chave, valor string) error {
	_, err := s.db.Exec(`INSERT INTO memoria (cliente_nome, chave, valor) VALUES ($1, $2, $3)`, clienteNome, chave, valor)
	if err != nil {
		slog.Error("PostgresStore Remember failed", "error", err, "cliente", clienteNome, "chave", chave)
		return fmt.Errorf("failed to insert memory fact for %s: %w", clienteNome, err)
	}
	return nil
}

// Recall returns the most recently appended value for (cliente, chave),
// or found=false when no fact was ever written.
func (s *PostgresStore) Recall(clienteNome, chave string) (string, bool, error) {
	var valor string
	err := s.db.QueryRow(`SELECT valor FROM memoria WHERE cliente_nome = $1 AND chave = $2 ORDER BY id DESC LIMIT 1`, clienteNome, chave).Scan(&valor)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		slog.Error("PostgresStore Recall failed", "error", err, "cliente", clienteNome, "chave", chave)
		return "", false, fmt.Errorf("failed to recall memory for %s: %w", clienteNome, err)
	}
	return valor, true, nil
}

// GetConversation loads conversation state by key. Returns (nil, nil)
// when no conversation exists for the key.
func (s *PostgresStore) GetConversation(key string) (*models.Conversation, error) {
	var dados string
	err := s.db.QueryRow(`SELECT dados FROM conversas WHERE chave = $1`, key).Scan(&dados)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversation failed", "error", err, "chave", key)
		return nil, fmt.Errorf("failed to query conversation %s: %w", key, err)
	}
	return decodeConversation(dados)
}

// SaveConversation stores or updates conversation state for a key.
func (s *PostgresStore) SaveConversation(key string, conv *models.Conversation) error {
	dados, err := encodeConversation(conv)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversas (chave, estado, dados, atualizado_em)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chave)
		DO UPDATE SET estado = EXCLUDED.estado, dados = EXCLUDED.dados, atualizado_em = EXCLUDED.atualizado_em`,
		key, string(conv.Stage), dados)
	if err != nil {
		slog.Error("PostgresStore SaveConversation failed", "error", err, "chave", key)
		return fmt.Errorf("failed to save conversation %s: %w", key, err)
	}
	return nil
}

// DeleteConversation removes conversation state for a key.
func (s *PostgresStore) DeleteConversation(key string) error {
	_, err := s.db.Exec(`DELETE FROM conversas WHERE chave = $1`, key)
	if err != nil {
		slog.Error("PostgresStore DeleteConversation failed", "error", err, "chave", key)
		return fmt.Errorf("failed to delete conversation %s: %w", key, err)
	}
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	}
	return err
}
