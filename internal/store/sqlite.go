// Package store provides storage backends for the atendente service.
//
// This file implements the SQLite-backed store used when no Postgres
// DSN is configured.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/mattn/go-sqlite3"
	"github.com/seguroscampos/atendente/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path; missing parent directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")
	return &SQLiteStore{db: db}, nil
}

// FindCustomerByName looks a customer up by full name, case-insensitively.
// Returns (nil, nil) when no customer matches.
func (s *SQLiteStore) FindCustomerByName(nome string) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, nome, email, telefone, idade, cnpj, ultima_interacao FROM clientes WHERE nome LIKE ? LIMIT 1`, nome)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore FindCustomerByName failed", "error", err, "nome", nome)
		return nil, fmt.Errorf("failed to query customer by name: %w", err)
	}
	return c, nil
}

// FindCustomerByPhone looks a customer up by phone number.
// Returns (nil, nil) when no customer matches.
func (s *SQLiteStore) FindCustomerByPhone(telefone string) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, nome, email, telefone, idade, cnpj, ultima_interacao FROM clientes WHERE telefone = ? LIMIT 1`, telefone)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore FindCustomerByPhone failed", "error", err, "telefone", telefone)
		return nil, fmt.Errorf("failed to query customer by phone: %w", err)
	}
	return c, nil
}

// SaveCustomer upserts a customer keyed by name. Existing fields are
// only overwritten by non-empty values. A unique violation on email or
// phone is reported as ErrDuplicateContact.
func (s *SQLiteStore) SaveCustomer(c *models.Customer) error {
	res, err := s.db.Exec(`
		UPDATE clientes SET
			email = COALESCE(?, email),
			telefone = COALESCE(?, telefone),
			idade = COALESCE(?, idade),
			cnpj = COALESCE(?, cnpj),
			ultima_interacao = COALESCE(?, ultima_interacao)
		WHERE nome LIKE ?`,
		nilIfEmpty(c.Email), nilIfEmpty(c.Telefone), nilIfEmpty(c.Idade), nilIfEmpty(c.CNPJ), nilIfEmpty(c.UltimaInteracao), c.Nome)
	if err != nil {
		return s.wrapSaveCustomerErr(err, c.Nome)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save customer %s: %w", c.Nome, err)
	}
	if affected > 0 {
		slog.Debug("SQLiteStore SaveCustomer updated", "nome", c.Nome)
		return nil
	}
	_, err = s.db.Exec(`INSERT INTO clientes (nome, email, telefone, idade, cnpj, ultima_interacao) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Nome, nilIfEmpty(c.Email), nilIfEmpty(c.Telefone), nilIfEmpty(c.Idade), nilIfEmpty(c.CNPJ), nilIfEmpty(c.UltimaInteracao))
	if err != nil {
		return s.wrapSaveCustomerErr(err, c.Nome)
	}
	slog.Debug("SQLiteStore SaveCustomer inserted", "nome", c.Nome)
	return nil
}

func (s *SQLiteStore) wrapSaveCustomerErr(err error, nome string) error {
	if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		slog.Warn("SQLiteStore SaveCustomer duplicate contact", "nome", nome)
		return fmt.Errorf("%w: %v", ErrDuplicateContact, err)
	}
	slog.Error("SQLiteStore SaveCustomer failed", "error", err, "nome", nome)
	return fmt.Errorf("failed to save customer %s: %w", nome, err)
}

// TouchCustomer refreshes the free-text last-interaction marker.
func (s *SQLiteStore) TouchCustomer(nome, ultimaInteracao string) error {
	_, err := s.db.Exec(`UPDATE clientes SET ultima_interacao = ? WHERE nome LIKE ?`, ultimaInteracao, nome)
	if err != nil {
		slog.Error("SQLiteStore TouchCustomer failed", "error", err, "nome", nome)
		return fmt.Errorf("failed to touch customer %s: %w", nome, err)
	}
	return nil
}

// ListProducts returns the catalog in insertion order.
func (s *SQLiteStore) ListProducts() ([]models.Product, error) {
	rows, err := s.db.Query(`SELECT id, nome, COALESCE(cobertura, ''), COALESCE(preco, 0) FROM produtos ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore ListProducts query failed", "error", err)
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()
	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Nome, &p.Cobertura, &p.Preco); err != nil {
			slog.Error("SQLiteStore ListProducts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListProducts rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate product rows: %w", err)
	}
	return products, nil
}

// AddProduct appends a catalog entry.
func (s *SQLiteStore) AddProduct(p *models.Product) error {
	res, err := s.db.Exec(`INSERT INTO produtos (nome, cobertura, preco) VALUES (?, ?, ?)`,
		p.Nome, nilIfEmpty(p.Cobertura), p.Preco)
	if err != nil {
		slog.Error("SQLiteStore AddProduct failed", "error", err, "nome", p.Nome)
		return fmt.Errorf("failed to insert product %s: %w", p.Nome, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

// Remember appends a memory fact. Facts are never updated in place.
func (s *SQLiteStore) Remember(clienteNome, chave, valor string) error {
	_, err := s.db.Exec(`INSERT INTO memoria (cliente_nome, chave, valor) VALUES (?, ?, ?)`, clienteNome, chave, valor)
	if err != nil {
		slog.Error("SQLiteStore Remember failed", "error", err, "cliente", clienteNome, "chave", chave)
		return fmt.Errorf("failed to insert memory fact for %s: %w", clienteNome, err)
	}
	return nil
}

// Recall returns the most recently appended value for (cliente, chave),
// or found=false when no fact was ever written.
func (s *SQLiteStore) Recall(clienteNome, chave string) (string, bool, error) {
	var valor string
	err := s.db.QueryRow(`SELECT valor FROM memoria WHERE cliente_nome = ? AND chave = ? ORDER BY id DESC LIMIT 1`, clienteNome, chave).Scan(&valor)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		slog.Error("SQLiteStore Recall failed", "error", err, "cliente", clienteNome, "chave", chave)
		return "", false, fmt.Errorf("failed to recall memory for %s: %w", clienteNome, err)
	}
	return valor, true, nil
}

// GetConversation loads conversation state by key. Returns (nil, nil)
// when no conversation exists for the key.
func (s *SQLiteStore) GetConversation(key string) (*models.Conversation, error) {
	var dados string
	err := s.db.QueryRow(`SELECT dados FROM conversas WHERE chave = ?`, key).Scan(&dados)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversation failed", "error", err, "chave", key)
		return nil, fmt.Errorf("failed to query conversation %s: %w", key, err)
	}
	return decodeConversation(dados)
}

// SaveConversation stores or updates conversation state for a key.
func (s *SQLiteStore) SaveConversation(key string, conv *models.Conversation) error {
	dados, err := encodeConversation(conv)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversas (chave, estado, dados, atualizado_em)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (chave)
		DO UPDATE SET estado = excluded.estado, dados = excluded.dados, atualizado_em = excluded.atualizado_em`,
		key, string(conv.Stage), dados)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation failed", "error", err, "chave", key)
		return fmt.Errorf("failed to save conversation %s: %w", key, err)
	}
	return nil
}

// DeleteConversation removes conversation state for a key.
func (s *SQLiteStore) DeleteConversation(key string) error {
	_, err := s.db.Exec(`DELETE FROM conversas WHERE chave = ?`, key)
	if err != nil {
		slog.Error("SQLiteStore DeleteConversation failed", "error", err, "chave", key)
		return fmt.Errorf("failed to delete conversation %s: %w", key, err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
