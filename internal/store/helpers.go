package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seguroscampos/atendente/internal/models"
)

// DetectDSNType reports "postgres" for PostgreSQL connection strings
// and "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable unique columns so empty values never collide.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanCustomer scans one clientes row from a sql.Row.
func scanCustomer(row *sql.Row) (*models.Customer, error) {
	var c models.Customer
	var email, telefone, idade, cnpj, ultima sql.NullString
	err := row.Scan(&c.ID, &c.Nome, &email, &telefone, &idade, &cnpj, &ultima)
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	c.Telefone = telefone.String
	c.Idade = idade.String
	c.CNPJ = cnpj.String
	c.UltimaInteracao = ultima.String
	return &c, nil
}

// encodeConversation serializes conversation state for the conversas table.
func encodeConversation(conv *models.Conversation) (string, error) {
	raw, err := json.Marshal(conv)
	if err != nil {
		return "", fmt.Errorf("marshal conversation: %w", err)
	}
	return string(raw), nil
}

// decodeConversation restores conversation state from the conversas
// table, rejecting rows whose stage is not part of the intake script.
func decodeConversation(raw string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	if _, err := models.ParseStage(string(conv.Stage)); err != nil {
		return nil, fmt.Errorf("conversation has %w: %q", err, conv.Stage)
	}
	return &conv, nil
}
