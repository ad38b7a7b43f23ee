// Package models defines the core data structures for the atendente service.
//
// It includes the customer, product and memory records persisted by the
// store, plus the conversation state shared across channel adapters.
package models

import (
	"errors"
	"strings"
	"time"
)

// Stage identifies the current position in the intake script.
type Stage string

const (
	// StageStart is the initial stage before any message was processed.
	StageStart Stage = "inicio"
	// StageCollectName waits for the prospect's full name.
	StageCollectName Stage = "nome"
	// StageReturningCheck asks a recognized customer whether to refresh contact data.
	StageReturningCheck Stage = "atualizar"
	// StageCollectPhone waits for the phone number.
	StageCollectPhone Stage = "telefone"
	// StageCollectEmail waits for the e-mail address.
	StageCollectEmail Stage = "email"
	// StageCollectInterest asks whether the prospect wants personal or business coverage.
	StageCollectInterest Stage = "interesse"
	// StageCollectTaxID waits for the CNPJ of business prospects.
	StageCollectTaxID Stage = "cnpj"
	// StageOpenEnded is the terminal stage; turns are delegated to the LLM.
	StageOpenEnded Stage = "final"
)

// IsValid reports whether s is one of the defined intake stages.
func (s Stage) IsValid() bool {
	switch s {
	case StageStart, StageCollectName, StageReturningCheck, StageCollectPhone,
		StageCollectEmail, StageCollectInterest, StageCollectTaxID, StageOpenEnded:
		return true
	default:
		return false
	}
}

// Terminal reports whether the intake script has finished.
func (s Stage) Terminal() bool {
	return s == StageOpenEnded
}

// ErrInvalidStage is returned when a stored stage value is not part of the script.
var ErrInvalidStage = errors.New("invalid intake stage")

// ParseStage converts a stored stage string back into a Stage.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.IsValid() {
		return "", ErrInvalidStage
	}
	return s, nil
}

// Customer is the identity record kept for each prospect.
// Email and phone are unique across customers; violations surface as
// store.ErrDuplicateContact and are never merged silently.
type Customer struct {
	ID              int64  `json:"id"`
	Nome            string `json:"nome"`
	Email           string `json:"email,omitempty"`
	Telefone        string `json:"telefone,omitempty"`
	Idade           string `json:"idade,omitempty"`
	CNPJ            string `json:"cnpj,omitempty"`
	UltimaInteracao string `json:"ultima_interacao,omitempty"`
}

// Product is a read-only catalog entry. Listing order is insertion order.
type Product struct {
	ID        int64   `json:"id"`
	Nome      string  `json:"nome"`
	Cobertura string  `json:"cobertura"`
	Preco     float64 `json:"preco"`
}

// MemoryFact is one append-only (customer, key, value) row. A read is
// always the most recently appended value; an empty value acts as a
// logical clear.
type MemoryFact struct {
	ID          int64  `json:"id"`
	ClienteNome string `json:"cliente_nome"`
	Chave       string `json:"chave"`
	Valor       string `json:"valor"`
}

// Utterance is one (user, assistant) exchange in a conversation.
type Utterance struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Time      time.Time `json:"time,omitempty"`
}

// Conversation ties a channel session to an intake stage plus the
// answers collected so far. It is owned by the channel adapter and
// passed into the state machine by reference each turn; the machine
// keeps no state of its own between turns.
type Conversation struct {
	Stage      Stage       `json:"stage"`
	Nome       string      `json:"nome,omitempty"`
	Telefone   string      `json:"telefone,omitempty"`
	Email      string      `json:"email,omitempty"`
	Interesse  string      `json:"interesse,omitempty"`
	CNPJ       string      `json:"cnpj,omitempty"`
	Transcript []Utterance `json:"transcript,omitempty"`
}

// NewConversation returns a conversation at the start of the intake script.
func NewConversation() *Conversation {
	return &Conversation{Stage: StageStart}
}

// Append records one completed turn in the transcript.
func (c *Conversation) Append(user, assistant string) {
	c.Transcript = append(c.Transcript, Utterance{User: user, Assistant: assistant, Time: time.Now()})
}

// FirstName returns the first whitespace-delimited token of the stored
// full name, used wherever the script addresses the person by name.
func (c *Conversation) FirstName() string {
	fields := strings.Fields(c.Nome)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// WebhookMessage is the inner payload of an inbound WhatsApp webhook.
type WebhookMessage struct {
	Body string `json:"body"`
	From string `json:"from"`
}

// WebhookRequest is the typed schema for the webhook endpoint. Message
// is a pointer so a missing key can be rejected before any state is
// touched.
type WebhookRequest struct {
	Message *WebhookMessage `json:"message"`
}

// APIResponse is the standard JSON envelope returned by API endpoints.
type APIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Resposta string `json:"resposta,omitempty"`
	Result   any    `json:"result,omitempty"`
}

// Error creates an error API response with the given message.
func Error(message string) APIResponse {
	return APIResponse{Status: "error", Message: message}
}

// Success creates a successful API response with optional result data.
func Success(result any) APIResponse {
	return APIResponse{Status: "ok", Result: result}
}

// Reply creates a successful API response carrying the assistant's reply text.
func Reply(text string) APIResponse {
	return APIResponse{Status: "ok", Resposta: text}
}
