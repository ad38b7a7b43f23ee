// Package intake implements the scripted dialogue state machine.
//
// The machine is stateless between turns: the channel adapter owns the
// conversation, passes it in by reference each turn, and persists it
// however the channel requires. One turn advances the stage, stores at
// most one collected answer, appends the exchange to the transcript and
// returns the reply text.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/seguroscampos/atendente/internal/models"
	"github.com/seguroscampos/atendente/internal/normalize"
	"github.com/seguroscampos/atendente/internal/store"
)

// Directory is the slice of the store the machine needs: name lookup
// during collect_name and the upsert when intake completes.
type Directory interface {
	FindCustomerByName(nome string) (*models.Customer, error)
	SaveCustomer(c *models.Customer) error
}

// Responder produces the assistant's utterance once the script is done.
type Responder interface {
	AssistantName() string
	Respond(ctx context.Context, transcript []models.Utterance, userMessage string) string
}

// Machine drives a conversation through the intake script and hands
// terminal turns to the responder.
type Machine struct {
	dir       Directory
	responder Responder
	title     cases.Caser
}

// NewMachine creates an intake machine over the given directory and responder.
func NewMachine(dir Directory, responder Responder) *Machine {
	return &Machine{
		dir:       dir,
		responder: responder,
		title:     cases.Title(language.BrazilianPortuguese),
	}
}

// Turn processes one user message: it mutates conv (stage, collected
// answers, transcript) and returns the reply to show the user. Storage
// failures end the turn with an in-character apology instead of an error.
func (m *Machine) Turn(ctx context.Context, conv *models.Conversation, message string) string {
	slog.Debug("Machine Turn", "stage", conv.Stage)
	var reply string

	switch conv.Stage {
	case models.StageStart:
		conv.Stage = models.StageCollectName
		reply = "Antes de tudo, qual é seu nome completo?"

	case models.StageCollectName:
		conv.Nome = m.title.String(strings.TrimSpace(message))
		existing, err := m.dir.FindCustomerByName(conv.Nome)
		if err != nil {
			slog.Error("Machine customer lookup failed", "error", err)
			reply = m.apology()
			break
		}
		if existing != nil {
			conv.Stage = models.StageReturningCheck
			reply = fmt.Sprintf("Bem-vindo(a) de volta, %s! 😄 Que bom te ver por aqui de novo!\nDeseja atualizar seus dados de contato?", conv.FirstName())
		} else {
			conv.Stage = models.StageCollectPhone
			reply = fmt.Sprintf("Prazer, %s! 😄 Esse número que você está usando é seu mesmo? Posso salvá-lo?", conv.FirstName())
		}

	case models.StageReturningCheck:
		if strings.Contains(normalize.Text(message), "sim") {
			conv.Stage = models.StageCollectPhone
			reply = "📱 Qual seu telefone com DDD?"
		} else {
			conv.Stage = models.StageOpenEnded
			reply = "Perfeito! 😄 Já posso te mostrar os planos disponíveis. Vamos lá!"
		}

	case models.StageCollectPhone:
		conv.Telefone = strings.TrimSpace(message)
		conv.Stage = models.StageCollectEmail
		reply = "📧 Qual seu e-mail para que eu possa te enviar os planos disponíveis?"

	case models.StageCollectEmail:
		conv.Email = strings.ToLower(strings.TrimSpace(message))
		conv.Stage = models.StageCollectInterest
		reply = "Você está buscando seguro pessoal ou empresarial? 🏠🏢"

	case models.StageCollectInterest:
		conv.Interesse = strings.TrimSpace(message)
		if strings.Contains(normalize.Text(message), "empresa") {
			conv.Stage = models.StageCollectTaxID
			reply = "Se for empresarial, me manda o CNPJ por gentileza 🏢"
		} else {
			// The stage only advances once the collected answers are
			// safely in the directory, so a failed turn can be retried.
			if err := m.finishIntake(conv); err != nil {
				reply = m.saveFailureReply(err)
				break
			}
			conv.Stage = models.StageOpenEnded
			reply = "Perfeito! 😄 Já posso te mostrar os planos disponíveis. Vamos lá!"
		}

	case models.StageCollectTaxID:
		conv.CNPJ = strings.TrimSpace(message)
		if err := m.finishIntake(conv); err != nil {
			reply = m.saveFailureReply(err)
			break
		}
		conv.Stage = models.StageOpenEnded
		reply = "Obrigado! Agora vamos ver os planos disponíveis pra você 😄"

	case models.StageOpenEnded:
		reply = m.responder.Respond(ctx, conv.Transcript, message)

	default:
		// Unknown stages cannot be constructed through ParseStage; a
		// zero-value conversation still lands here, so restart the script.
		conv.Stage = models.StageCollectName
		reply = "Antes de tudo, qual é seu nome completo?"
	}

	conv.Append(message, reply)
	return reply
}

// finishIntake upserts the collected answers into the customer directory
// once the script reaches the terminal stage.
func (m *Machine) finishIntake(conv *models.Conversation) error {
	c := &models.Customer{
		Nome:     conv.Nome,
		Email:    conv.Email,
		Telefone: conv.Telefone,
		CNPJ:     conv.CNPJ,
	}
	if err := m.dir.SaveCustomer(c); err != nil {
		slog.Error("Machine failed to save customer", "error", err, "nome", conv.Nome)
		return err
	}
	slog.Debug("Machine customer saved", "nome", conv.Nome)
	return nil
}

func (m *Machine) saveFailureReply(err error) string {
	if errors.Is(err, store.ErrDuplicateContact) {
		return fmt.Sprintf("🤖 %s: Esse e-mail ou telefone já está cadastrado com outra pessoa 😅. Pode conferir os dados pra mim?", m.responder.AssistantName())
	}
	return m.apology()
}

func (m *Machine) apology() string {
	return fmt.Sprintf("🤖 %s: Tivemos um probleminha por aqui. Pode tentar de novo? 🙏", m.responder.AssistantName())
}
