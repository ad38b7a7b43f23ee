package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/seguroscampos/atendente/internal/models"
	"github.com/seguroscampos/atendente/internal/store"
)

type fakeDirectory struct {
	customers map[string]*models.Customer
	saved     []*models.Customer
	findErr   error
	saveErr   error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{customers: make(map[string]*models.Customer)}
}

func (f *fakeDirectory) FindCustomerByName(nome string) (*models.Customer, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	c, ok := f.customers[strings.ToLower(nome)]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (f *fakeDirectory) SaveCustomer(c *models.Customer) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, c)
	return nil
}

type fakeResponder struct {
	reply       string
	transcripts [][]models.Utterance
}

func (f *fakeResponder) AssistantName() string { return "Auzeir" }

func (f *fakeResponder) Respond(_ context.Context, transcript []models.Utterance, _ string) string {
	f.transcripts = append(f.transcripts, transcript)
	return f.reply
}

func TestTurnStartPromptsForName(t *testing.T) {
	m := NewMachine(newFakeDirectory(), &fakeResponder{})
	conv := models.NewConversation()

	reply := m.Turn(context.Background(), conv, "oi")
	if conv.Stage != models.StageCollectName {
		t.Fatalf("expected stage %s, got %s", models.StageCollectName, conv.Stage)
	}
	if !strings.Contains(reply, "nome completo") {
		t.Errorf("expected name prompt, got %q", reply)
	}
	if len(conv.Transcript) != 1 {
		t.Errorf("expected 1 transcript entry, got %d", len(conv.Transcript))
	}
}

func TestTurnUnknownNameAsksToSavePhone(t *testing.T) {
	m := NewMachine(newFakeDirectory(), &fakeResponder{})
	conv := &models.Conversation{Stage: models.StageCollectName}

	reply := m.Turn(context.Background(), conv, "maria silva")
	if conv.Stage != models.StageCollectPhone {
		t.Fatalf("expected stage %s, got %s", models.StageCollectPhone, conv.Stage)
	}
	if conv.Nome != "Maria Silva" {
		t.Errorf("expected title-cased name Maria Silva, got %q", conv.Nome)
	}
	if !strings.Contains(reply, "Prazer, Maria") {
		t.Errorf("expected first-name greeting, got %q", reply)
	}
	if !strings.Contains(reply, "Posso salvá-lo?") {
		t.Errorf("expected phone confirmation prompt, got %q", reply)
	}
}

func TestTurnKnownNameAsksToUpdate(t *testing.T) {
	dir := newFakeDirectory()
	dir.customers["joão pereira"] = &models.Customer{ID: 1, Nome: "João Pereira"}
	m := NewMachine(dir, &fakeResponder{})
	conv := &models.Conversation{Stage: models.StageCollectName}

	reply := m.Turn(context.Background(), conv, "joão pereira")
	if conv.Stage != models.StageReturningCheck {
		t.Fatalf("expected stage %s, got %s", models.StageReturningCheck, conv.Stage)
	}
	if !strings.Contains(reply, "Bem-vindo(a) de volta, João") {
		t.Errorf("expected returning greeting, got %q", reply)
	}
}

func TestTurnReturningCheckAffirmative(t *testing.T) {
	m := NewMachine(newFakeDirectory(), &fakeResponder{})
	conv := &models.Conversation{Stage: models.StageReturningCheck, Nome: "João Pereira"}

	reply := m.Turn(context.Background(), conv, "Sim, por favor!")
	if conv.Stage != models.StageCollectPhone {
		t.Fatalf("expected stage %s, got %s", models.StageCollectPhone, conv.Stage)
	}
	if !strings.Contains(reply, "telefone com DDD") {
		t.Errorf("expected phone prompt, got %q", reply)
	}
}

func TestTurnReturningCheckNegativeSkipsToOpenEnded(t *testing.T) {
	dir := newFakeDirectory()
	m := NewMachine(dir, &fakeResponder{})
	conv := &models.Conversation{Stage: models.StageReturningCheck, Nome: "João Pereira"}

	m.Turn(context.Background(), conv, "não precisa")
	if conv.Stage != models.StageOpenEnded {
		t.Fatalf("expected stage %s, got %s", models.StageOpenEnded, conv.Stage)
	}
	if len(dir.saved) != 0 {
		t.Errorf("expected no customer writes when skipping intake, got %d", len(dir.saved))
	}
}

func TestTurnCollectsPhoneEmailInterest(t *testing.T) {
	dir := newFakeDirectory()
	m := NewMachine(dir, &fakeResponder{})
	conv := &models.Conversation{Stage: models.StageCollectPhone, Nome: "Maria Silva"}
	ctx := context.Background()

	m.Turn(ctx, conv, "11 99999-9999")
	if conv.Stage != models.StageCollectEmail {
		t.Fatalf("expected stage %s, got %s", models.StageCollectEmail, conv.Stage)
	}
	if conv.Telefone != "11 99999-9999" {
		t.Errorf("expected phone stored as given, got %q", conv.Telefone)
	}

	m.Turn(ctx, conv, "Maria.Silva@Example.COM")
	if conv.Stage != models.StageCollectInterest {
		t.Fatalf("expected stage %s, got %s", models.StageCollectInterest, conv.Stage)
	}
	if conv.Email != "maria.silva@example.com" {
		t.Errorf("expected lowercased email, got %q", conv.Email)
	}

	reply := m.Turn(ctx, conv, "pessoal")
	if conv.Stage != models.StageOpenEnded {
		t.Fatalf("expected stage %s, got %s", models.StageOpenEnded, conv.Stage)
	}
	if !strings.Contains(reply, "planos disponíveis") {
		t.Errorf("expected closing prompt, got %q", reply)
	}
	if len(dir.saved) != 1 {
		t.Fatalf("expected exactly one customer save, got %d", len(dir.saved))
	}
	saved := dir.saved[0]
	if saved.Nome != "Maria Silva" || saved.Email != "maria.silva@example.com" || saved.Telefone != "11 99999-9999" {
		t.Errorf("unexpected saved customer: %+v", saved)
	}
}

func TestTurnBusinessInterestAsksCNPJ(t *testing.T) {
	dir := newFakeDirectory()
	m := NewMachine(dir, &fakeResponder{})
	conv := &models.Conversation{Stage: models.StageCollectInterest, Nome: "Maria Silva"}
	ctx := context.Background()

	reply := m.Turn(ctx, conv, "Para minha EMPRESA!")
	if conv.Stage != models.StageCollectTaxID {
		t.Fatalf("expected stage %s, got %s", models.StageCollectTaxID, conv.Stage)
	}
	if !strings.Contains(reply, "CNPJ") {
		t.Errorf("expected CNPJ prompt, got %q", reply)
	}
	if len(dir.saved) != 0 {
		t.Errorf("expected no save before CNPJ is collected, got %d", len(dir.saved))
	}

	m.Turn(ctx, conv, "12.345.678/0001-90")
	if conv.Stage != models.StageOpenEnded {
		t.Fatalf("expected stage %s, got %s", models.StageOpenEnded, conv.Stage)
	}
	if len(dir.saved) != 1 {
		t.Fatalf("expected one customer save after CNPJ, got %d", len(dir.saved))
	}
	if dir.saved[0].CNPJ != "12.345.678/0001-90" {
		t.Errorf("unexpected CNPJ saved: %q", dir.saved[0].CNPJ)
	}
}

func TestTurnOpenEndedDelegatesToResponder(t *testing.T) {
	resp := &fakeResponder{reply: "Claro! 😊"}
	m := NewMachine(newFakeDirectory(), resp)
	conv := &models.Conversation{Stage: models.StageOpenEnded, Nome: "Maria Silva"}
	conv.Append("oi", "olá")

	reply := m.Turn(context.Background(), conv, "quanto custa?")
	if reply != "Claro! 😊" {
		t.Errorf("expected responder reply, got %q", reply)
	}
	if conv.Stage != models.StageOpenEnded {
		t.Errorf("expected terminal self-loop, got stage %s", conv.Stage)
	}
	if len(resp.transcripts) != 1 || len(resp.transcripts[0]) != 1 {
		t.Errorf("expected responder to receive prior transcript")
	}
	if len(conv.Transcript) != 2 {
		t.Errorf("expected transcript to grow to 2 entries, got %d", len(conv.Transcript))
	}
}

func TestTurnDuplicateContactReportsConflict(t *testing.T) {
	dir := newFakeDirectory()
	dir.saveErr = store.ErrDuplicateContact
	m := NewMachine(dir, &fakeResponder{})
	conv := &models.Conversation{Stage: models.StageCollectInterest, Nome: "Maria Silva", Email: "maria@example.com"}

	reply := m.Turn(context.Background(), conv, "pessoal")
	if conv.Stage != models.StageCollectInterest {
		t.Errorf("expected stage to hold on save failure, got %s", conv.Stage)
	}
	if !strings.Contains(reply, "já está cadastrado") {
		t.Errorf("expected duplicate-contact reply, got %q", reply)
	}
}

func TestTurnLookupFailureApologizes(t *testing.T) {
	dir := newFakeDirectory()
	dir.findErr = errors.New("connection refused")
	m := NewMachine(dir, &fakeResponder{})
	conv := &models.Conversation{Stage: models.StageCollectName}

	reply := m.Turn(context.Background(), conv, "Maria Silva")
	if conv.Stage != models.StageCollectName {
		t.Errorf("expected stage to hold on lookup failure, got %s", conv.Stage)
	}
	if !strings.Contains(reply, "probleminha") {
		t.Errorf("expected apology reply, got %q", reply)
	}
}

func TestTurnStrictStageAdvance(t *testing.T) {
	dir := newFakeDirectory()
	m := NewMachine(dir, &fakeResponder{reply: "ok"})
	conv := models.NewConversation()
	ctx := context.Background()

	want := []models.Stage{
		models.StageCollectName,
		models.StageCollectPhone,
		models.StageCollectEmail,
		models.StageCollectInterest,
		models.StageOpenEnded,
	}
	inputs := []string{"oi", "Maria Silva", "11 98888-7777", "maria@example.com", "pessoal"}
	for i, in := range inputs {
		m.Turn(ctx, conv, in)
		if conv.Stage != want[i] {
			t.Fatalf("turn %d: expected stage %s, got %s", i, want[i], conv.Stage)
		}
	}
}
