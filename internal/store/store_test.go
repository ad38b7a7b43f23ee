package store

import (
	"errors"
	"testing"

	"github.com/seguroscampos/atendente/internal/models"
)

func TestInMemoryStoreCustomerLookup(t *testing.T) {
	s := NewInMemoryStore()

	c, err := s.FindCustomerByName("Maria Silva")
	if err != nil {
		t.Fatalf("FindCustomerByName() error = %v", err)
	}
	if c != nil {
		t.Fatalf("expected no customer, got %+v", c)
	}

	if err := s.SaveCustomer(&models.Customer{Nome: "Maria Silva", Telefone: "5511988887777", Email: "maria@exemplo.com"}); err != nil {
		t.Fatalf("SaveCustomer() error = %v", err)
	}

	c, err = s.FindCustomerByName("maria silva")
	if err != nil {
		t.Fatalf("FindCustomerByName() error = %v", err)
	}
	if c == nil || c.Nome != "Maria Silva" {
		t.Fatalf("case-insensitive lookup failed, got %+v", c)
	}

	c, err = s.FindCustomerByPhone("5511988887777")
	if err != nil {
		t.Fatalf("FindCustomerByPhone() error = %v", err)
	}
	if c == nil || c.Email != "maria@exemplo.com" {
		t.Fatalf("phone lookup failed, got %+v", c)
	}
}

func TestInMemoryStoreSaveCustomerUpdatesInPlace(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.SaveCustomer(&models.Customer{Nome: "João Souza", Telefone: "551100001111"}); err != nil {
		t.Fatalf("SaveCustomer() error = %v", err)
	}
	if err := s.SaveCustomer(&models.Customer{Nome: "João Souza", Email: "joao@exemplo.com"}); err != nil {
		t.Fatalf("SaveCustomer() update error = %v", err)
	}

	c, err := s.FindCustomerByName("João Souza")
	if err != nil {
		t.Fatalf("FindCustomerByName() error = %v", err)
	}
	if c.Telefone != "551100001111" {
		t.Errorf("phone must survive an update that omits it, got %q", c.Telefone)
	}
	if c.Email != "joao@exemplo.com" {
		t.Errorf("email not updated, got %q", c.Email)
	}
}

func TestInMemoryStoreDuplicateContactReported(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.SaveCustomer(&models.Customer{Nome: "Ana Lima", Telefone: "5511977776666"}); err != nil {
		t.Fatalf("SaveCustomer() error = %v", err)
	}
	err := s.SaveCustomer(&models.Customer{Nome: "Outra Pessoa", Telefone: "5511977776666"})
	if !errors.Is(err, ErrDuplicateContact) {
		t.Fatalf("expected ErrDuplicateContact, got %v", err)
	}
}

func TestInMemoryStoreMemoryLatestWins(t *testing.T) {
	s := NewInMemoryStore()

	_, found, err := s.Recall("Maria Silva", "pendente")
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if found {
		t.Fatal("expected no fact before any write")
	}

	if err := s.Remember("Maria Silva", "pendente", "catalogo"); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}
	if err := s.Remember("Maria Silva", "pendente", "retorno"); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}

	v, found, err := s.Recall("Maria Silva", "pendente")
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if !found || v != "retorno" {
		t.Fatalf("expected latest value %q, got %q (found=%v)", "retorno", v, found)
	}

	// An empty value is a logical clear, not a deletion.
	if err := s.Remember("Maria Silva", "pendente", ""); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}
	v, found, err = s.Recall("Maria Silva", "pendente")
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if !found || v != "" {
		t.Fatalf("expected cleared value, got %q (found=%v)", v, found)
	}
}

func TestInMemoryStoreProductsInsertionOrder(t *testing.T) {
	s := NewInMemoryStore()
	for _, nome := range []string{"Seguro Residencial", "Seguro Auto", "Seguro Vida"} {
		if err := s.AddProduct(&models.Product{Nome: nome, Preco: 100}); err != nil {
			t.Fatalf("AddProduct(%q) error = %v", nome, err)
		}
	}
	products, err := s.ListProducts()
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	want := []string{"Seguro Residencial", "Seguro Auto", "Seguro Vida"}
	if len(products) != len(want) {
		t.Fatalf("expected %d products, got %d", len(want), len(products))
	}
	for i, p := range products {
		if p.Nome != want[i] {
			t.Errorf("product %d = %q, want %q (insertion order)", i, p.Nome, want[i])
		}
	}
}

func TestInMemoryStoreConversationsKeyedIndependently(t *testing.T) {
	s := NewInMemoryStore()

	a := models.NewConversation()
	a.Nome = "Maria Silva"
	a.Stage = models.StageCollectPhone
	if err := s.SaveConversation("sessao-a", a); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	b := models.NewConversation()
	if err := s.SaveConversation("sessao-b", b); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	got, err := s.GetConversation("sessao-a")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.Stage != models.StageCollectPhone || got.Nome != "Maria Silva" {
		t.Fatalf("conversation A corrupted: %+v", got)
	}

	got, err = s.GetConversation("sessao-b")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.Stage != models.StageStart || got.Nome != "" {
		t.Fatalf("conversation B must not see A's data: %+v", got)
	}

	// Mutating a returned conversation must not leak into the store.
	got.Nome = "Intruso"
	fresh, err := s.GetConversation("sessao-b")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if fresh.Nome != "" {
		t.Fatal("store must hand out copies, not shared state")
	}

	if err := s.DeleteConversation("sessao-a"); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	gone, err := s.GetConversation("sessao-a")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if gone != nil {
		t.Fatal("conversation A should be gone")
	}
}

func TestDecodeConversationRejectsUnknownStage(t *testing.T) {
	if _, err := decodeConversation(`{"stage":"etapa_que_nao_existe"}`); err == nil {
		t.Fatal("expected error for unknown stage")
	}
	conv, err := decodeConversation(`{"stage":"final","nome":"Maria Silva"}`)
	if err != nil {
		t.Fatalf("decodeConversation() error = %v", err)
	}
	if conv.Stage != models.StageOpenEnded {
		t.Fatalf("unexpected stage %q", conv.Stage)
	}
}
