package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/seguroscampos/atendente/internal/intent"
	"github.com/seguroscampos/atendente/internal/models"
	"github.com/seguroscampos/atendente/internal/normalize"
)

// The pending memory flag marks a customer who asked for the catalog
// before any product was registered; a closing turn clears it.
const (
	pendingKey         = "pendente"
	pendingCatalogFlag = "catalogo"
)

const emptyCatalogReply = "Ainda não temos serviços cadastrados. Volte em breve! ⏳"

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.homeHandler: new web session", "path", r.URL.Path)

	// A visit to the root always starts a fresh conversation.
	key, _ := s.sessionConversation(w, r)
	if err := s.sessions.DeleteConversation(key); err != nil {
		slog.Error("Server.homeHandler: failed to reset session", "error", err)
	}
	conv := models.NewConversation()
	s.saveSession(key, conv)

	greeting := fmt.Sprintf("Olá! 👋 Seja muito bem-vindo(a) à nossa corretora de seguros!\nSou o %s, seu consultor virtual 🧢💼.\nAntes de tudo, qual é seu nome completo?", s.responder.AssistantName())
	writeJSONResponse(w, http.StatusOK, models.Reply(greeting))
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.chatHandler: failed to parse form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("formulário inválido"))
		return
	}
	mensagem := strings.TrimSpace(r.FormValue("mensagem"))
	if mensagem == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("mensagem ausente"))
		return
	}

	key, conv := s.sessionConversation(w, r)
	reply := s.machine.Turn(r.Context(), conv, mensagem)
	s.saveSession(key, conv)

	slog.Debug("Server.chatHandler: turn completed", "stage", conv.Stage)
	writeJSONResponse(w, http.StatusOK, models.Reply(reply))
}

func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		slog.Warn("Server.webhookHandler: missing message in payload")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("mensagem ausente"))
		return
	}

	phone := req.Message.From
	text := req.Message.Body
	slog.Debug("Server.webhookHandler: inbound message", "phone", phone)

	customer, err := s.st.FindCustomerByPhone(phone)
	if err != nil {
		slog.Error("Server.webhookHandler: phone lookup failed", "error", err, "phone", phone)
		s.deliver(r, phone, s.apology())
		writeJSONResponse(w, http.StatusOK, models.Success(nil))
		return
	}

	var reply string
	if customer == nil {
		reply = s.intakeTurn(r, phone, text)
	} else {
		reply = s.knownCustomerTurn(r, customer, phone, text)
	}

	s.deliver(r, phone, reply)
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// intakeTurn runs the intake script for a phone the directory does not
// know yet, persisting the conversation per phone between webhooks.
func (s *Server) intakeTurn(r *http.Request, phone, text string) string {
	conv, err := s.st.GetConversation(phone)
	if err != nil {
		slog.Error("Server.intakeTurn: failed to restore conversation", "error", err, "phone", phone)
		return s.apology()
	}

	var reply string
	if conv == nil {
		// First contact ever: greet and open the script.
		conv = models.NewConversation()
		conv.Stage = models.StageCollectName
		reply = fmt.Sprintf("Olá! 👋 Sou o %s, seu consultor virtual 🧢💼.\nQual é seu nome completo?", s.responder.AssistantName())
		conv.Append(text, reply)
	} else {
		conv.Telefone = phone
		reply = s.machine.Turn(r.Context(), conv, text)
	}

	if err := s.st.SaveConversation(phone, conv); err != nil {
		slog.Error("Server.intakeTurn: failed to persist conversation", "error", err, "phone", phone)
	}
	return reply
}

// knownCustomerTurn classifies the message intent for a customer the
// directory already knows and answers accordingly.
func (s *Server) knownCustomerTurn(r *http.Request, customer *models.Customer, phone, text string) string {
	if err := s.st.TouchCustomer(customer.Nome, time.Now().Format(time.RFC3339)); err != nil {
		slog.Error("Server.knownCustomerTurn: failed to refresh last interaction", "error", err, "nome", customer.Nome)
	}

	switch intent.Classify(normalize.Text(text)) {
	case intent.KindClosing:
		if err := s.st.Remember(customer.Nome, pendingKey, ""); err != nil {
			slog.Error("Server.knownCustomerTurn: failed to clear pending flag", "error", err)
		}
		return fmt.Sprintf("Tá bom, %s! 😄 Obrigado pelo papo. Qualquer coisa é só chamar! 👋", firstName(customer.Nome))

	case intent.KindCatalog:
		products, err := s.st.ListProducts()
		if err != nil {
			slog.Error("Server.knownCustomerTurn: failed to list products", "error", err)
			return s.apology()
		}
		if len(products) == 0 {
			if err := s.st.Remember(customer.Nome, pendingKey, pendingCatalogFlag); err != nil {
				slog.Error("Server.knownCustomerTurn: failed to mark pending flag", "error", err)
			}
			return emptyCatalogReply
		}
		return renderCatalog(products)

	default:
		return s.openEndedTurn(r, phone, text)
	}
}

// openEndedTurn hands a free-form message to the responder, replaying
// the phone-keyed transcript as context.
func (s *Server) openEndedTurn(r *http.Request, phone, text string) string {
	conv, err := s.st.GetConversation(phone)
	if err != nil {
		slog.Error("Server.openEndedTurn: failed to restore conversation", "error", err, "phone", phone)
		conv = nil
	}
	if conv == nil {
		conv = models.NewConversation()
		conv.Stage = models.StageOpenEnded
	}

	reply := s.responder.Respond(r.Context(), conv.Transcript, text)
	conv.Append(text, reply)
	if err := s.st.SaveConversation(phone, conv); err != nil {
		slog.Error("Server.openEndedTurn: failed to persist conversation", "error", err, "phone", phone)
	}
	return reply
}

// deliver sends the reply through the configured provider. Delivery is
// fire-and-forget: failures are logged and the webhook still succeeds.
func (s *Server) deliver(r *http.Request, phone, reply string) {
	if err := s.sender.SendMessage(r.Context(), phone, reply); err != nil {
		slog.Error("Server.deliver: outbound send failed", "error", err, "phone", phone)
	}
}

func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := s.st.ListProducts()
	if err != nil {
		slog.Error("Server.listProductsHandler: failed to list products", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list products"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(products))
}

// productRequest accepts the price either as a JSON number or as a
// human-entered string ("R$ 120,50").
type productRequest struct {
	Nome      string `json:"nome"`
	Cobertura string `json:"cobertura"`
	Preco     any    `json:"preco"`
}

func (s *Server) addProductHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addProductHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Nome) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("nome is required"))
		return
	}

	preco, err := coercePrice(req.Preco)
	if err != nil {
		slog.Warn("Server.addProductHandler: invalid price", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid preco"))
		return
	}

	p := &models.Product{Nome: req.Nome, Cobertura: req.Cobertura, Preco: preco}
	if err := s.st.AddProduct(p); err != nil {
		slog.Error("Server.addProductHandler: failed to add product", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add product"))
		return
	}
	slog.Info("Server.addProductHandler: product added", "nome", p.Nome, "id", p.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(p))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "up"}))
}

func (s *Server) apology() string {
	return fmt.Sprintf("🤖 %s: Tivemos um probleminha por aqui. Pode tentar de novo? 🙏", s.responder.AssistantName())
}

func firstName(nome string) string {
	fields := strings.Fields(nome)
	if len(fields) == 0 {
		return nome
	}
	return fields[0]
}

// renderCatalog formats the product list the way it is sent over WhatsApp.
func renderCatalog(products []models.Product) string {
	var b strings.Builder
	b.WriteString("💼 Aqui estão nossos seguros disponíveis:\n\n")
	for _, p := range products {
		fmt.Fprintf(&b, "🔹 %s\n📄 %s\n💰 %s\n\n", p.Nome, p.Cobertura, formatPrice(p.Preco))
	}
	return b.String()
}
