package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestZAPIClientSendMessage(t *testing.T) {
	var got zapiPayload
	var gotMethod, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cli, err := NewZAPIClient(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewZAPIClient failed: %v", err)
	}
	if err := cli.SendMessage(context.Background(), "5511999999999", "Olá! 👋"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected application/json content type, got %q", gotContentType)
	}
	if got.Phone != "5511999999999" {
		t.Errorf("expected phone 5511999999999, got %q", got.Phone)
	}
	if got.Message != "Olá! 👋" {
		t.Errorf("unexpected message body: %q", got.Message)
	}
}

func TestZAPIClientSendMessageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cli, err := NewZAPIClient(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewZAPIClient failed: %v", err)
	}
	if err := cli.SendMessage(context.Background(), "5511999999999", "oi"); err == nil {
		t.Error("expected error for non-2xx status, got nil")
	}
}

func TestNewZAPIClientRequiresCredentials(t *testing.T) {
	t.Setenv("ZAPI_INSTANCE_ID", "")
	t.Setenv("ZAPI_TOKEN", "")
	if _, err := NewZAPIClient(); err == nil {
		t.Error("expected error when instance ID and token are missing")
	}
}
