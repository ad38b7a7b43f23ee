package models

import "testing"

func TestStageIsValid(t *testing.T) {
	valid := []Stage{
		StageStart, StageCollectName, StageReturningCheck, StageCollectPhone,
		StageCollectEmail, StageCollectInterest, StageCollectTaxID, StageOpenEnded,
	}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("expected stage %q to be valid", s)
		}
	}
	if Stage("finall").IsValid() {
		t.Error("typo'd stage must not be valid")
	}
	if Stage("").IsValid() {
		t.Error("empty stage must not be valid")
	}
}

func TestParseStageRejectsUnknown(t *testing.T) {
	if _, err := ParseStage("open_ended?"); err == nil {
		t.Fatal("expected error for unknown stage string")
	}
	s, err := ParseStage("interesse")
	if err != nil {
		t.Fatalf("ParseStage() error = %v", err)
	}
	if s != StageCollectInterest {
		t.Fatalf("expected %q, got %q", StageCollectInterest, s)
	}
}

func TestConversationFirstName(t *testing.T) {
	c := NewConversation()
	if got := c.FirstName(); got != "" {
		t.Fatalf("expected empty first name, got %q", got)
	}
	c.Nome = "Maria Silva Santos"
	if got := c.FirstName(); got != "Maria" {
		t.Fatalf("expected %q, got %q", "Maria", got)
	}
}

func TestConversationAppend(t *testing.T) {
	c := NewConversation()
	c.Append("oi", "olá")
	c.Append("tchau", "até logo")
	if len(c.Transcript) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(c.Transcript))
	}
	if c.Transcript[1].User != "tchau" || c.Transcript[1].Assistant != "até logo" {
		t.Fatalf("unexpected last utterance: %+v", c.Transcript[1])
	}
}
