package commands

import "testing"

func TestNewRegistryDuplicateAlias(t *testing.T) {
	_, err := NewRegistry([]Spec{
		{Aliases: []string{"menu"}, Handler: "menu"},
		{Aliases: []string{"Menu"}, Handler: "chatbot"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate alias across commands")
	}
}

func TestNewRegistryUnknownHandler(t *testing.T) {
	_, err := NewRegistry([]Spec{{Aliases: []string{"x"}, Handler: "teleport"}})
	if err == nil {
		t.Fatal("expected error for unknown handler name")
	}
}

func TestResolveAliasNormalization(t *testing.T) {
	r := testRegistry(t)
	for _, token := range []string{"menu", "MENU", ".menu", " menu "} {
		def := r.ResolveAlias(token)
		if def == nil || def.Handler != HandlerMenu {
			t.Errorf("ResolveAlias(%q) did not resolve menu", token)
		}
	}
	if r.ResolveAlias("nope") != nil {
		t.Error("ResolveAlias should return nil for unknown token")
	}
}

func TestParseHandlerID(t *testing.T) {
	id, err := ParseHandlerID("ChatBot")
	if err != nil || id != HandlerChatbot {
		t.Errorf("ParseHandlerID(ChatBot) = %v, %v", id, err)
	}
	if _, err := ParseHandlerID(""); err == nil {
		t.Error("empty handler name should error")
	}
}
