package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"maintenance-dashboard/pkg/store"
	"maintenance-dashboard/services/dashboard-service/chat"
	"maintenance-dashboard/services/dashboard-service/session"
)

func TestLastStreamOutClosesChatModule(t *testing.T) {
	st = store.NewMemoryStore()
	chatModules = map[string]*chatEntry{}

	r := httptest.NewRequest(http.MethodGet, "/api/chat/r1/stream", nil)
	identity := session.Identity{UID: "u1", Name: "Admin One", Role: "ADMIN"}

	m, err := getChatModule(r, identity, "r1", "Leaky roof")
	if err != nil {
		t.Fatalf("getChatModule failed: %v", err)
	}

	key := chatKey("u1", "r1")
	retainChatStream(key)
	retainChatStream(key)

	releaseChatStream(key)
	chatMu.Lock()
	_, present := chatModules[key]
	chatMu.Unlock()
	if !present {
		t.Fatalf("module evicted while a stream is still attached")
	}

	releaseChatStream(key)
	chatMu.Lock()
	_, present = chatModules[key]
	chatMu.Unlock()
	if present {
		t.Fatalf("module still registered after last stream detached")
	}

	// Closed along with the eviction: subscriptions are gone and sends
	// are refused.
	m.SetInput("late")
	if err := m.SendText(r.Context()); !errors.Is(err, chat.ErrThreadUnavailable) {
		t.Fatalf("send after last stream detached = %v, want ErrThreadUnavailable", err)
	}
}
