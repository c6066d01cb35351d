package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"maintenance-dashboard/pkg/response"
	"maintenance-dashboard/services/dashboard-service/chat"
	"maintenance-dashboard/services/dashboard-service/models"
	"maintenance-dashboard/services/dashboard-service/session"
)

const (
	chatIdleTTL       = 30 * time.Minute
	chatSweepInterval = 5 * time.Minute
)

// chatEntry tracks one admin's module for one report thread. streams
// counts attached event streams; the module is closed and evicted when
// the last stream detaches, or by the sweeper once it sits idle.
type chatEntry struct {
	module  *chat.Module
	streams int
	lastUse time.Time
}

func chatKey(uid, reportID string) string {
	return uid + "|" + reportID
}

// getChatModule returns the admin's module for a report thread, opening
// it on first use. Modules are keyed per admin and report so presence
// and receipts are attributed correctly.
func getChatModule(r *http.Request, identity session.Identity, reportID, reportTitle string) (*chat.Module, error) {
	chatMu.Lock()
	e, ok := chatModules[chatKey(identity.UID, reportID)]
	if !ok {
		m, err := chat.NewModule(st, chat.Participant{
			UID:  identity.UID,
			Name: identity.Name,
			Role: identity.Role,
		})
		if err != nil {
			chatMu.Unlock()
			return nil, err
		}
		m.Archiver = archiver
		e = &chatEntry{module: m}
		chatModules[chatKey(identity.UID, reportID)] = e
	}
	e.lastUse = time.Now()
	m := e.module
	chatMu.Unlock()

	if err := m.Open(r.Context(), reportID, reportTitle); err != nil {
		return nil, err
	}
	return m, nil
}

func retainChatStream(key string) {
	chatMu.Lock()
	if e, ok := chatModules[key]; ok {
		e.streams++
	}
	chatMu.Unlock()
}

// releaseChatStream detaches one stream. The last stream out closes the
// module so its store subscriptions are released.
func releaseChatStream(key string) {
	chatMu.Lock()
	e, ok := chatModules[key]
	if ok {
		e.streams--
		if e.streams <= 0 {
			delete(chatModules, key)
		} else {
			e = nil
		}
	}
	chatMu.Unlock()
	if ok && e != nil {
		e.module.Close()
	}
}

// sweepChatModules evicts modules that were touched by stateless
// requests but never held a stream, so their subscriptions do not
// outlive the admin's visit.
func sweepChatModules() {
	for range time.Tick(chatSweepInterval) {
		var stale []*chatEntry
		chatMu.Lock()
		for key, e := range chatModules {
			if e.streams == 0 && time.Since(e.lastUse) > chatIdleTTL {
				delete(chatModules, key)
				stale = append(stale, e)
			}
		}
		chatMu.Unlock()
		for _, e := range stale {
			e.module.Close()
		}
		if len(stale) > 0 {
			log.Printf("[INFO] Evicted %d idle chat modules", len(stale))
		}
	}
}

func chatHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	parts := strings.SplitN(rest, "/", 2)
	reportID := parts[0]
	if reportID == "" {
		response.Error(w, http.StatusBadRequest, "Missing report ID", "")
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	report, found := cache.Get(reportID)
	if !found {
		response.Error(w, http.StatusNotFound, "Report not found", "")
		return
	}

	switch {
	case action == "stream" && r.Method == http.MethodGet:
		streamChat(w, r, identity, report)
	case action == "messages" && r.Method == http.MethodGet:
		chatHistory(w, r, identity)
	case action == "messages" && r.Method == http.MethodPost:
		sendChatMessage(w, r, identity, report)
	case action == "messages" && r.Method == http.MethodDelete:
		clearChat(w, r, identity, report)
	case action == "images" && r.Method == http.MethodPost:
		sendChatImage(w, r, identity, report)
	case action == "typing" && r.Method == http.MethodPost:
		recordTyping(w, r, identity, report)
	default:
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	}
}

// streamChat pushes thread activity over server-sent events. The
// subscription replays the persisted history in order before streaming
// new arrivals, so the client renders from this stream alone.
func streamChat(w http.ResponseWriter, r *http.Request, identity session.Identity, report models.Report) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, http.StatusInternalServerError, "Streaming unsupported", "")
		return
	}

	m, err := getChatModule(r, identity, report.ReportID, report.Title)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to open chat", err.Error())
		return
	}
	key := chatKey(identity.UID, report.ReportID)
	retainChatStream(key)
	defer releaseChatStream(key)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev := <-m.Events():
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[WARN] Failed to encode chat event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
			flusher.Flush()
		}
	}
}

func chatHistory(w http.ResponseWriter, r *http.Request, identity session.Identity) {
	reportID := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/api/chat/"), "/", 2)[0]

	children, err := st.GetChildren(r.Context(), "chats/report_"+reportID+"/messages")
	if err != nil {
		log.Printf("[ERROR] Failed to load chat history: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to load chat history", "")
		return
	}

	msgs := make([]models.Message, 0, len(children))
	for _, child := range children {
		var msg models.Message
		if err := child.Snapshot.Decode(&msg); err != nil {
			continue
		}
		msg.MessageID = child.Key
		msgs = append(msgs, msg)
	}

	type annotated struct {
		models.Message
		MessageID  string `json:"messageId"`
		ReadStatus string `json:"readStatus,omitempty"`
	}
	groups := chat.GroupByDay(msgs, time.Now())
	out := make([]map[string]interface{}, 0, len(groups))
	for _, g := range groups {
		entries := make([]annotated, 0, len(g.Messages))
		for _, msg := range g.Messages {
			entries = append(entries, annotated{
				Message:    msg,
				MessageID:  msg.MessageID,
				ReadStatus: chat.ReadStatus(msg, identity.UID),
			})
		}
		out = append(out, map[string]interface{}{
			"label":    g.Label,
			"messages": entries,
		})
	}

	response.Success(w, http.StatusOK, "Chat history retrieved", out)
}

func sendChatMessage(w http.ResponseWriter, r *http.Request, identity session.Identity, report models.Report) {
	var input struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload", "")
		return
	}

	m, err := getChatModule(r, identity, report.ReportID, report.Title)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to open chat", err.Error())
		return
	}

	m.SetInput(input.Message)
	if err := m.SendText(r.Context()); err != nil {
		if errors.Is(err, chat.ErrSendFailed) {
			response.Error(w, http.StatusBadGateway, "Failed to send message", "")
			return
		}
		response.Error(w, http.StatusServiceUnavailable, "Chat thread is not open", "")
		return
	}
	response.Success(w, http.StatusOK, "Message sent", nil)
}

func sendChatImage(w http.ResponseWriter, r *http.Request, identity session.Identity, report models.Report) {
	var input struct {
		ImageBase64 string `json:"imageBase64"`
		MimeType    string `json:"mimeType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload", "")
		return
	}

	data, err := base64.StdEncoding.DecodeString(input.ImageBase64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid image encoding", "")
		return
	}

	m, err := getChatModule(r, identity, report.ReportID, report.Title)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to open chat", err.Error())
		return
	}

	switch err := m.SendImage(r.Context(), data, input.MimeType); {
	case err == nil:
		response.Success(w, http.StatusOK, "Image sent", nil)
	case errors.Is(err, chat.ErrInvalidAttachment):
		response.Error(w, http.StatusBadRequest, "Attachment is not an image", "")
	case errors.Is(err, chat.ErrAttachmentTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, "Attachment exceeds the size limit", "")
	case errors.Is(err, chat.ErrSendFailed):
		response.Error(w, http.StatusBadGateway, "Failed to send image", "")
	default:
		response.Error(w, http.StatusServiceUnavailable, "Chat thread is not open", "")
	}
}

func recordTyping(w http.ResponseWriter, r *http.Request, identity session.Identity, report models.Report) {
	m, err := getChatModule(r, identity, report.ReportID, report.Title)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to open chat", err.Error())
		return
	}
	m.HandleTyping()
	response.Success(w, http.StatusOK, "Typing recorded", nil)
}

func clearChat(w http.ResponseWriter, r *http.Request, identity session.Identity, report models.Report) {
	m, err := getChatModule(r, identity, report.ReportID, report.Title)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to open chat", err.Error())
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := m.ClearThread(r.Context(), confirmed); err != nil {
		if errors.Is(err, chat.ErrClearNotConfirmed) {
			response.Error(w, http.StatusBadRequest, "Clearing the chat requires confirm=true", "")
			return
		}
		log.Printf("[ERROR] Failed to clear chat for %s: %v", report.ReportID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to clear chat", "")
		return
	}
	response.Success(w, http.StatusOK, "Chat cleared", nil)
}
