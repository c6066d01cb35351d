// Package chat implements the per-report admin chat thread: message
// streaming, typing presence, read receipts, image attachments and the
// denormalized metadata header. One Module serves one admin session and
// holds at most one open thread at a time.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"maintenance-dashboard/pkg/debounce"
	"maintenance-dashboard/pkg/store"
	"maintenance-dashboard/services/dashboard-service/models"
)

const (
	chatsPath          = "chats"
	defaultTypingDelay = 3 * time.Second
	previewLimit       = 100
	imagePreview       = "[Image]"
	systemSender       = "System"
	eventBuffer        = 256
)

// Participant is the admin driving this module.
type Participant struct {
	UID  string
	Name string
	Role string
}

// Archiver receives a best-effort copy of every image attachment for
// long-term object storage. Failures are logged, never surfaced.
type Archiver interface {
	ArchiveImage(ctx context.Context, reportID, messageID string, jpeg []byte) error
}

// Event is pushed to Events() for the streaming surface.
type Event struct {
	Kind    string // "message", "typing", "cleared"
	Message *models.Message
	// Typing holds the display names of other participants currently
	// typing, for Kind "typing".
	Typing []string
}

type threadState int

const (
	stateClosed threadState = iota
	stateOpening
	stateOpen
)

// Module owns one admin's chat session. All exported methods are safe
// for concurrent use.
type Module struct {
	st   store.Store
	user Participant

	// TypingDelay is the idle interval after which typing presence is
	// withdrawn. Set before Open; defaults to 3 seconds.
	TypingDelay time.Duration
	// Archiver, when set, receives image attachments after a successful
	// send.
	Archiver Archiver

	mu            sync.Mutex
	state         threadState
	chatID        string
	reportID      string
	input         string
	attachEnabled bool
	typingActive  bool
	typingToken   *debounce.Token
	msgSub        *store.Subscription
	typingSub     *store.Subscription
	receipted     map[string]bool

	events chan Event
	now    func() int64
}

func NewModule(st store.Store, user Participant) (*Module, error) {
	if user.UID == "" {
		return nil, ErrAuthRequired
	}
	return &Module{
		st:          st,
		user:        user,
		TypingDelay: defaultTypingDelay,
		events:      make(chan Event, eventBuffer),
		now:         func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Events streams thread activity. The channel is never closed; it goes
// quiet when the thread is closed.
func (m *Module) Events() <-chan Event {
	return m.events
}

func chatIDFor(reportID string) string {
	return "report_" + reportID
}

func (m *Module) metadataPath() string {
	return chatsPath + "/" + m.chatID + "/metadata"
}

func (m *Module) messagesPath() string {
	return chatsPath + "/" + m.chatID + "/messages"
}

func (m *Module) typingPath() string {
	return chatsPath + "/" + m.chatID + "/typing"
}

// Open attaches the module to the report's thread, creating the thread
// header on first contact. Reopening the already-open thread is a
// no-op; opening a different one closes the current thread first.
func (m *Module) Open(ctx context.Context, reportID, reportTitle string) error {
	m.mu.Lock()
	if m.state == stateOpen && m.chatID == chatIDFor(reportID) {
		m.mu.Unlock()
		return nil
	}
	m.closeLocked()
	m.state = stateOpening
	m.chatID = chatIDFor(reportID)
	m.reportID = reportID
	m.receipted = map[string]bool{}
	chatID := m.chatID
	m.mu.Unlock()

	if err := m.ensureThread(ctx, reportID, reportTitle); err != nil {
		m.mu.Lock()
		m.closeLocked()
		m.mu.Unlock()
		return err
	}

	msgSub, err := m.st.SubscribeChildAdded(chatsPath+"/"+chatID+"/messages", func(c store.Child) {
		m.onMessage(chatID, c)
	})
	if err != nil {
		m.mu.Lock()
		m.closeLocked()
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrThreadUnavailable, err)
	}
	typingSub, err := m.st.SubscribeValue(chatsPath+"/"+chatID+"/typing", func(children map[string]store.Snapshot) {
		m.onTyping(chatID, children)
	})
	if err != nil {
		m.st.Unsubscribe(msgSub)
		m.mu.Lock()
		m.closeLocked()
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrThreadUnavailable, err)
	}

	m.mu.Lock()
	// Close may have raced Open; discard the subscriptions if so.
	if m.chatID != chatID || m.state != stateOpening {
		m.mu.Unlock()
		m.st.Unsubscribe(msgSub)
		m.st.Unsubscribe(typingSub)
		return ErrThreadUnavailable
	}
	m.msgSub = msgSub
	m.typingSub = typingSub
	m.state = stateOpen
	m.attachEnabled = true
	m.mu.Unlock()
	return nil
}

func (m *Module) ensureThread(ctx context.Context, reportID, reportTitle string) error {
	metaPath := chatsPath + "/" + chatIDFor(reportID) + "/metadata"
	snap, err := m.st.Get(ctx, metaPath)
	if err != nil && err != store.ErrAbsent {
		return fmt.Errorf("%w: %v", ErrThreadUnavailable, err)
	}

	if err == store.ErrAbsent || !snap.Exists() {
		meta := models.ChatMetadata{
			ReportID:     reportID,
			ReportTitle:  reportTitle,
			CreatedAt:    m.now(),
			Participants: map[string]bool{m.user.UID: true},
		}
		if err := m.st.Set(ctx, metaPath, meta); err != nil {
			return fmt.Errorf("%w: %v", ErrThreadUnavailable, err)
		}
		return nil
	}

	var meta models.ChatMetadata
	if err := snap.Decode(&meta); err != nil {
		return fmt.Errorf("%w: %v", ErrThreadUnavailable, err)
	}
	if meta.Participants[m.user.UID] {
		return nil
	}
	if meta.Participants == nil {
		meta.Participants = map[string]bool{}
	}
	meta.Participants[m.user.UID] = true
	if err := m.st.Update(ctx, metaPath, map[string]interface{}{"participants": meta.Participants}); err != nil {
		return fmt.Errorf("%w: %v", ErrThreadUnavailable, err)
	}
	return nil
}

func (m *Module) onMessage(chatID string, c store.Child) {
	m.mu.Lock()
	if m.chatID != chatID || m.state == stateClosed {
		m.mu.Unlock()
		return
	}
	already := m.receipted[c.Key]
	m.receipted[c.Key] = true
	m.mu.Unlock()

	var msg models.Message
	if err := c.Snapshot.Decode(&msg); err != nil {
		log.Printf("[WARN] Dropping undecodable chat message %s: %v", c.Key, err)
		return
	}
	msg.MessageID = c.Key

	if msg.SenderID != m.user.UID && !already && msg.ReadBy[m.user.UID] == 0 {
		go m.markRead(chatID, msg)
	}

	m.emit(Event{Kind: "message", Message: &msg})
}

func (m *Module) markRead(chatID string, msg models.Message) {
	readBy := map[string]int64{}
	for uid, at := range msg.ReadBy {
		readBy[uid] = at
	}
	readBy[m.user.UID] = m.now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	path := chatsPath + "/" + chatID + "/messages/" + msg.MessageID
	if err := m.st.Update(ctx, path, map[string]interface{}{"readBy": readBy}); err != nil {
		log.Printf("[WARN] Failed to write read receipt for %s: %v", msg.MessageID, err)
	}
}

type typingRecord struct {
	Name string `json:"name"`
	At   int64  `json:"at"`
}

func (m *Module) onTyping(chatID string, children map[string]store.Snapshot) {
	m.mu.Lock()
	if m.chatID != chatID || m.state == stateClosed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	names := make([]string, 0, len(children))
	for uid, snap := range children {
		if uid == m.user.UID {
			continue
		}
		var rec typingRecord
		if err := snap.Decode(&rec); err != nil || rec.Name == "" {
			continue
		}
		names = append(names, rec.Name)
	}
	m.emit(Event{Kind: "typing", Typing: names})
}

func (m *Module) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		log.Printf("[WARN] Chat event buffer full, dropping %s event", ev.Kind)
	}
}

// SetInput replaces the message draft.
func (m *Module) SetInput(text string) {
	m.mu.Lock()
	m.input = text
	m.mu.Unlock()
}

// Input returns the current draft.
func (m *Module) Input() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input
}

// SendText sends the current draft as a text message. A draft that is
// empty after trimming is ignored and left in place. The draft is
// cleared before the write; if the write fails it is restored.
func (m *Module) SendText(ctx context.Context) error {
	m.mu.Lock()
	if m.state != stateOpen {
		m.mu.Unlock()
		return ErrThreadUnavailable
	}
	text := strings.TrimSpace(m.input)
	if text == "" {
		m.mu.Unlock()
		return nil
	}
	draft := m.input
	m.input = ""
	chatID := m.chatID
	reportID := m.reportID
	m.mu.Unlock()

	m.stopTyping(chatID)

	msg := models.Message{
		ReportID:    reportID,
		SenderID:    m.user.UID,
		SenderName:  m.user.Name,
		SenderRole:  m.user.Role,
		Message:     text,
		MessageType: models.MessageTypeText,
		Timestamp:   m.now(),
	}
	if _, err := m.st.Push(ctx, chatsPath+"/"+chatID+"/messages", msg); err != nil {
		m.mu.Lock()
		if m.chatID == chatID && m.input == "" {
			m.input = draft
		}
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	m.touchMetadata(ctx, chatID, text, m.user.Name, msg.Timestamp)
	return nil
}

// SendImage compresses and sends an image attachment. The attachment
// control is disabled for the duration of the upload.
func (m *Module) SendImage(ctx context.Context, data []byte, mimeType string) error {
	if !strings.HasPrefix(mimeType, "image/") {
		return ErrInvalidAttachment
	}
	if len(data) > maxAttachmentBytes {
		return ErrAttachmentTooLarge
	}

	m.mu.Lock()
	if m.state != stateOpen {
		m.mu.Unlock()
		return ErrThreadUnavailable
	}
	if !m.attachEnabled {
		m.mu.Unlock()
		return ErrThreadUnavailable
	}
	m.attachEnabled = false
	chatID := m.chatID
	reportID := m.reportID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.chatID == chatID && m.state == stateOpen {
			m.attachEnabled = true
		}
		m.mu.Unlock()
	}()

	encoded, jpegBytes, err := CompressImage(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAttachment, err)
	}

	msg := models.Message{
		ReportID:    reportID,
		SenderID:    m.user.UID,
		SenderName:  m.user.Name,
		SenderRole:  m.user.Role,
		Message:     encoded,
		MessageType: models.MessageTypeImage,
		Timestamp:   m.now(),
	}
	messageID, err := m.st.Push(ctx, chatsPath+"/"+chatID+"/messages", msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	m.touchMetadata(ctx, chatID, imagePreview, m.user.Name, msg.Timestamp)

	if m.Archiver != nil {
		go func() {
			actx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := m.Archiver.ArchiveImage(actx, reportID, messageID, jpegBytes); err != nil {
				log.Printf("[WARN] Failed to archive chat image %s: %v", messageID, err)
			}
		}()
	}
	return nil
}

// touchMetadata rewrites the thread's list preview. The sender is a
// display name, not a UID; list views render it as-is.
func (m *Module) touchMetadata(ctx context.Context, chatID, preview, sender string, at int64) {
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	fields := map[string]interface{}{
		"lastMessage":       preview,
		"lastMessageTime":   at,
		"lastMessageSender": sender,
	}
	if err := m.st.Update(ctx, chatsPath+"/"+chatID+"/metadata", fields); err != nil {
		log.Printf("[WARN] Failed to update chat metadata for %s: %v", chatID, err)
	}
}

// HandleTyping records a keystroke. Presence is asserted on the first
// keystroke and withdrawn after TypingDelay of idleness.
func (m *Module) HandleTyping() {
	m.mu.Lock()
	if m.state != stateOpen {
		m.mu.Unlock()
		return
	}
	chatID := m.chatID
	assert := !m.typingActive
	m.typingActive = true
	debounce.Cancel(m.typingToken)
	m.typingToken = debounce.Schedule(m.TypingDelay, func() {
		m.stopTyping(chatID)
	})
	m.mu.Unlock()

	if assert {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			rec := typingRecord{Name: m.user.Name, At: m.now()}
			if err := m.st.Set(ctx, chatsPath+"/"+chatID+"/typing/"+m.user.UID, rec); err != nil {
				log.Printf("[WARN] Failed to assert typing presence: %v", err)
			}
		}()
	}
}

func (m *Module) stopTyping(chatID string) {
	m.mu.Lock()
	if m.chatID != chatID || !m.typingActive {
		m.mu.Unlock()
		return
	}
	m.typingActive = false
	debounce.Cancel(m.typingToken)
	m.typingToken = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.st.Remove(ctx, chatsPath+"/"+chatID+"/typing/"+m.user.UID); err != nil {
		log.Printf("[WARN] Failed to withdraw typing presence: %v", err)
	}
}

// ClearThread deletes every message in the open thread and rewrites the
// metadata preview so list views show the thread was cleared. The
// caller must pass confirmed=true; destruction never happens on a bare
// request.
func (m *Module) ClearThread(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrClearNotConfirmed
	}
	m.mu.Lock()
	if m.state != stateOpen {
		m.mu.Unlock()
		return ErrThreadUnavailable
	}
	chatID := m.chatID
	m.receipted = map[string]bool{}
	m.mu.Unlock()

	if err := m.st.Remove(ctx, chatsPath+"/"+chatID+"/messages"); err != nil {
		return fmt.Errorf("failed to clear chat: %w", err)
	}
	m.touchMetadata(ctx, chatID, "Chat cleared", systemSender, m.now())
	m.emit(Event{Kind: "cleared"})
	return nil
}

// Close detaches from the thread. Safe to call when already closed.
func (m *Module) Close() {
	m.mu.Lock()
	m.closeLocked()
	m.mu.Unlock()
}

func (m *Module) closeLocked() {
	if m.state == stateClosed && m.chatID == "" {
		return
	}
	chatID := m.chatID
	wasTyping := m.typingActive
	m.typingActive = false
	debounce.Cancel(m.typingToken)
	m.typingToken = nil
	if m.msgSub != nil {
		m.st.Unsubscribe(m.msgSub)
		m.msgSub = nil
	}
	if m.typingSub != nil {
		m.st.Unsubscribe(m.typingSub)
		m.typingSub = nil
	}
	m.state = stateClosed
	m.chatID = ""
	m.reportID = ""
	m.input = ""
	m.attachEnabled = false

	if wasTyping {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.st.Remove(ctx, chatsPath+"/"+chatID+"/typing/"+m.user.UID); err != nil {
				log.Printf("[WARN] Failed to withdraw typing presence: %v", err)
			}
		}()
	}
}
