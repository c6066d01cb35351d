package models

// Message types, matching the values stored by the mobile client.
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeSystem = "system"
)

// Message is one chat entry. The store-assigned key is the message id;
// messages are immutable after creation except for ReadBy additions.
type Message struct {
	MessageID  string `json:"-"`
	ReportID   string `json:"reportId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	SenderRole string `json:"senderRole"`
	// Message holds plain text, or the base64 JPEG payload for image
	// messages (no data-URI prefix).
	Message     string           `json:"message"`
	MessageType string           `json:"messageType"`
	Timestamp   int64            `json:"timestamp"`
	ReadBy      map[string]int64 `json:"readBy"`
}

// ChatMetadata is the denormalized thread header used for list
// previews. LastMessage is truncated to 100 characters at write time.
type ChatMetadata struct {
	ReportID          string          `json:"reportId,omitempty"`
	ReportTitle       string          `json:"reportTitle,omitempty"`
	CreatedAt         int64           `json:"createdAt,omitempty"`
	Participants      map[string]bool `json:"participants,omitempty"`
	LastMessage       string          `json:"lastMessage,omitempty"`
	LastMessageTime   int64           `json:"lastMessageTime,omitempty"`
	LastMessageSender string          `json:"lastMessageSender,omitempty"`
}

// User is the identity record at users/<uid>.
type User struct {
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Role          string `json:"role,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
	Approved      bool   `json:"approved,omitempty"`
	RoleActive    bool   `json:"roleActive,omitempty"`
	// PasswordHash is the bcrypt hash checked at dashboard login. Never
	// serialized back to clients.
	PasswordHash string `json:"passwordHash,omitempty"`
	LastAccess   int64  `json:"lastAccess,omitempty"`
}

// SecurityEvent is appended to the security_events audit trail and
// forwarded to the audit service queue.
type SecurityEvent struct {
	Email      string `json:"email"`
	EventType  string `json:"eventType"`
	Details    string `json:"details"`
	Timestamp  int64  `json:"timestamp"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
	Platform   string `json:"platform"`
}
