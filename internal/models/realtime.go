package models

import "encoding/json"

// Outbound event types pushed to a specific user.
const (
	EventUserID              = "user_id"
	EventMatched             = "matched"
	EventNewMessage          = "new_message"
	EventSignal              = "webrtc_signal"
	EventPartnerTyping       = "partner_typing"
	EventPartnerQuality      = "partner_quality"
	EventPartnerDisconnected = "partner_disconnected"
	EventSessionEnded        = "session_ended"
	EventError               = "error"
)

// End reasons carried by partner_disconnected and session_ended.
const (
	ReasonPartnerDisconnected = "partner_disconnected"
	ReasonPartnerLeft         = "partner_left"
	ReasonInactivity          = "inactivity"
)

// Event is a push notification addressed to one user.
type Event struct {
	Type           string          `json:"type"`
	SessionID      string          `json:"session_id,omitempty"`
	Category       string          `json:"chat_type,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	Token          string          `json:"token,omitempty"`
	PartnerID      string          `json:"partner_id,omitempty"`
	PartnerProfile *ProfileView    `json:"partner_profile,omitempty"`
	Message        *MessageView    `json:"message,omitempty"`
	Signal         json.RawMessage `json:"signal,omitempty"`
	From           string          `json:"from,omitempty"`
	IsTyping       *bool           `json:"is_typing,omitempty"`
	Quality        string          `json:"quality,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// InboundEvent is a frame received from a WebSocket client.
type InboundEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Signal    json.RawMessage `json:"signal,omitempty"`
	IsTyping  bool            `json:"is_typing,omitempty"`
	Quality   string          `json:"quality,omitempty"`
	Text      string          `json:"text,omitempty"`
	ChatType  string          `json:"chat_type,omitempty"`
	Profile   *ProfileUpdate  `json:"profile,omitempty"`
}

// Inbound event types understood by the WebSocket transport.
const (
	InboundRequestUserID     = "request_user_id"
	InboundSignal            = "webrtc_signal"
	InboundTyping            = "user_typing"
	InboundConnectionQuality = "connection_quality"
	InboundUpdateProfile     = "update_profile"
	InboundStartChat         = "start_chat"
	InboundSendMessage       = "send_message"
	InboundLeave             = "leave_session"
)
