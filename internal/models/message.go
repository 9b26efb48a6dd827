package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the variant of a chat message
type MessageType string

const (
	MessageText       MessageType = "text"
	MessageCheckin    MessageType = "checkin"
	MessageNudge      MessageType = "nudge"
	MessageSummary    MessageType = "summary"
	MessageVoice      MessageType = "voice"
	MessageMotivation MessageType = "motivation"
	MessagePoll       MessageType = "poll"
	MessageImage      MessageType = "image"
	MessageSystem     MessageType = "system"
)

// Valid reports whether t is a recognized message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageCheckin, MessageNudge, MessageSummary,
		MessageVoice, MessageMotivation, MessagePoll, MessageImage, MessageSystem:
		return true
	}
	return false
}

// CheckinData is the payload of a checkin message
type CheckinData struct {
	HabitName string `json:"habitName"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
}

// SummaryParticipant is one user's line in a summary card
type SummaryParticipant struct {
	UserID       string   `json:"userId"`
	DisplayName  string   `json:"displayName"`
	CheckinCount int      `json:"checkinCount"`
	Streak       int      `json:"streak"`
	Tags         []string `json:"tags,omitempty"`
}

// SummaryData is the payload of a summary message
type SummaryData struct {
	Period       string               `json:"period"`
	Participants []SummaryParticipant `json:"participants"`
	GroupLabel   string               `json:"groupLabel,omitempty"`
}

// PollData is the payload of a poll message. Votes maps a voter id to
// the single option they chose.
type PollData struct {
	Question string            `json:"question"`
	Options  []string          `json:"options"`
	Votes    map[string]string `json:"votes,omitempty"`
	Active   bool              `json:"active"`
}

// Message is a single chat event. Messages are write-once: the store
// exposes no update or delete path.
type Message struct {
	ID        string
	SenderID  string
	Timestamp time.Time
	Type      MessageType
	Content   string
	AudioURL  string
	Checkin   *CheckinData
	Summary   *SummaryData
	Poll      *PollData
	Reactions map[string][]string
}

func newMessage(senderID string, typ MessageType) Message {
	return Message{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		Timestamp: time.Now(),
		Type:      typ,
	}
}

// NewTextMessage creates a plain text message
func NewTextMessage(senderID, text string) Message {
	m := newMessage(senderID, MessageText)
	m.Content = text
	return m
}

// NewNudgeMessage creates a nudge with its prompt text
func NewNudgeMessage(senderID, text string) Message {
	m := newMessage(senderID, MessageNudge)
	m.Content = text
	return m
}

// NewMotivationMessage creates a motivation message
func NewMotivationMessage(senderID, text string) Message {
	m := newMessage(senderID, MessageMotivation)
	m.Content = text
	return m
}

// NewSystemMessage creates a system notice
func NewSystemMessage(senderID, text string) Message {
	m := newMessage(senderID, MessageSystem)
	m.Content = text
	return m
}

// NewImageMessage creates an image message whose content is the
// resolved reference of the uploaded image
func NewImageMessage(senderID, ref string) Message {
	m := newMessage(senderID, MessageImage)
	m.Content = ref
	return m
}

// NewVoiceMessage creates a voice message referencing uploaded audio
func NewVoiceMessage(senderID, audioURL string) Message {
	m := newMessage(senderID, MessageVoice)
	m.AudioURL = audioURL
	return m
}

// NewCheckinMessage creates a check-in card
func NewCheckinMessage(senderID string, data CheckinData) Message {
	m := newMessage(senderID, MessageCheckin)
	m.Checkin = &data
	return m
}

// NewSummaryMessage creates a summary card
func NewSummaryMessage(senderID string, data SummaryData) Message {
	m := newMessage(senderID, MessageSummary)
	m.Summary = &data
	return m
}

// NewPollMessage creates a poll message
func NewPollMessage(senderID string, data PollData) Message {
	m := newMessage(senderID, MessagePoll)
	m.Poll = &data
	return m
}

// messageRecord is the flat wire form of a Message. Required fields are
// pointers so a missing key is distinguishable from a zero value.
type messageRecord struct {
	ID        *string             `json:"id"`
	SenderID  *string             `json:"senderId"`
	Timestamp *int64              `json:"timestamp"`
	Type      *string             `json:"type"`
	Content   string              `json:"content,omitempty"`
	AudioURL  string              `json:"audioUrl,omitempty"`
	Checkin   json.RawMessage     `json:"checkinData,omitempty"`
	Summary   json.RawMessage     `json:"summaryData,omitempty"`
	Poll      json.RawMessage     `json:"pollData,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

// Record serializes the message to its flat wire record
func (m *Message) Record() ([]byte, error) {
	ts := m.Timestamp.Unix()
	typ := string(m.Type)
	rec := messageRecord{
		ID:        &m.ID,
		SenderID:  &m.SenderID,
		Timestamp: &ts,
		Type:      &typ,
		Content:   m.Content,
		AudioURL:  m.AudioURL,
		Reactions: m.Reactions,
	}

	var err error
	if m.Checkin != nil {
		if rec.Checkin, err = json.Marshal(m.Checkin); err != nil {
			return nil, fmt.Errorf("failed to marshal checkin data: %w", err)
		}
	}
	if m.Summary != nil {
		if rec.Summary, err = json.Marshal(m.Summary); err != nil {
			return nil, fmt.Errorf("failed to marshal summary data: %w", err)
		}
	}
	if m.Poll != nil {
		if rec.Poll, err = json.Marshal(m.Poll); err != nil {
			return nil, fmt.Errorf("failed to marshal poll data: %w", err)
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message record: %w", err)
	}
	return data, nil
}

// ParseMessage parses a wire record into a Message. It fails closed:
// a record missing id, senderId, timestamp, or a recognized type yields
// no message at all, never a partial one. Payload sub-objects have their
// own fail-closed parse — a malformed payload is dropped while the rest
// of the message still parses. The parser does not cross-check Type
// against which payload is present; constructors uphold that coupling.
func ParseMessage(data []byte) (*Message, error) {
	var rec messageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message record: %w", err)
	}

	if rec.ID == nil || *rec.ID == "" {
		return nil, fmt.Errorf("message record missing id")
	}
	if rec.SenderID == nil || *rec.SenderID == "" {
		return nil, fmt.Errorf("message record missing senderId")
	}
	if rec.Timestamp == nil {
		return nil, fmt.Errorf("message record missing timestamp")
	}
	if rec.Type == nil {
		return nil, fmt.Errorf("message record missing type")
	}
	typ := MessageType(*rec.Type)
	if !typ.Valid() {
		return nil, fmt.Errorf("unrecognized message type %q", *rec.Type)
	}

	return &Message{
		ID:        *rec.ID,
		SenderID:  *rec.SenderID,
		Timestamp: time.Unix(*rec.Timestamp, 0),
		Type:      typ,
		Content:   rec.Content,
		AudioURL:  rec.AudioURL,
		Checkin:   parseCheckin(rec.Checkin),
		Summary:   parseSummary(rec.Summary),
		Poll:      parsePoll(rec.Poll),
		Reactions: rec.Reactions,
	}, nil
}

func parseCheckin(raw json.RawMessage) *CheckinData {
	if len(raw) == 0 {
		return nil
	}
	var rec struct {
		HabitName *string `json:"habitName"`
		Date      *string `json:"date"`
		Status    *string `json:"status"`
		Note      string  `json:"note"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	if rec.HabitName == nil || rec.Date == nil || rec.Status == nil {
		return nil
	}
	return &CheckinData{
		HabitName: *rec.HabitName,
		Date:      *rec.Date,
		Status:    *rec.Status,
		Note:      rec.Note,
	}
}

func parseSummary(raw json.RawMessage) *SummaryData {
	if len(raw) == 0 {
		return nil
	}
	var rec struct {
		Period       *string              `json:"period"`
		Participants []SummaryParticipant `json:"participants"`
		GroupLabel   string               `json:"groupLabel"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	if rec.Period == nil || rec.Participants == nil {
		return nil
	}
	return &SummaryData{
		Period:       *rec.Period,
		Participants: rec.Participants,
		GroupLabel:   rec.GroupLabel,
	}
}

func parsePoll(raw json.RawMessage) *PollData {
	if len(raw) == 0 {
		return nil
	}
	var rec struct {
		Question *string           `json:"question"`
		Options  []string          `json:"options"`
		Votes    map[string]string `json:"votes"`
		Active   bool              `json:"active"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	if rec.Question == nil || rec.Options == nil {
		return nil
	}
	return &PollData{
		Question: *rec.Question,
		Options:  rec.Options,
		Votes:    rec.Votes,
		Active:   rec.Active,
	}
}
