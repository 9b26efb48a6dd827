package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"text", NewTextMessage("u1", "hello")},
		{"nudge", NewNudgeMessage("u1", "wake up")},
		{"motivation", NewMotivationMessage("u1", "keep going")},
		{"system", NewSystemMessage("u1", "paired")},
		{"image", NewImageMessage("u1", "https://cdn.example.com/images/a.jpg")},
		{"voice", NewVoiceMessage("u1", "https://cdn.example.com/audio/b.m4a")},
		{"checkin", NewCheckinMessage("u1", CheckinData{
			HabitName: "Run",
			Date:      "2025-06-13",
			Status:    "completed",
			Note:      "5k",
		})},
		{"summary", NewSummaryMessage("u1", SummaryData{
			Period: "Week 24",
			Participants: []SummaryParticipant{
				{UserID: "u1", DisplayName: "Ana", CheckinCount: 5, Streak: 12, Tags: []string{"most consistent"}},
				{UserID: "u2", DisplayName: "Ben", CheckinCount: 3, Streak: 2},
			},
			GroupLabel: "morning crew",
		})},
		{"poll", NewPollMessage("u1", PollData{
			Question: "Gym or run?",
			Options:  []string{"gym", "run"},
			Votes:    map[string]string{"u2": "run"},
			Active:   true,
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := tt.msg.Record()
			require.NoError(t, err)

			parsed, err := ParseMessage(record)
			require.NoError(t, err)

			assert.Equal(t, tt.msg.ID, parsed.ID)
			assert.Equal(t, tt.msg.SenderID, parsed.SenderID)
			assert.Equal(t, tt.msg.Type, parsed.Type)
			assert.Equal(t, tt.msg.Timestamp.Unix(), parsed.Timestamp.Unix())
			assert.Equal(t, tt.msg.Content, parsed.Content)
			assert.Equal(t, tt.msg.AudioURL, parsed.AudioURL)
			assert.Equal(t, tt.msg.Checkin, parsed.Checkin)
			assert.Equal(t, tt.msg.Summary, parsed.Summary)
			assert.Equal(t, tt.msg.Poll, parsed.Poll)
		})
	}
}

func TestMessageReactionsRoundTrip(t *testing.T) {
	msg := NewTextMessage("u1", "nice one")
	msg.Reactions = map[string][]string{
		"🔥": {"u2"},
		"👍": {"u1", "u2"},
	}

	record, err := msg.Record()
	require.NoError(t, err)

	parsed, err := ParseMessage(record)
	require.NoError(t, err)
	assert.Equal(t, msg.Reactions, parsed.Reactions)
}

func TestParseMessageFailsClosed(t *testing.T) {
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"id":        "m1",
			"senderId":  "u1",
			"timestamp": time.Now().Unix(),
			"type":      "text",
			"content":   "hi",
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing id", func(r map[string]interface{}) { delete(r, "id") }},
		{"missing senderId", func(r map[string]interface{}) { delete(r, "senderId") }},
		{"missing timestamp", func(r map[string]interface{}) { delete(r, "timestamp") }},
		{"missing type", func(r map[string]interface{}) { delete(r, "type") }},
		{"empty id", func(r map[string]interface{}) { r["id"] = "" }},
		{"unrecognized type", func(r map[string]interface{}) { r["type"] = "sticker" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base()
			tt.mutate(rec)
			data, err := json.Marshal(rec)
			require.NoError(t, err)

			msg, err := ParseMessage(data)
			assert.Error(t, err)
			assert.Nil(t, msg)
		})
	}
}

func TestParseMessageNotJSON(t *testing.T) {
	msg, err := ParseMessage([]byte("not json"))
	assert.Error(t, err)
	assert.Nil(t, msg)
}

func TestParseMessageDropsMalformedPayload(t *testing.T) {
	// checkinData missing its required status field: the payload is
	// dropped but the message itself still parses
	data := []byte(`{
		"id": "m1",
		"senderId": "u1",
		"timestamp": 1749800000,
		"type": "checkin",
		"checkinData": {"habitName": "Run", "date": "2025-06-13"}
	}`)

	msg, err := ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, MessageCheckin, msg.Type)
	assert.Nil(t, msg.Checkin)
}

func TestParsePayloadVariants(t *testing.T) {
	t.Run("summary missing participants dropped", func(t *testing.T) {
		data := []byte(`{
			"id": "m1", "senderId": "u1", "timestamp": 1749800000, "type": "summary",
			"summaryData": {"period": "Week 24"}
		}`)
		msg, err := ParseMessage(data)
		require.NoError(t, err)
		assert.Nil(t, msg.Summary)
	})

	t.Run("poll missing options dropped", func(t *testing.T) {
		data := []byte(`{
			"id": "m1", "senderId": "u1", "timestamp": 1749800000, "type": "poll",
			"pollData": {"question": "Gym or run?"}
		}`)
		msg, err := ParseMessage(data)
		require.NoError(t, err)
		assert.Nil(t, msg.Poll)
	})

	t.Run("valid poll kept", func(t *testing.T) {
		data := []byte(`{
			"id": "m1", "senderId": "u1", "timestamp": 1749800000, "type": "poll",
			"pollData": {"question": "Gym or run?", "options": ["gym", "run"], "active": true}
		}`)
		msg, err := ParseMessage(data)
		require.NoError(t, err)
		require.NotNil(t, msg.Poll)
		assert.Equal(t, []string{"gym", "run"}, msg.Poll.Options)
		assert.True(t, msg.Poll.Active)
	})
}

func TestConstructorsSetExactlyOnePayload(t *testing.T) {
	checkin := NewCheckinMessage("u1", CheckinData{HabitName: "Run", Date: "2025-06-13", Status: "completed"})
	assert.NotNil(t, checkin.Checkin)
	assert.Nil(t, checkin.Summary)
	assert.Nil(t, checkin.Poll)
	assert.Empty(t, checkin.Content)
	assert.Empty(t, checkin.AudioURL)

	voice := NewVoiceMessage("u1", "ref")
	assert.Equal(t, "ref", voice.AudioURL)
	assert.Empty(t, voice.Content)
	assert.Nil(t, voice.Checkin)

	assert.NotEmpty(t, checkin.ID)
	assert.NotEqual(t, checkin.ID, voice.ID)
}
