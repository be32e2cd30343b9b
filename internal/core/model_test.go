package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseChatType(t *testing.T) {
	tests := map[string]ChatType{
		"group":      ChatGroup,
		" G.US ":     ChatGroup,
		"broadcast":  ChatBroadcast,
		"status":     ChatBroadcast,
		"individual": ChatIndividual,
		"":           ChatIndividual,
		"channel":    ChatIndividual,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseChatType(in), in)
	}
}

func TestEventMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("body text", func(t *testing.T) {
		ev := InboundEvent{
			Body:    InboundBody{Sender: "9198", ChatID: "c1", ChatType: "group", RawText: "need A15", WAMessageID: "wamid.1"},
			RawText: "outer",
		}
		msg := ev.Message(now)
		assert.Equal(t, "need A15", msg.RawText)
		assert.Equal(t, ChatGroup, msg.ChatType)
		assert.Equal(t, now, msg.ReceivedAt)
		assert.Equal(t, "wamid.1", msg.Source().WAMessageID)
	})

	t.Run("falls back to top level text", func(t *testing.T) {
		ev := InboundEvent{Body: InboundBody{RawText: "  "}, RawText: "outer"}
		assert.Equal(t, "outer", ev.Message(now).RawText)
	})
}

func TestDestinationText(t *testing.T) {
	b, err := DestDealerLeads.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "dealer_leads", string(b))
	assert.Equal(t, "ignored_messages", Destination(42).String())
}

func TestNewNoiseRecord(t *testing.T) {
	src := SourceMeta{Sender: "9198"}
	rec := NewNoiseRecord(src, "hi", 3, "bad")

	assert.Equal(t, MessageNoise, rec.MessageType)
	assert.Equal(t, ActorUnknown, rec.ActorType)
	assert.False(t, rec.IsBusinessMessage)
	assert.Equal(t, DestIgnoredMessages, rec.RouteTo)
	assert.Equal(t, 3, rec.ItemIndex)
	assert.Equal(t, "bad", rec.ValidationError)
}

func TestStatusOf(t *testing.T) {
	code, ok := StatusOf(&ProviderError{Provider: "openai", StatusCode: 429})
	assert.True(t, ok)
	assert.Equal(t, 429, code)

	_, ok = StatusOf(assert.AnError)
	assert.False(t, ok)
}
