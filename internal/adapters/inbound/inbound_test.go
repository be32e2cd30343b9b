package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-lead-router/internal/core"
)

type fakeProcessor struct {
	records []*core.ClassificationRecord
	err     error
	events  []core.InboundEvent
}

func (f *fakeProcessor) Process(ctx context.Context, ev core.InboundEvent) ([]*core.ClassificationRecord, error) {
	f.events = append(f.events, ev)
	return f.records, f.err
}

func offeringRecord() *core.ClassificationRecord {
	brand := "Samsung"
	price := 18700.0
	id := int64(9)
	return &core.ClassificationRecord{
		IsBusinessMessage: true,
		MessageType:       core.MessageOffering,
		ActorType:         core.ActorDistributor,
		Brand:             &brand,
		Price:             &price,
		Confidence:        0.9,
		RouteTo:           core.DestDistributorOfferings,
		Inserted:          true,
		InsertedID:        &id,
	}
}

func TestWebhookRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		processor  *fakeProcessor
		wantStatus int
		wantBody   string
	}{
		{
			name:       "health check",
			method:     http.MethodGet,
			path:       "/healthz",
			processor:  &fakeProcessor{},
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ok"`,
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/webhook/messages",
			body:       `{"body":`,
			processor:  &fakeProcessor{},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid inbound event",
		},
		{
			name:       "pipeline failure",
			method:     http.MethodPost,
			path:       "/webhook/messages",
			body:       `{"body":{"raw_text":"need A15"}}`,
			processor:  &fakeProcessor{err: errors.New("no record sink configured")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "failed to process message",
		},
		{
			name:       "processed",
			method:     http.MethodPost,
			path:       "/webhook/messages",
			body:       `{"body":{"sender":"9198","chat_type":"group","raw_text":"A15 @18700","wa_message_id":"wamid.1"}}`,
			processor:  &fakeProcessor{records: []*core.ClassificationRecord{offeringRecord()}},
			wantStatus: http.StatusOK,
			wantBody:   `"__routeTo":"distributor_offerings"`,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			path:       "/webhook/messages",
			processor:  &fakeProcessor{},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewWebhookSource(tt.processor, zap.NewNop(), ":0", 0, 1<<20)
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			src.Routes().ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestWebhookDecodesEvent(t *testing.T) {
	p := &fakeProcessor{records: []*core.ClassificationRecord{}}
	src := NewWebhookSource(p, zap.NewNop(), ":0", 0, 0)

	body := `{"body":{"sender":"9198","chat_id":"c1","chat_type":"g.us","raw_text":"need A15","wa_message_id":"wamid.7"}}`
	rr := httptest.NewRecorder()
	src.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook/messages", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, p.events, 1)
	assert.Equal(t, "wamid.7", p.events[0].Body.WAMessageID)

	var resp map[string][]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Empty(t, resp["records"])
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	src := NewWebhookSource(&fakeProcessor{}, zap.NewNop(), ":0", 0, 16)
	body := `{"body":{"raw_text":"` + strings.Repeat("x", 64) + `"}}`

	rr := httptest.NewRecorder()
	src.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook/messages", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReadEvent(t *testing.T) {
	t.Run("json event", func(t *testing.T) {
		ev, err := ReadEvent(strings.NewReader(`{"body":{"sender":"9198","raw_text":"need A15"}}`))
		require.NoError(t, err)
		assert.Equal(t, "9198", ev.Body.Sender)
		assert.Equal(t, "need A15", ev.Body.RawText)
	})

	t.Run("plain text", func(t *testing.T) {
		ev, err := ReadEvent(strings.NewReader("  need A15 20 pcs\n"))
		require.NoError(t, err)
		assert.Equal(t, "need A15 20 pcs", ev.Body.RawText)
		assert.Equal(t, "unknown", ev.Body.WAMessageID)
		assert.Equal(t, "individual", ev.Body.ChatType)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadEvent(strings.NewReader("   "))
		assert.Error(t, err)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := ReadEvent(strings.NewReader(`{"body":`))
		assert.Error(t, err)
	})
}

func TestCliSourceOutput(t *testing.T) {
	p := &fakeProcessor{records: []*core.ClassificationRecord{offeringRecord()}}

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		records, err := NewCliSource(p, zap.NewNop(), &out, false, false).ProcessMessage(context.Background(), core.InboundEvent{})
		require.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Contains(t, out.String(), "offering -> distributor_offerings")
		assert.Contains(t, out.String(), "Brand: Samsung")
		assert.Contains(t, out.String(), "Inserted id: 9")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		_, err := NewCliSource(p, zap.NewNop(), &out, true, false).ProcessMessage(context.Background(), core.InboundEvent{})
		require.NoError(t, err)

		var decoded []map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		require.Len(t, decoded, 1)
		assert.Equal(t, "offering", decoded[0]["message_type"])
	})

	t.Run("error", func(t *testing.T) {
		var out bytes.Buffer
		_, err := NewCliSource(&fakeProcessor{err: errors.New("boom")}, zap.NewNop(), &out, false, false).
			ProcessMessage(context.Background(), core.InboundEvent{})
		assert.Error(t, err)
	})
}
