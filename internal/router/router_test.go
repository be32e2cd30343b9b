package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikey/llm-lead-router/internal/core"
)

func TestDestination(t *testing.T) {
	tests := []struct {
		in   core.MessageType
		want string
	}{
		{core.MessageOffering, "distributor_offerings"},
		{core.MessageLead, "dealer_leads"},
		{core.MessageNoise, "ignored_messages"},
		{core.MessageType("bogus"), "ignored_messages"},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, Destination(tt.in).Table())
		})
	}
}

func TestRouteSetsDestination(t *testing.T) {
	rec := &core.ClassificationRecord{MessageType: core.MessageOffering}
	got := Route(rec)

	assert.Same(t, rec, got)
	assert.Equal(t, core.DestDistributorOfferings, rec.RouteTo)
}
