package router

import (
	"github.com/mikey/llm-lead-router/internal/core"
)

// Destination returns the table a message type is stored in
func Destination(t core.MessageType) core.Destination {
	switch t {
	case core.MessageLead:
		return core.DestDealerLeads
	case core.MessageOffering:
		return core.DestDistributorOfferings
	case core.MessageNoise:
		return core.DestIgnoredMessages
	default:
		return core.DestIgnoredMessages
	}
}

// Route sets the destination of rec and returns it
func Route(rec *core.ClassificationRecord) *core.ClassificationRecord {
	rec.RouteTo = Destination(rec.MessageType)
	return rec
}
