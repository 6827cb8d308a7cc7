package tom

import "strings"

type EventType string

const (
	EventTypePublish       EventType = "publish"
	EventTypeInitialize    EventType = "initialize"
	EventTypeFund          EventType = "fund"
	EventTypeComplete      EventType = "complete"
	EventTypeDisburse      EventType = "disburse"
	EventTypeWithdraw      EventType = "withdraw"
	EventTypePause         EventType = "pause"
	EventTypeResume        EventType = "resume"
	EventTypeModify        EventType = "modify"
	EventTypeCancel        EventType = "cancel"
	EventTypeSweep         EventType = "sweep"
	EventTypeSweepTreasury EventType = "sweeptreasury"
	EventTypeSweepVendor   EventType = "sweepvendor"
	EventTypeReorganize    EventType = "reorganize"
)

var eventTypes = map[EventType]struct{}{
	EventTypePublish:       {},
	EventTypeInitialize:    {},
	EventTypeFund:          {},
	EventTypeComplete:      {},
	EventTypeDisburse:      {},
	EventTypeWithdraw:      {},
	EventTypePause:         {},
	EventTypeResume:        {},
	EventTypeModify:        {},
	EventTypeCancel:        {},
	EventTypeSweep:         {},
	EventTypeSweepTreasury: {},
	EventTypeSweepVendor:   {},
	EventTypeReorganize:    {},
}

// Case insensitive lookup. Returns false for types this indexer doesn't know
func ParseEventType(s string) (EventType, bool) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	_, ok := eventTypes[t]
	return t, ok
}

// Type stored in the event log. Sweep variants are recorded as a plain sweep
func (self EventType) Canonical() EventType {
	switch self {
	case EventTypeSweepTreasury, EventTypeSweepVendor:
		return EventTypeSweep
	}
	return self
}

func (self EventType) String() string {
	return string(self)
}
