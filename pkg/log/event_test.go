package log

import (
	"testing"
	"time"
)

func TestEventRoundTrip(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "sync",
			event: Event{
				Timestamp: now,
				SessionID: "sess-1",
				Direction: DirectionIn,
				Layer:     LayerChannel,
				Category:  CategorySync,
				Channel:   "room-lobby",
				Key:       "u1",
				Sync:      &SyncEvent{Keys: 3, Metas: 4, Dropped: 1},
			},
		},
		{
			name: "publish",
			event: Event{
				Timestamp: now,
				SessionID: "sess-1",
				Direction: DirectionOut,
				Layer:     LayerSession,
				Category:  CategoryPublish,
				Channel:   "room-lobby",
				Publish:   &PublishEvent{Event: "presence", Forced: true},
			},
		},
		{
			name: "state change",
			event: Event{
				Timestamp: now,
				SessionID: "sess-1",
				Direction: DirectionLocal,
				Layer:     LayerSession,
				Category:  CategoryState,
				StateChange: &StateChangeEvent{
					Entity:   StateEntitySession,
					OldState: "JOINING",
					NewState: "SUBSCRIBED",
				},
			},
		},
		{
			name: "eviction",
			event: Event{
				Timestamp: now,
				SessionID: "sess-1",
				Direction: DirectionLocal,
				Layer:     LayerSession,
				Category:  CategoryEviction,
				Eviction:  &EvictionEvent{Kind: EvictTyping, Removed: 2},
			},
		},
		{
			name: "error",
			event: Event{
				Timestamp: now,
				SessionID: "sess-1",
				Direction: DirectionIn,
				Layer:     LayerChannel,
				Category:  CategoryError,
				Error: &ErrorEventData{
					Layer:   LayerChannel,
					Message: "invalid typing signal",
					Context: "broadcast decode",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}

			decoded, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}

			if decoded.SessionID != tt.event.SessionID {
				t.Errorf("SessionID: got %q, want %q", decoded.SessionID, tt.event.SessionID)
			}
			if decoded.Category != tt.event.Category {
				t.Errorf("Category: got %v, want %v", decoded.Category, tt.event.Category)
			}
			if decoded.Direction != tt.event.Direction {
				t.Errorf("Direction: got %v, want %v", decoded.Direction, tt.event.Direction)
			}

			switch tt.event.Category {
			case CategorySync:
				if decoded.Sync == nil || *decoded.Sync != *tt.event.Sync {
					t.Errorf("Sync: got %+v, want %+v", decoded.Sync, tt.event.Sync)
				}
			case CategoryPublish:
				if decoded.Publish == nil || *decoded.Publish != *tt.event.Publish {
					t.Errorf("Publish: got %+v, want %+v", decoded.Publish, tt.event.Publish)
				}
			case CategoryState:
				if decoded.StateChange == nil || *decoded.StateChange != *tt.event.StateChange {
					t.Errorf("StateChange: got %+v, want %+v", decoded.StateChange, tt.event.StateChange)
				}
			case CategoryEviction:
				if decoded.Eviction == nil || *decoded.Eviction != *tt.event.Eviction {
					t.Errorf("Eviction: got %+v, want %+v", decoded.Eviction, tt.event.Eviction)
				}
			case CategoryError:
				if decoded.Error == nil || *decoded.Error != *tt.event.Error {
					t.Errorf("Error: got %+v, want %+v", decoded.Error, tt.event.Error)
				}
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	if DirectionIn.String() != "IN" || DirectionOut.String() != "OUT" || DirectionLocal.String() != "LOCAL" {
		t.Error("Direction names wrong")
	}
	if CategorySync.String() != "SYNC" || CategoryEviction.String() != "EVICTION" {
		t.Error("Category names wrong")
	}
	if EvictPresence.String() != "PRESENCE" || EvictTyping.String() != "TYPING" {
		t.Error("EvictionKind names wrong")
	}
	if StateEntitySession.String() != "SESSION" || StateEntitySocket.String() != "SOCKET" {
		t.Error("StateEntity names wrong")
	}
	if Category(99).String() != "UNKNOWN" {
		t.Error("unknown category must stringify to UNKNOWN")
	}
}
