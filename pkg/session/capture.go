package session

import (
	"time"

	"github.com/asrayaos/presence-go/pkg/log"
)

// event builds the common envelope for one capture event.
func (s *Session) event(dir log.Direction, layer log.Layer, cat log.Category) log.Event {
	return log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Direction: dir,
		Layer:     layer,
		Category:  cat,
		Channel:   s.cfg.ChannelName,
		Key:       s.cfg.Identity.ID,
	}
}

func (s *Session) captureSync(keys, metas, dropped int) {
	ev := s.event(log.DirectionIn, log.LayerChannel, log.CategorySync)
	ev.Sync = &log.SyncEvent{Keys: keys, Metas: metas, Dropped: dropped}
	s.capture.Log(ev)
}

func (s *Session) captureBroadcast(event string, size int) {
	ev := s.event(log.DirectionIn, log.LayerChannel, log.CategoryBroadcast)
	ev.Broadcast = &log.BroadcastEvent{Event: event, Size: size}
	s.capture.Log(ev)
}

func (s *Session) capturePublish(event string, forced, throttled bool) {
	ev := s.event(log.DirectionOut, log.LayerChannel, log.CategoryPublish)
	ev.Publish = &log.PublishEvent{Event: event, Forced: forced, Throttled: throttled}
	s.capture.Log(ev)
}

func (s *Session) captureState(old, next State, reason string) {
	ev := s.event(log.DirectionLocal, log.LayerSession, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntitySession,
		OldState: old.String(),
		NewState: next.String(),
		Reason:   reason,
	}
	s.capture.Log(ev)
}

func (s *Session) captureEviction(kind log.EvictionKind, removed int) {
	ev := s.event(log.DirectionLocal, log.LayerSession, log.CategoryEviction)
	ev.Eviction = &log.EvictionEvent{Kind: kind, Removed: removed}
	s.capture.Log(ev)
}

func (s *Session) captureError(layer log.Layer, err error, context string) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	ev := s.event(log.DirectionLocal, layer, log.CategoryError)
	ev.Error = &log.ErrorEventData{Layer: layer, Message: msg, Context: context}
	s.capture.Log(ev)
}
