package pairing

import "nullchat/state"

type EventKind string

const (
	EventCreated   EventKind = "created"
	EventVerifying EventKind = "verifying"
	EventConnected EventKind = "connected"
	EventExpired   EventKind = "expired"
	EventCancelled EventKind = "cancelled"
)

// Event reports a status change. Peer is set once a peer is known.
type Event struct {
	Kind   EventKind
	Status state.Status
	Peer   *state.Peer
}

const eventBuffer = 16

// emit never blocks and is called with p.mu held, so no event can land
// after drainLocked has started a new attempt. A consumer that falls behind
// misses events but can always read the current status.
func (p *Pairing) emit(e Event) {
	select {
	case p.events <- e:
	default:
		p.logger.WithField("event", e.Kind).Debug("event dropped")
	}
}

// drainLocked discards events left over from earlier attempts.
func (p *Pairing) drainLocked() {
	for {
		select {
		case <-p.events:
		default:
			return
		}
	}
}
