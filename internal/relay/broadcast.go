package relay

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Broadcaster fans envelopes out to the current members of a room.
type Broadcaster struct {
	rooms   *Directory
	log     *zap.Logger
	metrics Metrics
}

// NewBroadcaster returns a Broadcaster reading membership from rooms.
func NewBroadcaster(rooms *Directory, log *zap.Logger, metrics Metrics) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Broadcaster{rooms: rooms, log: log, metrics: metrics}
}

// Broadcast serializes env once and queues it on every member of room,
// sender included. A member that cannot accept the frame is skipped.
func (b *Broadcaster) Broadcast(room string, env Envelope) {
	members := b.rooms.MembersOf(room)
	if len(members) == 0 {
		return
	}

	payload, err := json.Marshal(env)
	if err != nil {
		b.log.Error("encode envelope", zap.String("room", room), zap.Error(err))
		return
	}

	for _, member := range members {
		if err := member.peer.Send(payload); err != nil {
			b.log.Debug("skip recipient",
				zap.String("room", room),
				zap.String("conn_id", string(member.id)),
				zap.Error(err))
			b.metrics.IncDropped()
			continue
		}
		b.metrics.IncDelivered()
	}
}
