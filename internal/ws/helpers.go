package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"comms-service/internal/observability"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func publishLifecycleEvent(ctx context.Context, kind string, resourceID int, info ConnInfo, event, reason string) {
	durationMS := int64(0)
	if event != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: observability.SocketLifecyclePayload{
			Socket: observability.SocketInfo{
				Kind:       kind,
				ResourceID: resourceID,
				Event:      event,
				ConnID:     info.ConnID,
				DurationMS: durationMS,
				Reason:     reason,
			},
			Identity: observability.SocketIdentity{
				UserID:   info.UserID,
				DeviceID: info.DeviceID,
				IP:       info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
