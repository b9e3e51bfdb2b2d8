package observability

// EventEnvelope is the message shape the platform event pipeline consumes.
type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Payload   any    `json:"payload"`
}

// SocketLifecyclePayload describes a connect, disconnect or write failure on
// a channel or user socket.
type SocketLifecyclePayload struct {
	Socket   SocketInfo     `json:"ws"`
	Identity SocketIdentity `json:"identity"`
}

type SocketInfo struct {
	Kind       string `json:"kind"`
	ResourceID int    `json:"resource_id"`
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason"`
}

type SocketIdentity struct {
	UserID   int    `json:"user_id"`
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
}

// BuildHeaders carries request correlation ids into broker message headers.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
