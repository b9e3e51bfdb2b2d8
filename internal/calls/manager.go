// Package calls drives the two-party call lifecycle and relays signaling
// between the peers. The manager validates lifecycle transitions; everything
// else (SDP offers/answers, ICE candidates) passes through opaque.
package calls

import (
	"context"
	"fmt"
	"time"

	"comms-service/internal/locks"
	"comms-service/internal/models"
	"comms-service/internal/observability"
	"comms-service/internal/repositories"
)

// EndReasonTimeout marks calls auto-ended after ringing unanswered too long.
const EndReasonTimeout = "timeout"

// Notifier pushes call and signaling events to a single user's connections.
type Notifier interface {
	SendToUser(userID int, event models.UserEvent)
}

// Fanout derives notifications from call lifecycle events.
type Fanout interface {
	OnCallEvent(ctx context.Context, call models.Call, kind string)
}

// Manager implements the call session state machine.
type Manager struct {
	calls       repositories.CallRepository
	members     repositories.MembershipRepository
	hub         Notifier
	fanout      Fanout
	locks       *locks.KeyedMutex
	ringTimeout time.Duration
	now         func() time.Time
}

// NewManager constructs the call session manager. A non-zero ringTimeout
// auto-ends calls left unanswered in INITIATED.
func NewManager(calls repositories.CallRepository, members repositories.MembershipRepository, hub Notifier, fanout Fanout, ringTimeout time.Duration) *Manager {
	return &Manager{
		calls:       calls,
		members:     members,
		hub:         hub,
		fanout:      fanout,
		locks:       locks.NewKeyedMutex(),
		ringTimeout: ringTimeout,
		now:         time.Now,
	}
}

// Start initiates a call from caller to receiver inside a channel both belong
// to. At most one live call may exist per pair.
func (m *Manager) Start(ctx context.Context, channelID, callerID, receiverID int, isVideo bool) (models.Call, error) {
	if callerID == receiverID {
		return models.Call{}, fmt.Errorf("%w: cannot call yourself", models.ErrInvariantViolation)
	}
	for _, userID := range []int{callerID, receiverID} {
		member, err := m.members.GetMember(ctx, channelID, userID)
		if err == repositories.ErrMemberNotFound {
			return models.Call{}, fmt.Errorf("%w: user %d in channel %d", models.ErrNotAMember, userID, channelID)
		}
		if err != nil {
			return models.Call{}, err
		}
		if !member.Active {
			return models.Call{}, fmt.Errorf("%w: user %d in channel %d", models.ErrNotAMember, userID, channelID)
		}
	}

	// One live call per pair regardless of who dialed.
	for _, pair := range [2][2]int{{callerID, receiverID}, {receiverID, callerID}} {
		if existing, err := m.calls.FindActiveByPair(ctx, pair[0], pair[1]); err == nil {
			return models.Call{}, fmt.Errorf("%w: call %d between the pair is still %s", models.ErrInvalidCallState, existing.ID, existing.Status)
		} else if err != repositories.ErrCallNotFound {
			return models.Call{}, err
		}
	}

	call, err := m.calls.Insert(ctx, models.Call{
		ChannelID:  channelID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		IsVideo:    isVideo,
		Status:     models.CallInitiated,
	})
	if err != nil {
		return models.Call{}, err
	}
	observability.IncCallEvent("initiated")

	m.hub.SendToUser(receiverID, models.UserEvent{
		Type: models.EventCallIncoming, From: callerID, Call: &call,
	})
	if m.fanout != nil {
		m.fanout.OnCallEvent(ctx, call, "incoming")
	}

	if m.ringTimeout > 0 {
		m.scheduleRingTimeout(call.ID)
	}
	return call, nil
}

// Answer moves an INITIATED call to ANSWERED. Only the receiver may answer;
// startedAt is stamped on the transition.
func (m *Manager) Answer(ctx context.Context, callID, actorID int) (models.Call, error) {
	return m.transition(ctx, callID, actorID, models.CallAnswered, "")
}

// Reject moves an INITIATED call to REJECTED. Only the receiver may reject.
func (m *Manager) Reject(ctx context.Context, callID, actorID int) (models.Call, error) {
	return m.transition(ctx, callID, actorID, models.CallRejected, "")
}

// End moves an INITIATED or ANSWERED call to ENDED. Either party may end;
// endedAt is stamped and the duration derived (zero if never answered).
func (m *Manager) End(ctx context.Context, callID, actorID int) (models.Call, error) {
	return m.transition(ctx, callID, actorID, models.CallEnded, "")
}

// Relay forwards an opaque signaling frame to its addressee, verifying only
// that the sender participates in a live call with the addressee. Stale
// signaling to an offline peer is dropped silently.
func (m *Manager) Relay(ctx context.Context, senderID int, frame models.SignalFrame) error {
	if frame.To == 0 || frame.Type == "" {
		return fmt.Errorf("%w: signal frame needs type and to", models.ErrInvariantViolation)
	}
	if _, err := m.liveCallBetween(ctx, senderID, frame.To); err != nil {
		return err
	}

	m.hub.SendToUser(frame.To, models.UserEvent{
		Type: models.EventSignal, From: senderID, Data: frame.Data,
		Reason: frame.Type,
	})
	observability.IncCallEvent("signal_relayed")
	return nil
}

// transition serializes lifecycle changes per call id so simultaneous
// transitions from both peers collapse into one state change.
func (m *Manager) transition(ctx context.Context, callID, actorID int, target models.CallStatus, reason string) (models.Call, error) {
	m.locks.Lock(callID)
	defer m.locks.Unlock(callID)

	call, err := m.calls.Get(ctx, callID)
	if err == repositories.ErrCallNotFound {
		return models.Call{}, fmt.Errorf("%w: call %d", models.ErrNotFound, callID)
	}
	if err != nil {
		return models.Call{}, err
	}

	if actorID != 0 {
		if !call.Participant(actorID) {
			return models.Call{}, fmt.Errorf("%w: user %d is not part of call %d", models.ErrUnauthorized, actorID, callID)
		}
		// Answering and rejecting are receiver-only moves.
		if (target == models.CallAnswered || target == models.CallRejected) && actorID != call.ReceiverID {
			return models.Call{}, fmt.Errorf("%w: only the receiver may %s call %d", models.ErrUnauthorized, verb(target), callID)
		}
	}

	if err := validateTransition(call.Status, target); err != nil {
		return models.Call{}, err
	}

	now := m.now().UTC()
	switch target {
	case models.CallAnswered:
		if call.StartedAt == nil {
			call.StartedAt = &now
		}
	case models.CallEnded:
		call.EndedAt = &now
		if call.StartedAt != nil {
			call.DurationSeconds = int(now.Sub(*call.StartedAt).Seconds())
		}
	case models.CallRejected:
		call.EndedAt = &now
	}
	call.Status = target

	updated, err := m.calls.UpdateState(ctx, call)
	if err != nil {
		return models.Call{}, err
	}
	observability.IncCallEvent(verb(target))

	event := models.UserEvent{Type: eventFor(target), From: actorID, Reason: reason, Call: &updated}
	if actorID == 0 {
		// Server-driven transition (ring timeout): both peers hear about it.
		m.hub.SendToUser(updated.CallerID, event)
		m.hub.SendToUser(updated.ReceiverID, event)
	} else {
		m.hub.SendToUser(updated.Counterpart(actorID), event)
	}
	if m.fanout != nil {
		m.fanout.OnCallEvent(ctx, updated, verb(target))
	}
	return updated, nil
}

// validateTransition enforces the lifecycle:
// INITIATED -> ANSWERED | REJECTED | ENDED, ANSWERED -> ENDED.
func validateTransition(from, to models.CallStatus) error {
	if from.Terminal() {
		return fmt.Errorf("%w: call is already %s", models.ErrInvalidCallState, from)
	}
	switch to {
	case models.CallAnswered, models.CallRejected:
		if from != models.CallInitiated {
			return fmt.Errorf("%w: cannot %s a call in %s", models.ErrInvalidCallState, verb(to), from)
		}
	case models.CallEnded:
		// Reachable from any non-terminal status.
	default:
		return fmt.Errorf("%w: %s is not a valid target", models.ErrInvalidCallState, to)
	}
	return nil
}

func (m *Manager) liveCallBetween(ctx context.Context, a, b int) (models.Call, error) {
	call, err := m.calls.FindActiveByPair(ctx, a, b)
	if err == nil {
		return call, nil
	}
	if err != repositories.ErrCallNotFound {
		return models.Call{}, err
	}
	call, err = m.calls.FindActiveByPair(ctx, b, a)
	if err == repositories.ErrCallNotFound {
		return models.Call{}, fmt.Errorf("%w: no live call between %d and %d", models.ErrNotFound, a, b)
	}
	return call, err
}

// scheduleRingTimeout ends the call on behalf of the caller if it is still
// INITIATED when the ringing window closes. The regular transition path keeps
// the state machine shape unchanged.
func (m *Manager) scheduleRingTimeout(callID int) {
	time.AfterFunc(m.ringTimeout, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		m.locks.Lock(callID)
		call, err := m.calls.Get(ctx, callID)
		stillRinging := err == nil && call.Status == models.CallInitiated
		m.locks.Unlock(callID)
		if !stillRinging {
			return
		}
		if _, err := m.transition(ctx, callID, 0, models.CallEnded, EndReasonTimeout); err != nil {
			// Lost the race against a real transition; nothing to do.
			return
		}
		observability.IncCallEvent("ring_timeout")
	})
}

func verb(status models.CallStatus) string {
	switch status {
	case models.CallAnswered:
		return "answer"
	case models.CallRejected:
		return "reject"
	case models.CallEnded:
		return "end"
	default:
		return string(status)
	}
}

func eventFor(status models.CallStatus) string {
	switch status {
	case models.CallAnswered:
		return models.EventCallAnswered
	case models.CallRejected:
		return models.EventCallRejected
	default:
		return models.EventCallEnded
	}
}
