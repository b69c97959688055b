package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/observability"
)

const verdictBufferSize = 16

// VerdictEvents fans submission verdict updates out to live subscribers.
// Events travel through NATS between nodes and an in-process broker to
// connected websocket clients.
type VerdictEvents interface {
	Publish(ctx context.Context, submission dto.SubmissionResponse)
	Subscribe(userID uint) (<-chan dto.SubmissionResponse, func())
	Start(ctx context.Context)
}

type verdictEvents struct {
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
	broker  *verdictBroker
	nodeID  string
}

type verdictEvent struct {
	Source     string                 `json:"source"`
	Submission dto.SubmissionResponse `json:"submission"`
	SentAt     time.Time              `json:"sent_at"`
}

type verdictBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.SubmissionResponse]struct{}
}

// NewVerdictEvents constructs the verdict event fan-out. A nil NATS
// connection keeps events node-local.
func NewVerdictEvents(natsConn *nats.Conn, subject string, logger zerolog.Logger) VerdictEvents {
	return &verdictEvents{
		nats:    natsConn,
		subject: subject,
		logger:  logger.With().Str("component", "verdict_events").Logger(),
		broker: &verdictBroker{
			subscribers: make(map[uint]map[chan dto.SubmissionResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *verdictEvents) Start(ctx context.Context) {
	if s.nats == nil || s.subject == "" {
		return
	}

	sub, err := s.nats.QueueSubscribe(s.subject, "arena-verdicts", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to verdict subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Warn().Err(err).Msg("failed to drain verdict subscription")
		}
	}()
}

func (s *verdictEvents) Publish(ctx context.Context, submission dto.SubmissionResponse) {
	s.broker.broadcast(submission.UserID, submission)
	observability.VerdictEventsPublished().WithLabelValues(submission.Status).Inc()

	if s.nats == nil || s.subject == "" {
		return
	}

	payload, err := json.Marshal(verdictEvent{
		Source:     s.nodeID,
		Submission: submission,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode verdict event")
		return
	}

	if err := s.nats.Publish(s.subject, payload); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish verdict event")
	}
}

func (s *verdictEvents) Subscribe(userID uint) (<-chan dto.SubmissionResponse, func()) {
	channel := make(chan dto.SubmissionResponse, verdictBufferSize)
	s.broker.subscribe(userID, channel)

	cleanup := func() {
		s.broker.unsubscribe(userID, channel)
	}

	return channel, cleanup
}

func (s *verdictEvents) handleEvent(payload []byte) {
	var event verdictEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid verdict event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broker.broadcast(event.Submission.UserID, event.Submission)
}

func (b *verdictBroker) subscribe(userID uint, channel chan dto.SubmissionResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[userID] == nil {
		b.subscribers[userID] = make(map[chan dto.SubmissionResponse]struct{})
	}
	b.subscribers[userID][channel] = struct{}{}
}

func (b *verdictBroker) unsubscribe(userID uint, channel chan dto.SubmissionResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[userID]; ok {
		delete(subs, channel)
		if len(subs) == 0 {
			delete(b.subscribers, userID)
		}
	}
	close(channel)
}

func (b *verdictBroker) broadcast(userID uint, submission dto.SubmissionResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for channel := range b.subscribers[userID] {
		select {
		case channel <- submission:
		default:
			// slow consumer, drop rather than block judging
		}
	}
}
