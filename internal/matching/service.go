package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/messaging"
	"github.com/campuslink/matchmaker/internal/metrics"
)

// requestTimeout bounds one match.request served over NATS.
const requestTimeout = 10 * time.Second

// Repository supplies stored profiles and availability when a request omits
// them.
type Repository interface {
	CandidatePool(ctx context.Context, seekerID string) ([]Candidate, error)
	Availability(ctx context.Context, userID string) ([]Slot, error)
}

// Reply is the match.request response payload.
type Reply struct {
	Matches     []MatchPreview `json:"matches,omitempty"`
	EmptyReason string         `json:"emptyReason,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// Service runs matching passes for the HTTP API and the NATS responder. It
// fills missing pools from the repository, records metrics and publishes
// preview notifications.
type Service struct {
	assembler    *Assembler
	nats         *messaging.NATSClient
	publisher    messaging.Publisher
	repo         Repository
	previewLimit int
	logger       zerolog.Logger
	serving      bool
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewService creates a matching service. nats and repo may be nil: without
// NATS no previews are published and Start fails; without a repository every
// request must carry its own pool.
func NewService(assembler *Assembler, nats *messaging.NATSClient, repo Repository, previewLimit int) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		assembler:    assembler,
		nats:         nats,
		repo:         repo,
		previewLimit: previewLimit,
		logger:       logging.For("matcher"),
		ctx:          ctx,
		cancel:       cancel,
	}
	if nats != nil {
		s.publisher = nats
	}
	return s
}

// Start subscribes to match.request.
func (s *Service) Start() error {
	if s.nats == nil {
		return errors.New("matching: service started without NATS")
	}
	if err := s.nats.SubscribeMatchRequest(s.handleMatchRequest); err != nil {
		return err
	}
	s.serving = true
	s.logger.Info().Str("subject", messaging.SubjectMatchRequest).Msg("service started")
	return nil
}

// Stop leaves the matchers queue group and cancels in-flight requests.
func (s *Service) Stop() {
	if s.serving {
		if err := s.nats.UnsubscribeMatchRequest(); err != nil {
			s.logger.Warn().Err(err).Msg("leave queue group")
		}
		s.serving = false
	}
	s.cancel()
	s.logger.Info().Msg("service stopped")
}

// Match runs one matching pass. A request without a pool or availability is
// completed from the repository when one is configured.
func (s *Service) Match(ctx context.Context, req Request) (*Result, error) {
	mode := "unknown"
	if m, err := ParseMode(string(req.Mode)); err == nil {
		mode = string(m)
	}

	if err := s.complete(ctx, &req); err != nil {
		metrics.MatchRequestsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	started := time.Now()
	res, err := s.assembler.Assemble(ctx, req)
	metrics.AssemblyDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	switch {
	case errors.Is(err, ErrInvalidRequest):
		metrics.MatchRequestsTotal.WithLabelValues(mode, "invalid").Inc()
		return nil, err
	case err != nil:
		metrics.MatchRequestsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	outcome := "matched"
	if len(res.Matches) == 0 {
		outcome = "empty"
	}
	metrics.MatchRequestsTotal.WithLabelValues(mode, outcome).Inc()
	metrics.CandidatesScored.WithLabelValues(mode).Add(float64(res.Scored))
	metrics.PreviewsReturned.Observe(float64(len(res.Matches)))

	if s.publisher != nil && len(res.Matches) > 0 {
		if err := PublishPreviews(s.publisher, req.Seeker.ID, res, s.previewLimit); err != nil {
			s.logger.Warn().Err(err).Str("seeker", req.Seeker.ID).Msg("publish previews")
		}
	}
	return res, nil
}

func (s *Service) complete(ctx context.Context, req *Request) error {
	if s.repo == nil || req.Seeker == nil || req.Seeker.ID == "" {
		return nil
	}
	if len(req.Pool) == 0 {
		pool, err := s.repo.CandidatePool(ctx, req.Seeker.ID)
		if err != nil {
			return fmt.Errorf("matching: load candidate pool: %w", err)
		}
		req.Pool = pool
	}
	if len(req.Availability) == 0 {
		slots, err := s.repo.Availability(ctx, req.Seeker.ID)
		if err != nil {
			return fmt.Errorf("matching: load availability: %w", err)
		}
		req.Availability = slots
	}
	return nil
}

func (s *Service) handleMatchRequest(data []byte) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Warn().Err(err).Msg("invalid match request")
		return encodeReply(Reply{Error: "invalid_json", Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	res, err := s.Match(ctx, req)
	if err != nil {
		code := "internal_error"
		if errors.Is(err, ErrInvalidRequest) {
			code = "invalid_request"
		} else {
			s.logger.Error().Err(err).Msg("match request failed")
		}
		return encodeReply(Reply{Error: code, Message: err.Error()})
	}

	s.logger.Debug().
		Str("seeker", req.Seeker.ID).
		Int("matches", len(res.Matches)).
		Msg("match request served")
	return encodeReply(Reply{Matches: res.Matches, EmptyReason: res.EmptyReason})
}

func encodeReply(r Reply) []byte {
	data, err := json.Marshal(r)
	if err != nil {
		return []byte(`{"error":"internal_error"}`)
	}
	return data
}
