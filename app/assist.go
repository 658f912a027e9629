package app

import (
	"context"
	"fmt"

	"github.com/artpar/voxmeter/domain/eligibility"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/ports"
	"github.com/rs/zerolog"
)

// transientMessage is shown on infrastructure faults; raw errors never
// reach end users.
const transientMessage = "Something went wrong, please try again later."

// AssistService runs the conversational flows: text in, voice out
// (Speak) and voice in, text out (Transcribe). Each flow checks
// eligibility, performs the metered action, delivers the reply, and
// appends the usage event afterwards.
type AssistService struct {
	meter  *MeterService
	speech ports.SpeechProvider
	out    ports.Messenger
	logger zerolog.Logger
}

// NewAssistService creates a new assist service.
func NewAssistService(meter *MeterService, speech ports.SpeechProvider, out ports.Messenger, logger zerolog.Logger) *AssistService {
	return &AssistService{
		meter:  meter,
		speech: speech,
		out:    out,
		logger: logger,
	}
}

// Speak synthesizes text into audio for userID and delivers it. The
// returned decision explains a denial; audio is nil when denied. The
// ledger append happens after delivery and its failure is logged, never
// surfaced: the synthesis already completed and is not rolled back.
func (s *AssistService) Speak(ctx context.Context, userID int64, text string) ([]byte, eligibility.Decision, error) {
	d, err := s.meter.CheckEligibility(ctx, userID, resource.TTSChars)
	if err != nil && !d.Eligible {
		s.notify(ctx, userID, transientMessage)
		return nil, d, fmt.Errorf("speak: %w", err)
	}
	if err != nil {
		// Fail-open policy let the check pass despite a storage fault.
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("eligibility check degraded, allowing")
	}
	if !d.Eligible {
		s.notify(ctx, userID, denialMessage(d))
		return nil, d, nil
	}

	audio, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		s.notify(ctx, userID, transientMessage)
		return nil, d, fmt.Errorf("synthesize: %w", err)
	}

	if err := s.out.DeliverAudio(ctx, userID, audio); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("audio delivery failed")
	}

	if _, err := s.meter.RecordUsage(ctx, userID, resource.TTSChars, int64(len(text))); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("usage append failed after synthesis")
	}
	return audio, d, nil
}

// Transcribe converts audio into text for userID and delivers it. The
// metered quantity is the audio duration reported by the backend.
func (s *AssistService) Transcribe(ctx context.Context, userID int64, audio []byte) (string, eligibility.Decision, error) {
	d, err := s.meter.CheckEligibility(ctx, userID, resource.STTSeconds)
	if err != nil && !d.Eligible {
		s.notify(ctx, userID, transientMessage)
		return "", d, fmt.Errorf("transcribe: %w", err)
	}
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("eligibility check degraded, allowing")
	}
	if !d.Eligible {
		s.notify(ctx, userID, denialMessage(d))
		return "", d, nil
	}

	text, seconds, err := s.speech.Transcribe(ctx, audio)
	if err != nil {
		s.notify(ctx, userID, transientMessage)
		return "", d, fmt.Errorf("transcribe: %w", err)
	}

	if err := s.out.DeliverText(ctx, userID, text); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("text delivery failed")
	}

	if _, err := s.meter.RecordUsage(ctx, userID, resource.STTSeconds, seconds); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("usage append failed after transcription")
	}
	return text, d, nil
}

func (s *AssistService) notify(ctx context.Context, userID int64, message string) {
	if err := s.out.Notify(ctx, userID, message); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("notification failed")
	}
}

// denialMessage maps a denial to the user-facing text.
func denialMessage(d eligibility.Decision) string {
	switch d.Reason {
	case eligibility.NotRegistered:
		return "You are not registered yet. Send /start to begin your free trial."
	case eligibility.WindowExpired:
		return "Your trial or subscription has ended. Subscribe to keep going."
	case eligibility.LimitExceeded:
		return "You have reached your usage limit for this period."
	default:
		return transientMessage
	}
}
