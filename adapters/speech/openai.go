// Package speech provides the OpenAI-backed SpeechProvider.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"

	"github.com/artpar/voxmeter/ports"
	openai "github.com/sashabaranov/go-openai"
)

// Config configures the OpenAI speech adapter.
type Config struct {
	APIKey   string
	TTSModel string // default tts-1
	TTSVoice string // default nova
	STTModel string // default whisper-1
}

// OpenAI implements ports.SpeechProvider against the OpenAI audio API.
type OpenAI struct {
	client   *openai.Client
	ttsModel openai.SpeechModel
	ttsVoice openai.SpeechVoice
	sttModel string
}

// NewOpenAI creates a new OpenAI speech adapter.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("speech: API key is required")
	}

	p := &OpenAI{
		client:   openai.NewClient(cfg.APIKey),
		ttsModel: openai.TTSModel1,
		ttsVoice: openai.VoiceNova,
		sttModel: openai.Whisper1,
	}
	if cfg.TTSModel != "" {
		p.ttsModel = openai.SpeechModel(cfg.TTSModel)
	}
	if cfg.TTSVoice != "" {
		p.ttsVoice = openai.SpeechVoice(cfg.TTSVoice)
	}
	if cfg.STTModel != "" {
		p.sttModel = cfg.STTModel
	}
	return p, nil
}

// Synthesize renders text to audio bytes.
func (p *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: p.ttsModel,
		Voice: p.ttsVoice,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return audio, nil
}

// Transcribe converts audio to text. The verbose response format
// carries the audio duration, which is the metered quantity; partial
// trailing seconds are rounded up.
func (p *OpenAI) Transcribe(ctx context.Context, audio []byte) (string, int64, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.sttModel,
		Reader:   bytes.NewReader(audio),
		FilePath: "voice.ogg",
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", 0, fmt.Errorf("create transcription: %w", err)
	}

	seconds := int64(math.Ceil(resp.Duration))
	if seconds < 1 {
		seconds = 1
	}
	return resp.Text, seconds, nil
}

// Ensure interface compliance.
var _ ports.SpeechProvider = (*OpenAI)(nil)
