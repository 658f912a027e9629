// Package resource defines the metered resource kinds.
package resource

// Kind identifies a metered unit type.
type Kind string

const (
	// TTSChars meters synthesized speech by input characters.
	TTSChars Kind = "tts_chars"
	// STTSeconds meters transcription by audio duration in seconds.
	STTSeconds Kind = "stt_seconds"
)

// Valid reports whether k is a known resource kind.
func (k Kind) Valid() bool {
	return k == TTSChars || k == STTSeconds
}

// String returns the wire representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Kinds returns all metered resource kinds.
func Kinds() []Kind {
	return []Kind{TTSChars, STTSeconds}
}
