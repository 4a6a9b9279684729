package tts

// Murf voice identifiers used by the agent.
const (
	// VoiceNatalie is a warm US-English female voice.
	VoiceNatalie = "en-US-natalie"

	// VoiceRohan is a conversational Indian-English male voice.
	VoiceRohan = "en-IN-rohan"

	// VoiceTerrell is a deep US-English male voice.
	VoiceTerrell = "en-US-terrell"

	// VoiceHazel is a UK-English female voice.
	VoiceHazel = "en-UK-hazel"
)

// DefaultVoice is used when a caller does not pick one.
const DefaultVoice = VoiceNatalie

// VoicePreference is the fixed fallback order for synthesis. When a
// voice fails the caller moves to the next; the list ends with the
// empty string, which lets the provider choose its own default.
var VoicePreference = []string{
	VoiceNatalie,
	VoiceRohan,
	VoiceTerrell,
	"",
}

// KnownVoices lists the voices exposed to clients.
func KnownVoices() []string {
	return []string{VoiceNatalie, VoiceRohan, VoiceTerrell, VoiceHazel}
}
