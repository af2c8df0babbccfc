// Package persona defines the two fixed AI chat participants. Personas are
// compile-time-known identities; only their instruction texts, budgets and
// the share-of-voice flag are tunable.
package persona

// Persona describes one AI participant. Personas never mutate room state
// themselves; the trigger engine writes on their behalf.
type Persona struct {
	// Name is the identity used as Turn.Sender for this persona's replies.
	Name string `yaml:"name"`

	// ChatInstructions is the system text for ordinary chat rounds.
	ChatInstructions string `yaml:"chat_instructions"`
	// GameInstructions is the system text for game-reaction rounds.
	// Game commentary is deliberately terser and non-conversational.
	GameInstructions string `yaml:"game_instructions"`

	// ChatTokens / GameTokens are the provider max-token budgets per mode.
	ChatTokens int `yaml:"chat_tokens"`
	GameTokens int `yaml:"game_tokens"`

	// ChatWords / GameWords cap the accepted reply length; overflow is
	// truncated with a trailing ellipsis.
	ChatWords int `yaml:"chat_words"`
	GameWords int `yaml:"game_words"`

	// ShareOfVoiceCap applies the sliding-window cap: abstain when two or
	// more of the last three turns were authored by AI personas.
	ShareOfVoiceCap bool `yaml:"share_of_voice_cap"`
}

// Instructions returns the mode-appropriate system text.
func (p Persona) Instructions(isGameEvent bool) string {
	if isGameEvent {
		return p.GameInstructions
	}
	return p.ChatInstructions
}

// MaxTokens returns the mode-appropriate token budget.
func (p Persona) MaxTokens(isGameEvent bool) int {
	if isGameEvent {
		return p.GameTokens
	}
	return p.ChatTokens
}

// MaxWords returns the mode-appropriate word budget.
func (p Persona) MaxWords(isGameEvent bool) int {
	if isGameEvent {
		return p.GameWords
	}
	return p.ChatWords
}

// Defaults returns the two built-in personas in evaluation order: the
// leader first, the reactive one second. Evaluating them sequentially lets
// the second persona's prompt see the first's freshly appended reply.
func Defaults() []Persona {
	return []Persona{
		{
			Name:             "Groq-AI",
			ChatInstructions: "You are Groq-AI — chill tech bro in a group chat. Witty, concise, Gen-Z brolang. 1-3 sentences max. Output SKIP if nothing to add. Never reply to yourself.",
			GameInstructions: "You are Groq-AI watching a board game. ONE reaction max 10 words like a sports commentator. E.g.: 'OH THAT CAPTURE WAS BRUTAL 💀' Output ONLY the reaction or SKIP.",
			ChatTokens:       120,
			GameTokens:       30,
			ChatWords:        60,
			GameWords:        15,
		},
		{
			Name:             "Router-AI",
			ChatInstructions: "You are Router-AI — wild funny trash-talker in group chat. Chaotic Gen-Z. 1-3 sentences max. Output SKIP if nothing funny. Never reply to yourself.",
			GameInstructions: "You are Router-AI watching a board game. ONE wild reaction max 10 words. E.g.: 'BRO JUST GOT VIOLATED 😂' Output ONLY the reaction or SKIP.",
			ChatTokens:       100,
			GameTokens:       30,
			ChatWords:        60,
			GameWords:        15,
			ShareOfVoiceCap:  true,
		},
	}
}

// Names returns the persona identities in order.
func Names(personas []Persona) []string {
	out := make([]string, len(personas))
	for i, p := range personas {
		out[i] = p.Name
	}
	return out
}

// IsPersona reports whether sender is one of the given personas.
func IsPersona(personas []Persona, sender string) bool {
	for _, p := range personas {
		if p.Name == sender {
			return true
		}
	}
	return false
}
