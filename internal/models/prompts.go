package models

const (
	ContextSeparator = "\n---\n"

	SystemPrompt = "You are a professional novel continuation assistant. Continue the story from the text the user provides, keeping the same style and voice. Write vividly. Do not repeat the provided text."

	RecalledContextHeader = "Recalled context (characters, world notes, earlier passages):"
	CurrentTextHeader     = "Current text:"
	InstructionHeader     = "Instruction:"
	ContinueDirective     = "Continue the story according to the instruction above."
)
