package loam

// StepMetadata is the frontmatter of a step document. Nested blocks stay
// loosely typed here and are decoded with the same hooks as definition files.
type StepMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Audio       any    `json:"audio,omitempty" mapstructure:"audio"`
	AudioOnly   bool   `json:"audio_only,omitempty" mapstructure:"audio_only"`
	FinishEarly bool   `json:"finish_early,omitempty" mapstructure:"finish_early"`
	Transitions []any  `json:"transitions,omitempty" mapstructure:"transitions"`

	// Header fields, only read from a directory's sequence document.
	Name      string `json:"name,omitempty" mapstructure:"name"`
	Kind      string `json:"kind,omitempty" mapstructure:"kind"`
	Entry     string `json:"entry,omitempty" mapstructure:"entry"`
	BasePitch any    `json:"base_pitch,omitempty" mapstructure:"base_pitch"`
	Variables []any  `json:"variables,omitempty" mapstructure:"variables"`
	// Steps orders the directory's step documents. Unlisted steps follow, sorted by ID.
	Steps []any `json:"steps,omitempty" mapstructure:"steps"`
}
