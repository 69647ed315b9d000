package mode

// Mode is the way a search request expresses its filters.
type Mode string

// Search mode constants.
const (
	// NaturalLanguage runs free text through the extraction engine.
	NaturalLanguage Mode = "natural_language"
	Manual          Mode = "manual"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == NaturalLanguage || m == Manual
}
