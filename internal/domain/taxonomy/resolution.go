package taxonomy

// ResolutionKind discriminates how a raw identifier resolved
type ResolutionKind string

const (
	// ResolutionCanonical means the identifier normalized directly to a
	// canonical taxonomy code.
	ResolutionCanonical ResolutionKind = "CANONICAL"
	// ResolutionLegacyAlias means the identifier matched an alias, either
	// literally or after normalization.
	ResolutionLegacyAlias ResolutionKind = "LEGACY_ALIAS"
	// ResolutionUnresolved means no canonical code could be determined.
	ResolutionUnresolved ResolutionKind = "UNRESOLVED"
)

// String returns the string representation of ResolutionKind
func (k ResolutionKind) String() string {
	return string(k)
}

// Resolution is the outcome of resolving one raw rubro identifier.
// Code is only meaningful when the resolution is not unresolved.
type Resolution struct {
	Input      string         `json:"input"`
	Normalized string         `json:"normalized"`
	Kind       ResolutionKind `json:"kind"`
	Code       string         `json:"code,omitempty"`
}

// IsResolved returns true if a canonical code was determined
func (r Resolution) IsResolved() bool {
	return r.Kind != ResolutionUnresolved
}

// IsCanonical returns true if the input was already a canonical code
func (r Resolution) IsCanonical() bool {
	return r.Kind == ResolutionCanonical
}

// IsLegacyAlias returns true if the input resolved through an alias
func (r Resolution) IsLegacyAlias() bool {
	return r.Kind == ResolutionLegacyAlias
}
