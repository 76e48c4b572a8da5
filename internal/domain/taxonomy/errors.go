package taxonomy

import (
	"errors"
	"fmt"

	"github.com/finz/backend/internal/domain/shared"
)

// Error codes surfaced by the taxonomy domain
const (
	ErrCodeNotLoaded      = "TAXONOMY_NOT_LOADED"
	ErrCodeUnresolvable   = "UNRESOLVABLE_RUBRO"
	ErrCodeDuplicateCode  = "DUPLICATE_RUBRO_CODE"
	ErrCodeDuplicateAlias = "DUPLICATE_RUBRO_ALIAS"
	ErrCodeAliasTarget    = "ALIAS_TARGET_UNKNOWN"
	ErrCodeAmbiguousAlias = "AMBIGUOUS_RUBRO_ALIAS"
)

// ErrNotLoaded is returned when an operation requires the taxonomy
// snapshot and none has been loaded. Callers must not treat this as an
// invalid identifier; it is an availability condition.
var ErrNotLoaded = shared.NewDomainError(ErrCodeNotLoaded, "Rubro taxonomy has not been loaded")

// NewUnresolvableError returns the error for a raw identifier that does
// not resolve to any canonical taxonomy code.
func NewUnresolvableError(rawID string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeUnresolvable, fmt.Sprintf("Rubro identifier %q cannot be resolved to a canonical code", rawID))
}

// NewDuplicateCodeError reports two taxonomy entries sharing a code
func NewDuplicateCodeError(code string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeDuplicateCode, fmt.Sprintf("Taxonomy contains duplicate canonical code %q", code))
}

// NewDuplicateAliasError reports two aliases with the same literal form
func NewDuplicateAliasError(alias string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeDuplicateAlias, fmt.Sprintf("Taxonomy contains duplicate alias %q", alias))
}

// NewUnknownAliasTargetError reports an alias pointing at a code that is
// not part of the taxonomy. Loading fails rather than leaving a dangling
// mapping behind.
func NewUnknownAliasTargetError(alias, target string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeAliasTarget, fmt.Sprintf("Alias %q points at unknown canonical code %q", alias, target))
}

// NewAmbiguousAliasError reports two aliases that collapse to the same
// normalized key while pointing at different canonical codes.
func NewAmbiguousAliasError(normalized, codeA, codeB string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeAmbiguousAlias, fmt.Sprintf("Aliases normalizing to %q point at both %q and %q", normalized, codeA, codeB))
}

// IsUnresolvable reports whether err marks an identifier that failed to
// resolve, as opposed to an availability or infrastructure error.
func IsUnresolvable(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == ErrCodeUnresolvable
}
