package taxonomy

import (
	"time"

	"github.com/finz/backend/internal/domain/taxonomy"
)

// EntryResponse is the API representation of one canonical rubro
type EntryResponse struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Category        string `json:"category,omitempty"`
	CategoryCode    string `json:"category_code,omitempty"`
	CostType        string `json:"cost_type"`
	ExecutionType   string `json:"execution_type"`
	SourceReference string `json:"source_reference,omitempty"`
	Active          bool   `json:"active"`
}

// AliasResponse is the API representation of one legacy alias mapping
type AliasResponse struct {
	Alias         string `json:"alias"`
	CanonicalCode string `json:"canonical_code"`
	Note          string `json:"note,omitempty"`
}

// StatusResponse describes whether the taxonomy is ready to serve
type StatusResponse struct {
	Loaded   bool       `json:"loaded"`
	Entries  int        `json:"entries"`
	Aliases  int        `json:"aliases"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// ListEntriesRequest filters the taxonomy listing
type ListEntriesRequest struct {
	Category        string `form:"category"`
	CostType        string `form:"cost_type" binding:"omitempty,oneof=OPEX CAPEX"`
	IncludeInactive bool   `form:"include_inactive"`
}

// ResolveRequest carries one raw identifier for diagnostic resolution
type ResolveRequest struct {
	RubroID string `json:"rubro_id" binding:"required,rubroid,max=120"`
}

// toEntryResponse converts a domain entry to its API representation
func toEntryResponse(entry taxonomy.Entry) EntryResponse {
	return EntryResponse{
		Code:            entry.Code,
		Name:            entry.Name,
		Description:     entry.Description,
		Category:        entry.Category,
		CategoryCode:    entry.CategoryCode,
		CostType:        entry.CostType.String(),
		ExecutionType:   entry.ExecutionType.String(),
		SourceReference: entry.SourceReference,
		Active:          entry.Active,
	}
}

// toAliasResponse converts a domain alias to its API representation
func toAliasResponse(alias taxonomy.Alias) AliasResponse {
	return AliasResponse{
		Alias:         alias.Alias,
		CanonicalCode: alias.CanonicalCode,
		Note:          alias.Note,
	}
}
