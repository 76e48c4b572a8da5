package persistence

import (
	"strings"
)

// Sort inputs come straight from query strings, so both the field and
// the direction are validated against allowlists before they are
// spliced into an ORDER BY clause.

// ValidateSortOrder normalizes the direction to ASC or DESC, falling
// back to DESC for anything unrecognized.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is in the allowlist and
// defaultField otherwise.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields are the audit columns every entity carries.
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

func sortFields(extra ...string) map[string]bool {
	fields := make(map[string]bool, len(CommonSortFields)+len(extra))
	for f := range CommonSortFields {
		fields[f] = true
	}
	for _, f := range extra {
		fields[f] = true
	}
	return fields
}

// ProjectSortFields are the sortable columns of the projects table.
var ProjectSortFields = sortFields("code", "name", "status", "budget_amount")

// AllocationSortFields are the sortable columns of allocation_records.
var AllocationSortFields = sortFields("month", "rubro_code", "planned_amount")
