// Package model defines the data structures shared across the application.
// These are plain structs: persistence lives in internal/repository, snippet
// content lives in the external asset store keyed by snippet id.
package model

// Compliance is the lint status of a snippet's current content.
//
// State machine:
//
//	PENDING --(lint worker reports ok)-----> COMPLIANT
//	PENDING --(lint worker reports not ok)-> NON_COMPLIANT
//	any state --(edit/update)--------------> PENDING
//
// COMPLIANT and NON_COMPLIANT are not terminal; every edit returns to PENDING.
type Compliance string

const (
	CompliancePending      Compliance = "PENDING"
	ComplianceCompliant    Compliance = "COMPLIANT"
	ComplianceNonCompliant Compliance = "NON_COMPLIANT"
)

// FromLintResult maps a lint worker verdict to a compliance value.
func FromLintResult(ok bool) Compliance {
	if ok {
		return ComplianceCompliant
	}
	return ComplianceNonCompliant
}

// Snippet is the metadata row for a stored code snippet.
// The content body is NOT stored here — it lives in the asset store under
// container "snippets" keyed by ID. A Snippet row and its content blob are
// created together and deleted together.
type Snippet struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	Extension   string     `json:"extension"`
	Compliance  Compliance `json:"compliance"`
}

// SnippetView is the response shape assembled by the orchestrator: the
// repository row joined with the asset-store content and the caller's
// permission record.
type SnippetView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	Extension   string     `json:"extension"`
	Compliance  Compliance `json:"compliance"`
	Content     string     `json:"content"`
	Permission  string     `json:"permission"`
	Author      string     `json:"author"`
}

// Page wraps a client-side paginated list. Total is the size of the full
// assembled list, not the number of permission records it was built from.
type Page struct {
	Items []SnippetView `json:"items"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
	Total int           `json:"total"`
}
