package model

// LintingConfig is a per-user linting rule document, stored as a JSON blob in
// the asset store under container "linting". The JSON field names are the rule
// identifiers the lint worker understands — do not rename them.
type LintingConfig struct {
	CasingFormat            string `json:"identifier_format"`
	MandatoryPrintArgument  bool   `json:"mandatory-variable-or-literal-in-println"`
	MandatoryReadInputValue bool   `json:"mandatory-variable-or-literal-in-readInput"`
}

// FormattingConfig is a per-user formatting rule document, stored under
// container "formatting".
type FormattingConfig struct {
	SpaceBeforeColon      bool `json:"enforce-spacing-before-colon-in-declaration"`
	SpaceAfterColon       bool `json:"enforce-spacing-after-colon-in-declaration"`
	NoSpaceAroundEquals   bool `json:"enforce-no-spacing-around-equals"`
	NewLinesBeforePrintln int  `json:"newLinesBeforePrintln"`
	IndentInsideIf        int  `json:"indent-inside-if"`
}

// DefaultLintingConfig is the document materialized the first time a user's
// linting config is read.
func DefaultLintingConfig() LintingConfig {
	return LintingConfig{
		CasingFormat:            "camel case",
		MandatoryPrintArgument:  true,
		MandatoryReadInputValue: true,
	}
}

// DefaultFormattingConfig is the document materialized the first time a user's
// formatting config is read.
func DefaultFormattingConfig() FormattingConfig {
	return FormattingConfig{
		SpaceBeforeColon:      false,
		SpaceAfterColon:       false,
		NoSpaceAroundEquals:   true,
		NewLinesBeforePrintln: 0,
		IndentInsideIf:        4,
	}
}
