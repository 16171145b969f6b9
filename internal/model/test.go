package model

// Test is an expected-output fixture attached to a snippet. Running it never
// mutates stored state: the snippet is executed with UserInput as its input
// lines and the produced output is compared line by line against
// ExpectedOutput, order-sensitive and without normalization.
type Test struct {
	ID             string   `json:"id"`
	SnippetID      string   `json:"snippetId"`
	Name           string   `json:"name"`
	ExpectedOutput []string `json:"expectedOutput"`
	UserInput      []string `json:"userInput"`
}

// TestResult is the outcome of running a fixture against the validator
// service's execute operation.
type TestResult struct {
	Passed         bool     `json:"passed"`
	ExpectedOutput []string `json:"expectedOutput"`
	ActualOutput   []string `json:"actualOutput"`
}
