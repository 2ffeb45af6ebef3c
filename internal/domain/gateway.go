package domain

import "context"

// IngestResult is the outcome of indexing a document at the AI service.
type IngestResult struct {
	IndexRef string
	Chunks   int
}

// Answer is the AI service response to a question against a document index.
type Answer struct {
	Answer  string
	Sources []string
}

// TermExplanation is a glossary lookup result.
type TermExplanation struct {
	Term        string
	Explanation string
	Provider    string
}

// Summarizer turns document text into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// TermLookup explains a term. Not scoped to any document.
type TermLookup interface {
	LookupTerm(ctx context.Context, term string) (TermExplanation, error)
}

// ReachabilityChecker reports whether a remote dependency responds. Never errors.
type ReachabilityChecker interface {
	IsReachable(ctx context.Context) bool
}
