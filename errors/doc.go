// Package errors provides the structured error taxonomy used across talentkit.
//
// Every failure surfaced by the pipeline carries a code that tells the caller
// which stage failed, so "no matches" can always be told apart from
// "cannot search".
//
// # Error Codes
//
// The pipeline codes are:
//
//   - EXTRACTION: the source document could not be parsed into text
//   - EMBEDDING: the embedding model failed or returned an unusable vector
//   - STORAGE: the index is unreadable, unwritable or closed
//   - GENERATION: the text-generation collaborator failed or returned
//     output that could not be interpreted
//
// Supporting codes (INVALID_INPUT, NOT_FOUND, TIMEOUT, CANCELED,
// INTERNAL) refine those cases. Corrupted index state is reported as STORAGE
// with the "reason" metadata set to "corruption".
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeExtraction, "pdf has no page tree")
//
// Wrap a lower-level failure with a code:
//
//	err = errors.WrapWithCode(ioErr, errors.ErrCodeStorage, "writing resume record")
//
// Test for a code anywhere in the chain:
//
//	if errors.Is(err, errors.ErrCodeStorage) {
//	    // index unavailable
//	}
//
// Nothing in talentkit retries. Retryable reports whether a caller could
// reasonably try again; the decision stays with the caller.
package errors
