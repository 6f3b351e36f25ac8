package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

const (
	// CategoryTransient indicates failures where a later attempt may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures that a retry will not fix.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates bugs or corrupted state.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

const (
	// Pipeline stages
	ErrCodeExtraction ErrorCode = "EXTRACTION" // Source document not parseable
	ErrCodeEmbedding  ErrorCode = "EMBEDDING"  // Embedding model failure
	ErrCodeStorage    ErrorCode = "STORAGE"    // Index unreadable/unwritable
	ErrCodeGeneration ErrorCode = "GENERATION" // Generation collaborator failure

	// Refinements
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeCanceled     ErrorCode = "CANCELED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeEmbedding, ErrCodeStorage, ErrCodeGeneration, ErrCodeTimeout:
		return CategoryTransient
	case ErrCodeExtraction, ErrCodeInvalidInput, ErrCodeNotFound, ErrCodeCanceled:
		return CategoryPermanent
	default:
		return CategoryInternal
	}
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeExtraction:   "text extraction failed",
	ErrCodeEmbedding:    "embedding failed",
	ErrCodeStorage:      "vector index unavailable",
	ErrCodeGeneration:   "text generation failed",
	ErrCodeInvalidInput: "invalid input provided",
	ErrCodeNotFound:     "document not found",
	ErrCodeTimeout:      "operation timed out",
	ErrCodeCanceled:     "operation canceled",
	ErrCodeInternal:     "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
