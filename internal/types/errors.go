package types

import "errors"

// Sentinel errors for smartlist operations.
var (
	// ErrUnknownField indicates a rule references a field outside the allowed set.
	ErrUnknownField = errors.New("unknown rule field")

	// ErrUnknownOperator indicates a rule uses an operator the engine does not implement.
	ErrUnknownOperator = errors.New("unknown rule operator")

	// ErrInvalidOperand indicates a rule value has the wrong shape for its operator.
	ErrInvalidOperand = errors.New("invalid operand for operator")

	// ErrInvalidMatch indicates a rule group match other than "all" or "any".
	ErrInvalidMatch = errors.New("invalid group match")

	// ErrPlaylistNotFound indicates no playlist with the requested name exists.
	ErrPlaylistNotFound = errors.New("smart playlist not found")

	// ErrSourceNotFound indicates a library source path is not registered.
	ErrSourceNotFound = errors.New("library source not found")

	// ErrNotInSource indicates a file path lies outside every registered source.
	ErrNotInSource = errors.New("file is not inside any library source")

	// ErrFileNotIndexed indicates a file inside a source has not been indexed yet.
	ErrFileNotIndexed = errors.New("file is not in the library index")

	// ErrNotADirectory indicates a scan root that is missing or not a directory.
	ErrNotADirectory = errors.New("library source is not a directory")

	// ErrInvalidRating indicates a rating outside 0..5.
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
)
