package problem

import "fmt"

// DatasetError reports ingestion-time validation failures. Ingestion always
// reports every violation it finds in one value (spec.md §4.1, §7).
type DatasetError struct {
	Reasons []string
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("dataset invalid: %d issue(s), first: %s", len(e.Reasons), firstOr(e.Reasons, "none"))
}

func firstOr(xs []string, fallback string) string {
	if len(xs) == 0 {
		return fallback
	}
	return xs[0]
}

// SealError reports a post-seal mutation attempt, a programmer bug per
// spec.md §7; callers should treat it as fatal rather than recoverable.
type SealError struct {
	Op string
}

func (e *SealError) Error() string {
	return fmt.Sprintf("problem: %s called after seal()", e.Op)
}
