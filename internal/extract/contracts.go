package extract

// Outcome is the result of one field extraction after retries.
type Outcome struct {
	// Value is the raw candidate; nil when Empty.
	Value any
	// Empty is set when the capability found nothing or kept failing.
	Empty    bool
	Attempts int
	// Err is the last capability error when retries ran out.
	Err error
}
