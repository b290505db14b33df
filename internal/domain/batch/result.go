package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusApplied   ItemStatus = "applied"
	StatusUnchanged ItemStatus = "unchanged"
	StatusNotFound  ItemStatus = "not_found"
	StatusError     ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewApplied creates a result for an item that was changed.
func NewApplied(id string) Result { return Result{id: id, status: StatusApplied} }

// NewUnchanged creates a result for an item that already satisfied the mutation.
func NewUnchanged(id string) Result { return Result{id: id, status: StatusUnchanged} }

// NewNotFound creates a result for an item that does not exist.
func NewNotFound(id string, err error) Result { return Result{id: id, status: StatusNotFound, err: err} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Failed reports whether the item was not applied.
func (r Result) Failed() bool {
	return r.status == StatusNotFound || r.status == StatusError
}

// Failed returns the failed results, preserving order.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of results per status.
func Count(results []Result) map[ItemStatus]int {
	m := make(map[ItemStatus]int, 4)
	for _, r := range results {
		m[r.status]++
	}
	return m
}
