package ops

// Result is the outcome of one item of a bulk operation.
type Result struct {
	ID  string
	OK  bool
	Err error
}

// Results accumulates item outcomes. Failures never stop the loop; the
// aggregate fails iff at least one item failed.
type Results struct {
	Op    string
	items []Result
}

// Add records the outcome of one item.
func (r *Results) Add(id string, err error) {
	r.items = append(r.items, Result{ID: id, OK: err == nil, Err: err})
}

// Items returns all recorded outcomes.
func (r *Results) Items() []Result {
	return r.items
}

// Len returns the number of recorded items.
func (r *Results) Len() int {
	return len(r.items)
}

// Succeeded returns the number of successful items.
func (r *Results) Succeeded() int {
	n := 0
	for _, it := range r.items {
		if it.OK {
			n++
		}
	}
	return n
}

// Failures returns the failed items.
func (r *Results) Failures() []Result {
	var out []Result
	for _, it := range r.items {
		if !it.OK {
			out = append(out, it)
		}
	}
	return out
}

// Err returns nil when no item failed, else an *ErrPartialFailure.
func (r *Results) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	return &ErrPartialFailure{Op: r.Op, Total: len(r.items), Failures: failures}
}
