package engine

// Result aggregates the outcome of one run: which devices succeeded or
// failed, and for diff runs which devices produced which diff text.
// Devices are recorded in processing order and each device lands in
// exactly one outcome bucket.
type Result struct {
	succeeded []string
	failed    []string

	diffs     map[string][]string
	diffOrder []string // distinct diff texts in first-seen order
}

// NewResult returns an empty aggregate.
func NewResult() *Result {
	return &Result{diffs: make(map[string][]string)}
}

// Record stores an action handler's outcome for one device. The diff
// text joins the diff map, with "" meaning "no differences".
func (r *Result) Record(fqdn string, ok bool, diff string) {
	r.recordOutcome(fqdn, ok)
	if _, seen := r.diffs[diff]; !seen {
		r.diffOrder = append(r.diffOrder, diff)
	}
	r.diffs[diff] = append(r.diffs[diff], fqdn)
}

// RecordFailure stores a pipeline failure that never reached an action
// handler. The device joins only the failure bucket.
func (r *Result) RecordFailure(fqdn string) {
	r.recordOutcome(fqdn, false)
}

func (r *Result) recordOutcome(fqdn string, ok bool) {
	if ok {
		r.succeeded = append(r.succeeded, fqdn)
	} else {
		r.failed = append(r.failed, fqdn)
	}
}

// Succeeded returns the success bucket in processing order.
func (r *Result) Succeeded() []string {
	return r.succeeded
}

// Failed returns the failure bucket in processing order.
func (r *Result) Failed() []string {
	return r.failed
}

// DiffTexts returns the distinct diff texts in first-seen order.
func (r *Result) DiffTexts() []string {
	return r.diffOrder
}

// DiffDevices returns the devices that produced the given diff text.
func (r *Result) DiffDevices(diff string) []string {
	return r.diffs[diff]
}

// Status returns the run's process exit status: 0 when no device
// failed, 1 otherwise.
func (r *Result) Status() int {
	if len(r.failed) > 0 {
		return 1
	}
	return 0
}
