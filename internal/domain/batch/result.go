package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of one batch item. A record can be stored yet not
// indexed when its mapping fails: Status is then StatusOK, Indexed is false
// and Err holds the mapping error.
type Result struct {
	id      string
	status  ItemStatus
	indexed bool
	err     error
}

// NewStored creates a result for a record written to the primary store.
func NewStored(id string, indexed bool, err error) Result {
	return Result{id: id, status: StatusOK, indexed: indexed, err: err}
}

// NewError creates a result for a record that was not stored.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the record id.
func (r Result) ID() string { return r.id }

// Status returns the storage outcome.
func (r Result) Status() ItemStatus { return r.status }

// Indexed reports whether the record was queued for indexing.
func (r Result) Indexed() bool { return r.indexed }

// Err returns the storage, mapping or flush error, if any.
func (r Result) Err() error { return r.err }
