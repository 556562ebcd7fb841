package logg

// Structured log field keys shared by every layer.
const (
	Layer     = "layer"
	Operation = "operation"
	Step      = "step"
	Selector  = "selector"
	URL       = "url"
	Username  = "username"
	AttemptID = "attempt_id"
	Outcome   = "outcome"
	State     = "state"
	Date      = "date"
)
