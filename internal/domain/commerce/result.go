package commerce

// Result is what every cart and session operation hands back to the caller.
// Expected business outcomes are failed results, not errors.
type Result struct {
	OK     bool
	Reason string
	Err    error
}

func Succeeded() Result { return Result{OK: true} }

func Failed(reason string, err error) Result {
	if reason == "" && err != nil {
		reason = err.Error()
	}
	return Result{OK: false, Reason: reason, Err: err}
}
