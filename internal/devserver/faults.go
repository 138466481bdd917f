package devserver

import "sync"

// Faults lets tests make the server misbehave for a number of requests.
type Faults struct {
	mu             sync.Mutex
	verifyFailures int
	rejectAccess   int
	cartFailures   int
}

// FailVerify makes the next n verify calls answer 503.
func (f *Faults) FailVerify(n int) { f.set(&f.verifyFailures, n) }

// RejectAccess makes the next n bearer-authenticated requests answer 401
// even when the token is valid.
func (f *Faults) RejectAccess(n int) { f.set(&f.rejectAccess, n) }

// FailCart makes the next n cart requests answer 500.
func (f *Faults) FailCart(n int) { f.set(&f.cartFailures, n) }

func (f *Faults) set(counter *int, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 0 {
		n = 0
	}
	*counter = n
}

func (f *Faults) take(counter *int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if *counter <= 0 {
		return false
	}
	*counter--
	return true
}
