package feed

import "context"

// Result is the outcome of one load: Items on success, Err on failure.
type Result struct {
	Items []Item
	Err   error
}

// LoadAsync runs l.Load on its own goroutine. The returned channel yields exactly
// one Result and is then closed.
func LoadAsync(ctx context.Context, l Loader) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		items, err := l.Load(ctx)
		if err != nil {
			out <- Result{Err: err}
			return
		}
		out <- Result{Items: items}
	}()
	return out
}
