package param

import "context"

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
	FetchAll(context.Context, string) ([]string, error)
}

// Resolve fetches path when it is set and returns fallback otherwise.
func Resolve(ctx context.Context, f Fetcher, path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	return f.Fetch(ctx, path)
}

// ResolveAll is Resolve for parameter paths.
func ResolveAll(ctx context.Context, f Fetcher, path string, fallback []string) ([]string, error) {
	if path == "" {
		return fallback, nil
	}
	return f.FetchAll(ctx, path)
}
