package resolver

import "context"

// Static resolves every source bucket to one configured bucket.
type Static struct {
	bucket string
}

// NewStatic creates a Static resolver.
func NewStatic(bucket string) *Static {
	return &Static{bucket: bucket}
}

// Resolve returns the configured bucket.
func (s *Static) Resolve(_ context.Context, _ string) (string, error) {
	return s.bucket, nil
}
