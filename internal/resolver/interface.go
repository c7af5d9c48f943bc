package resolver

import "context"

// Resolver maps the bucket an object was created in to the bucket its
// thumbnails are written to.
type Resolver interface {
	Resolve(ctx context.Context, sourceBucket string) (string, error)
}
