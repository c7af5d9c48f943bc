package thumbnail

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// GenerateAll runs one job per resolution in spec concurrently and waits for
// all of them. It returns the destination keys written, in completion order.
// On failure the first job error is returned along with the keys of the jobs
// that did succeed; siblings are not cancelled.
func (t *Thumbnailer) GenerateAll(ctx context.Context, srcBucket, srcKey, dstBucket string, spec ResolutionSpec) ([]string, error) {
	jobs := t.naming.Jobs(srcBucket, srcKey, dstBucket, spec)

	var (
		g    errgroup.Group
		mu   sync.Mutex
		keys = make([]string, 0, len(jobs))
	)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := t.Generate(ctx, job); err != nil {
				return err
			}
			mu.Lock()
			keys = append(keys, job.DestinationKey)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return keys, err
}
