package thumbnail

import (
	"path"
	"sort"
	"strings"
)

const (
	inputExtension  = "pdf"
	outputExtension = ".png"
	contentTypePNG  = "image/png"

	// DefaultSuffix is appended to the base name when a single resolution is used.
	DefaultSuffix = "-thumbnail"
)

// Job is one source-to-destination conversion.
type Job struct {
	SourceBucket      string
	SourceKey         string
	DestinationBucket string
	DestinationKey    string
	Resolution        int
}

// ResolutionSpec is either a single resolution or a set of named
// resolutions keyed by output suffix. Named wins when non-empty.
type ResolutionSpec struct {
	Single int
	Named  map[string]int
}

// SingleResolution returns a spec producing exactly one thumbnail.
func SingleResolution(dpi int) ResolutionSpec {
	return ResolutionSpec{Single: dpi}
}

// NamedResolutions returns a spec producing one thumbnail per entry.
func NamedResolutions(named map[string]int) ResolutionSpec {
	return ResolutionSpec{Named: named}
}

// Naming controls destination key derivation.
type Naming struct {
	Prefix string
	Suffix string
}

// BaseName is the last path segment of key with a trailing ".pdf" removed.
// A segment that is only ".pdf" is kept whole.
func BaseName(key string) string {
	base := path.Base(key)
	if trimmed := strings.TrimSuffix(base, "."+inputExtension); trimmed != "" {
		return trimmed
	}
	return base
}

// Key derives the destination key for key with the given suffix.
func (n Naming) Key(key, suffix string) string {
	return n.Prefix + BaseName(key) + suffix + outputExtension
}

// Jobs expands spec into the jobs for one source object. Named entries are
// returned sorted by suffix.
func (n Naming) Jobs(srcBucket, srcKey, dstBucket string, spec ResolutionSpec) []Job {
	if len(spec.Named) == 0 {
		suffix := n.Suffix
		if suffix == "" {
			suffix = DefaultSuffix
		}
		return []Job{{
			SourceBucket:      srcBucket,
			SourceKey:         srcKey,
			DestinationBucket: dstBucket,
			DestinationKey:    n.Key(srcKey, suffix),
			Resolution:        spec.Single,
		}}
	}

	suffixes := make([]string, 0, len(spec.Named))
	for s := range spec.Named {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)

	jobs := make([]Job, 0, len(suffixes))
	for _, s := range suffixes {
		jobs = append(jobs, Job{
			SourceBucket:      srcBucket,
			SourceKey:         srcKey,
			DestinationBucket: dstBucket,
			DestinationKey:    n.Key(srcKey, s),
			Resolution:        spec.Named[s],
		})
	}
	return jobs
}
