package workflow

import "context"

// GuardFunc is a predicate that must return true for a transition to occur
type GuardFunc func(ctx context.Context, job *Job) bool

// GuardHasPlan checks that the job knows what to fetch and where to put it.
func GuardHasPlan(ctx context.Context, job *Job) bool {
	return job != nil && job.TargetDir != "" && job.AssetURL != "" && job.ArchivePath != ""
}

// GuardArchiveMatches checks that the completed download is the archive the
// run asked for.
func GuardArchiveMatches(ctx context.Context, job *Job) bool {
	return job != nil && job.ArchivePath != "" && job.Downloaded == job.ArchivePath
}

// EvaluateGuards returns true if all guards pass
func EvaluateGuards(ctx context.Context, job *Job, guards []GuardFunc) bool {
	for _, guard := range guards {
		if !guard(ctx, job) {
			return false
		}
	}
	return true
}
