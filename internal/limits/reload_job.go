package limits

import (
	"context"
)

// ReloadJob periodically re-reads the file-backed limits so edits take
// effect without a restart. Only wired when the gate runs off a limits file.
type ReloadJob struct {
	provider *FileProvider
}

// NewReloadJob creates the reload job
func NewReloadJob(provider *FileProvider) *ReloadJob {
	return &ReloadJob{provider: provider}
}

// Name returns the job name
func (j *ReloadJob) Name() string {
	return "limits-reload"
}

// Schedule runs every five minutes
func (j *ReloadJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run re-reads the limits file; a broken file keeps the previous limits
func (j *ReloadJob) Run(_ context.Context) error {
	return j.provider.Reload()
}
