package api

import (
	"context"

	"github.com/ingestkit/engine/bundle"
	"github.com/ingestkit/engine/job"
	"github.com/ingestkit/engine/store"
	"github.com/ingestkit/engine/workflow"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// JobInfo is the wire shape of one entry in ReadResponse.Jobs, converting
// job.Job's time.Time to a timestamppb.Timestamp the way
// 88lin-divinesense's service_converter.go does for its own entities.
type JobInfo struct {
	ID        string
	LinkID    string
	Name      string // the link's Group, e.g. "Verify checksums" (workflow.Link.Group)
	Status    workflow.JobStatus
	ExitCode  int
	CreatedAt *timestamppb.Timestamp
}

// ReadResponse is spec.md §6's Read(id) -> {status, current_job_name, jobs}.
type ReadResponse struct {
	ID             string
	Status         Status
	CurrentJobName string
	Jobs           []JobInfo
}

// Read reports a package's status, current microservice group name, and
// full job history. current_job_name comes from the job.Job.Group of the
// most recently appended job — the closed workflow has no separate
// human-readable link-name field, and Group is exactly that label in the
// reference workflow description (e.g. "Approve normalization").
func (s *Service) Read(ctx context.Context, id string) (ReadResponse, error) {
	rec, err := s.Engine.Store().GetPackage(ctx, id)
	if err != nil {
		return ReadResponse{}, err
	}

	jobs, err := s.Engine.Store().ListJobs(ctx, id)
	if err != nil {
		return ReadResponse{}, err
	}

	_, active := s.Engine.Package(id)

	resp := ReadResponse{
		ID:     id,
		Status: statusFromPackage(bundle.FinalStatus(rec.FinalStatus), active),
		Jobs:   make([]JobInfo, len(jobs)),
	}
	for i, j := range jobs {
		resp.Jobs[i] = toJobInfo(j)
	}
	if len(jobs) > 0 {
		resp.CurrentJobName = jobs[len(jobs)-1].Group
	}
	return resp, nil
}

func toJobInfo(j job.Job) JobInfo {
	return JobInfo{
		ID:        j.ID,
		LinkID:    j.LinkID,
		Name:      j.Group,
		Status:    j.Status,
		ExitCode:  j.ExitCode,
		CreatedAt: timestamppb.New(j.CreatedAt),
	}
}

// TaskInfo is the wire shape of one entry returned by ListTasks.
type TaskInfo struct {
	ID        string
	FileUUID  string // the bundle.File this task ran against, if any (spec.md §3)
	Filename  string
	Execution string
	Arguments string
	ExitCode  int
	Stdout    string
	Stderr    string
	Started   *timestamppb.Timestamp
	Ended     *timestamppb.Timestamp
	Err       string
}

// ListTasks returns every task dispatched for one job, implementing
// spec.md §6's ListTasks(job_id) -> {tasks}.
func (s *Service) ListTasks(ctx context.Context, jobID string) ([]TaskInfo, error) {
	recs, err := s.Engine.Store().ListTasks(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := make([]TaskInfo, len(recs))
	for i, r := range recs {
		out[i] = toTaskInfo(r)
	}
	return out, nil
}

func toTaskInfo(r store.TaskRecord) TaskInfo {
	return TaskInfo{
		ID:        r.ID,
		FileUUID:  r.FileUUID,
		Filename:  r.Filename,
		Execution: r.Execution,
		Arguments: r.Arguments,
		ExitCode:  r.ExitCode,
		Stdout:    r.Stdout,
		Stderr:    r.Stderr,
		Started:   timestamppb.New(r.Started),
		Ended:     timestamppb.New(r.Ended),
		Err:       r.Err,
	}
}
