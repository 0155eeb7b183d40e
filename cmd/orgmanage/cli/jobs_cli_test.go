package cli

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/orgmanage/orgmanage/internal/goals"
	"github.com/orgmanage/orgmanage/jobs"
)

type stubEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.task = task
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func TestTriggerEnqueuesGoalRefresh(t *testing.T) {
	enq := &stubEnqueuer{}
	cli := &JobsCLI{client: enq}

	info, err := cli.Trigger(context.Background(), goals.TaskTypeRefresh)
	require.NoError(t, err)
	require.Equal(t, goals.TaskTypeRefresh, info.Type)
	require.Equal(t, goals.TaskTypeRefresh, enq.task.Type())
	require.NotEmpty(t, enq.opts)
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	enq := &stubEnqueuer{}
	cli := &JobsCLI{client: enq}

	_, err := cli.Trigger(context.Background(), "mail:blast")
	require.Error(t, err)
	require.Nil(t, enq.task)
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	code := Run(context.Background(), Options{
		Args:   []string{"frobnicate"},
		Stdout: discard{},
		Stderr: discard{},
	})
	require.Equal(t, 1, code)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
