package task

import (
	"errors"
	"testing"
	"time"

	"github.com/warp-contracts/tom-indexer/src/utils/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

func TestTaskTestSuite(t *testing.T) {
	suite.Run(t, new(TaskTestSuite))
}

type TaskTestSuite struct {
	suite.Suite
	config *config.Config
}

func (s *TaskTestSuite) SetupSuite() {
	s.config = config.Default()
	s.config.StopTimeout = 5 * time.Second
}

func (s *TaskTestSuite) TestPeriodic() {
	var runs atomic.Int64
	task := NewTask(s.config, "periodic").
		WithPeriodicSubtaskFunc(time.Millisecond, func() error {
			runs.Inc()
			return nil
		})

	require.Nil(s.T(), task.Start())
	require.Eventually(s.T(), func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)

	task.StopWait()
	require.True(s.T(), task.IsStopping.Load())
	require.NotNil(s.T(), task.CtxRunning.Err())
}

func (s *TaskTestSuite) TestSubtasks() {
	var stopped atomic.Bool
	child := NewTask(s.config, "child").
		WithWorkerPool(2).
		WithOnStop(func() { stopped.Store(true) })

	// Keeps the child running till it's stopped
	child = child.WithSubtaskFunc(func() error {
		<-child.StopChannel
		return nil
	})

	parent := NewTask(s.config, "parent").
		WithSubtask(child).
		WithConditionalSubtask(false, NewTask(s.config, "disabled"))

	require.Nil(s.T(), parent.Start())

	done := make(chan struct{})
	child.SubmitToWorker(func() { close(done) })
	<-done

	parent.StopWait()
	require.True(s.T(), stopped.Load())
	require.NotNil(s.T(), child.CtxRunning.Err())
}

func (s *TaskTestSuite) TestBeforeStartFailure() {
	task := NewTask(s.config, "failing").
		WithOnBeforeStart(func() error { return errors.New("no connection") })
	require.Error(s.T(), task.Start())
}

func (s *TaskTestSuite) TestRetry() {
	var attempts int
	err := NewRetry().
		WithMaxElapsedTime(time.Second).
		WithMaxInterval(time.Millisecond).
		Run(func() error {
			attempts++
			if attempts < 3 {
				return errors.New("temporary")
			}
			return nil
		})
	require.Nil(s.T(), err)
	require.Equal(s.T(), 3, attempts)
}

func (s *TaskTestSuite) TestRetryPermanent() {
	var attempts int
	err := NewRetry().
		WithMaxElapsedTime(time.Second).
		WithOnError(func(err error) error {
			return backoff.Permanent(err)
		}).
		Run(func() error {
			attempts++
			return errors.New("invalid")
		})
	require.Error(s.T(), err)
	require.Equal(s.T(), 1, attempts)
}
