package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeAnswer(t *testing.T) {
	t.Run("all succeeded", func(t *testing.T) {
		s := NewRunState("r", "g", time.Now())
		s.Tasks = []Task{{ID: "a", Status: TaskSucceeded}, {ID: "b", Status: TaskSucceeded}}
		s.Results["a"] = Result{RawOutput: "  first \n"}
		s.Results["b"] = Result{RawOutput: "second"}
		assert.Equal(t, "first\n\nsecond", composeAnswer(s))
	})

	t.Run("nothing planned", func(t *testing.T) {
		assert.Equal(t, "No tasks were completed.", composeAnswer(NewRunState("r", "g", time.Now())))
	})

	t.Run("partial", func(t *testing.T) {
		s := NewRunState("r", "g", time.Now())
		s.Tasks = []Task{
			{ID: "a", Description: "fetch", Status: TaskSucceeded},
			{ID: "b", Description: "parse", Status: TaskFailed},
			{ID: "c", Description: "judge", Status: TaskFailed},
			{ID: "d", Description: "report", Status: TaskSkipped},
		}
		s.Results["a"] = Result{RawOutput: "data"}
		s.Results["b"] = Result{ErrorDetail: "bad json"}
		s.Results["c"] = Result{RawOutput: "meh", Succeeded: true}
		s.ValidationHistory = []ValidationOutcome{{TaskID: "c", Reason: "answer is vague"}}

		assert.Equal(t, "data\n\nPartial failure: 3 of 4 tasks did not succeed.\n"+
			"✗ parse: bad json\n"+
			"✗ judge: answer is vague\n"+
			"- report (skipped)", composeAnswer(s))
	})

	t.Run("nothing succeeded", func(t *testing.T) {
		s := NewRunState("r", "g", time.Now())
		s.Tasks = []Task{{ID: "a", Description: "fetch", Status: TaskFailed}}
		assert.Equal(t, "No tasks completed successfully.\n\nPartial failure: 1 of 1 tasks did not succeed.\n✗ fetch: not completed",
			composeAnswer(s))
	})
}

func TestRunStateClone(t *testing.T) {
	s := NewRunState("r", "g", time.Now())
	s.Tasks = []Task{{ID: "a", Dependencies: []string{"x"}}}
	s.Results["a"] = Result{RawOutput: "one"}
	s.RetryCount["a"] = 1
	s.Notes = []string{"n"}

	c := s.Clone()
	c.Tasks[0].Status = TaskSucceeded
	c.Tasks[0].Dependencies[0] = "y"
	c.Results["a"] = Result{RawOutput: "two"}
	c.RetryCount["a"] = 2
	c.Notes = append(c.Notes, "m")

	assert.Equal(t, TaskStatus(""), s.Tasks[0].Status)
	assert.Equal(t, "x", s.Tasks[0].Dependencies[0])
	assert.Equal(t, "one", s.Results["a"].RawOutput)
	assert.Equal(t, 1, s.RetryCount["a"])
	assert.Len(t, s.Notes, 1)
}

func TestReportValidationCounts(t *testing.T) {
	s := NewRunState("r", "g", time.Now())
	s.State = StateDone
	s.ValidationHistory = []ValidationOutcome{{Passed: true}, {Passed: false}, {Passed: true}}
	r := newReport(s, nil, s.StartedAt.Add(time.Second))

	require.True(t, r.Succeeded())
	passed, total := r.ValidationCounts()
	assert.Equal(t, 2, passed)
	assert.Equal(t, 3, total)
	assert.Equal(t, time.Second, r.Duration)
	assert.Empty(t, r.FailureReason)
}
