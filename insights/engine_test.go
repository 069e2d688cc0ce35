package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"clementus360/task-insights/analysis"
	"clementus360/task-insights/collector"
	"clementus360/task-insights/config"
	"clementus360/task-insights/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type provider struct{}

func (provider) GetSubject(_ context.Context, id string) (types.SubjectSnapshot, error) {
	if id != "T1" {
		return types.SubjectSnapshot{}, analysis.ErrSubjectNotFound
	}
	return types.SubjectSnapshot{Task: types.Task{ID: id, Title: "Plan offsite"}}, nil
}

type generator struct {
	prompts []string
}

func (g *generator) Generate(_ context.Context, _, user string) (string, error) {
	g.prompts = append(g.prompts, user)
	return "```json\n{\"statusSummary\":\"ok\",\"nextSteps\":\"go\",\"riskLevel\":\"high\",\"intelligentActions\":[]}\n```", nil
}

func newEngine(gen *generator) *Engine {
	return New(Options{
		Config:    config.DefaultEngineConfig,
		Provider:  provider{},
		Generator: gen,
		Now:       func() time.Time { return now },
	})
}

func TestEngine_AnalysisWithNoPriorData(t *testing.T) {
	gen := &generator{}
	e := newEngine(gen)
	require.Zero(t, e.StoreSize())

	res, err := e.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.StatusSummary)
	assert.Equal(t, "go", res.NextSteps)
	assert.Equal(t, types.RiskHigh, res.RiskLevel)
	assert.Empty(t, res.IntelligentActions)

	_, err = e.ExecuteAnalysis(context.Background(), "missing")
	assert.True(t, errors.Is(err, analysis.ErrSubjectNotFound))
}

func TestEngine_RecordQueryAggregate(t *testing.T) {
	e := newEngine(&generator{})

	e.Recorder().RecordTaskCompletion("t1", 3*time.Hour, false)
	e.Recorder().RecordTaskCreation("t2", true)
	e.Recorder().RecordWorkSession(45*time.Minute, 2)

	points := e.Query(types.QueryFilter{Kinds: []types.DataKind{types.KindTaskPatterns}})
	assert.Len(t, points, 2)

	res := e.AggregateRecent(types.KindTaskPatterns, 24*time.Hour)
	assert.Equal(t, 2, res.DataPointCount)
	assert.Equal(t, 1.0, res.AggregatedData["completed"])
	assert.Equal(t, 1.0, res.AggregatedData["created"])
}

func TestEngine_CollectFeedsPrompt(t *testing.T) {
	gen := &generator{}
	e := newEngine(gen)

	n, err := e.Collect(context.Background(), collector.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "temporal source")

	_, err = e.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Plan offsite")
}

func TestEngine_ClearAnalysis(t *testing.T) {
	gen := &generator{}
	e := newEngine(gen)

	_, err := e.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, analysis.StateCached, e.AnalysisState("T1"))

	e.ClearAnalysis("T1")
	assert.Equal(t, analysis.StateIdle, e.AnalysisState("T1"))

	_, err = e.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 2)
}

func TestRegistry(t *testing.T) {
	built := 0
	r := NewRegistry(func(userID string) (*Engine, error) {
		if userID == "" {
			return nil, errors.New("no user")
		}
		built++
		return newEngine(&generator{}), nil
	})
	defer r.Close()

	a, err := r.Get("u1")
	require.NoError(t, err)
	b, err := r.Get("u1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.Get("u2")
	require.NoError(t, err)
	_, err = r.Get("")
	assert.Error(t, err)

	assert.Equal(t, 2, built)
	assert.Equal(t, 2, r.Len())

	r.Close()
	assert.Zero(t, r.Len())
}
