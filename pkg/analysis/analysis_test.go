package analysis

import (
	"context"
	"sync"
	"testing"

	"github.com/leapstack-labs/layerlint/internal/testutil"
	"github.com/leapstack-labs/layerlint/pkg/collector"
	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/leapstack-labs/layerlint/pkg/layer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userController = `App\Controller\UserController`
	authController = `App\Controller\AuthController`
	user           = `App\Model\User`
)

func scenario() *Configuration {
	return &Configuration{
		Layers: []layer.Definition{
			{Name: "Controller", Collectors: []collector.Collector{collector.Must(collector.Path("Controller"))}},
			{Name: "Model", Collectors: []collector.Collector{collector.Must(collector.Path("Model"))}},
			{Name: "Empty"},
		},
		Rules: []core.RuleStatement{{Layer: "Controller", Allowed: []string{"Model"}}},
		Entities: []core.Entity{
			core.NewEntity(userController, nil, nil),
			core.NewEntity(authController, nil, nil),
			core.NewEntity(user, nil, nil),
			core.NewEntity(`App\Util\Strings`, nil, nil),
		},
		Edges: []core.DependencyEdge{
			{Source: userController, Target: user},
			{Source: userController, Target: authController},
		},
	}
}

func TestAnalyse_NoViolations(t *testing.T) {
	a := NewAnalyser(WithLogger(testutil.NewTestLogger(t)))
	assert.Nil(t, a.Last())

	res, err := a.Analyse(context.Background(), scenario())
	require.NoError(t, err)

	assert.Empty(t, res.Violations())
	assert.Equal(t, 1, res.Stats().SameLayer)
	assert.Equal(t, 1, res.Stats().Permitted)
	assert.Same(t, res, a.Last())
}

func TestAnalyse_Violation(t *testing.T) {
	cfg := scenario()
	cfg.Edges = append(cfg.Edges, core.DependencyEdge{Source: user, Target: userController})

	res, err := NewAnalyser().Analyse(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, res.Violations(), 1)
	v := res.Violations()[0]
	assert.Equal(t, "Model", v.SourceLayer)
	assert.Equal(t, "Controller", v.TargetLayer)
	assert.Equal(t, core.ReasonUncovered, v.Reason)
	assert.Equal(t, map[string]int{"Model": 1}, res.ViolationsByLayer())
	assert.Equal(t, 1, res.Stats().Permitted)
}

func TestResult_Queries(t *testing.T) {
	res, err := NewAnalyser().Analyse(context.Background(), scenario())
	require.NoError(t, err)

	layers, err := res.LayersOf(userController)
	require.NoError(t, err)
	assert.Equal(t, []string{"Controller"}, layers)

	layers, err = res.LayersOf(`App\Util\Strings`)
	require.NoError(t, err)
	assert.Empty(t, layers)

	_, err = res.LayersOf("Nope")
	assert.ErrorIs(t, err, core.ErrNotFound)

	members, err := res.EntitiesOf("Controller")
	require.NoError(t, err)
	assert.Equal(t, []string{userController, authController}, members)

	members, err = res.EntitiesOf("Empty")
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = res.EntitiesOf("Service")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, []string{"Controller", "Model", "Empty"}, res.Layers())
	assert.Equal(t, []string{`App\Util\Strings`}, res.Unassigned())
	assert.Equal(t, []string{"Model"}, res.Allowed("Controller"))
	assert.Len(t, res.Entities(), 4)

	vs := res.ViolationSet()
	assert.Empty(t, vs.Violations)
	assert.Equal(t, res.Stats(), vs.Stats)
}

func TestAnalyse_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
	}{
		{"duplicate layer", func(c *Configuration) { c.Layers = append(c.Layers, layer.Definition{Name: "Model"}) }},
		{"unknown rule layer", func(c *Configuration) {
			c.Rules = append(c.Rules, core.RuleStatement{Layer: "View"})
		}},
		{"unknown allowed layer", func(c *Configuration) {
			c.Rules[0].Allowed = []string{"View"}
		}},
		{"duplicate entity", func(c *Configuration) { c.Entities = append(c.Entities, c.Entities[0]) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyser()
			good, err := a.Analyse(context.Background(), scenario())
			require.NoError(t, err)

			cfg := scenario()
			tt.mutate(cfg)
			res, err := a.Analyse(context.Background(), cfg)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Nil(t, res)
			assert.Same(t, good, a.Last(), "failed run must not replace the last result")
		})
	}

	_, err := NewAnalyser().Analyse(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestAnalyseLayer(t *testing.T) {
	a := NewAnalyser()

	members, err := a.AnalyseLayer(context.Background(), scenario(), "Model")
	require.NoError(t, err)
	assert.Equal(t, []string{user}, members)

	_, err = a.AnalyseLayer(context.Background(), scenario(), "Missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Nil(t, a.Last())
}

func TestAnalyse_SkipsAndUntracked(t *testing.T) {
	cfg := scenario()
	cfg.ReportUntracked = true
	cfg.SkipViolations = []core.SkipViolation{{Source: user, Targets: []string{userController, "Gone"}}}
	cfg.Edges = append(cfg.Edges,
		core.DependencyEdge{Source: user, Target: userController},
		core.DependencyEdge{Source: user, Target: `App\Util\Strings`},
	)

	res, err := NewAnalyser().Analyse(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Violations())
	assert.Len(t, res.Skipped(), 1)
	assert.Equal(t, []core.DependencyEdge{{Source: user, Target: "Gone"}}, res.UnmatchedSkips())
	assert.Equal(t, []core.DependencyEdge{{Source: user, Target: `App\Util\Strings`}}, res.Untracked())
}

func TestAnalyser_ConcurrentLast(t *testing.T) {
	a := NewAnalyser(WithWorkers(2))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := a.Analyse(context.Background(), scenario())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			if res := a.Last(); res != nil {
				assert.Len(t, res.Layers(), 3)
			}
		}()
	}
	wg.Wait()
	assert.NotNil(t, a.Last())
}
