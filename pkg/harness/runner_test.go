package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "objmodel/pkg/errors"
)

func loadTestdata(t *testing.T) []*Suite {
	t.Helper()
	cfg := Config{Suites: []string{filepath.Join("..", "..", "testdata", "suites", "*.yaml")}}
	files, err := cfg.SuiteFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	suites := make([]*Suite, 0, len(files))
	for _, f := range files {
		s, err := LoadSuite(f)
		require.NoError(t, err, f)
		suites = append(suites, s)
	}
	return suites
}

func TestScenariosPassOnEveryBackend(t *testing.T) {
	suites := loadTestdata(t)

	for _, name := range []string{BackendModel, BackendGoja} {
		t.Run(name, func(t *testing.T) {
			backend, err := NewBackend(name)
			require.NoError(t, err)
			runner, err := NewRunner(backend, "")
			require.NoError(t, err)

			report := runner.Run(context.Background(), suites)
			for _, s := range report.Suites {
				for _, tr := range s.Tests {
					assert.NotContains(t, []Outcome{Failed, Panicked}, tr.Outcome, "%s/%s: %s", s.Name, tr.Name, tr.Error)
				}
			}
			assert.Equal(t, name, report.Backend)
			assert.Equal(t, 1, report.Ignored)
			assert.Zero(t, report.Failed())
			assert.Zero(t, report.Panic)
			assert.Equal(t, 1.0, report.Conformance())
		})
	}
}

const mismatchSuite = `name: mismatch
objects:
  o: {}
tests:
  - name: wrong value
    steps:
      - {op: set, object: o, key: x, value: 1, expect: true}
      - {op: get, object: o, key: x, expect: 2}
  - name: right value
    steps:
      - {op: set, object: o, key: x, value: 1, expect: true}
      - {op: get, object: o, key: x, expect: 1}
  - name: unexpected throw
    functions:
      bad: {throws: denied}
    steps:
      - {op: define, object: o, key: x, desc: {get: !fn bad}, expect: true}
      - {op: get, object: o, key: x, expect: 1}
`

func TestRunnerReportsMismatches(t *testing.T) {
	s, err := ParseSuite("mismatch.yaml", []byte(mismatchSuite))
	require.NoError(t, err)

	runner, err := NewRunner(NewModelBackend(), "")
	require.NoError(t, err)
	res := runner.RunSuite(context.Background(), s)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 2, res.Failed())

	wrong := res.Tests[0]
	assert.Equal(t, Failed, wrong.Outcome)
	var assertion *herrors.AssertionError
	require.ErrorAs(t, wrong.Err, &assertion)
	assert.Equal(t, "2", assertion.Expected)
	assert.Equal(t, "1", assertion.Actual)
	assert.Equal(t, 8, assertion.Pos().Line)
	assert.Equal(t, `get o["x"]`, assertion.Msg)

	threw := res.Tests[2]
	require.ErrorAs(t, threw.Err, &assertion)
	assert.Equal(t, "throws", assertion.Actual)
	var thrownErr *Thrown
	assert.ErrorAs(t, threw.Err, &thrownErr)
}

func TestRunnerFilter(t *testing.T) {
	suites := loadTestdata(t)

	runner, err := NewRunner(NewModelBackend(), `^prototype/(cycles|null)`)
	require.NoError(t, err)
	report := runner.Run(context.Background(), suites)

	require.Len(t, report.Suites, 1)
	assert.Equal(t, "prototype", report.Suites[0].Name)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Passed)

	_, err = NewRunner(NewModelBackend(), `(unclosed`)
	assert.Error(t, err)
}

type panickyBackend struct{}

func (panickyBackend) Name() string            { return "panicky" }
func (panickyBackend) Reset(fx *Fixture) error { return nil }
func (panickyBackend) Eval(step *Step) (string, error) {
	panic("backend exploded")
}

func TestRunnerRecoversPanics(t *testing.T) {
	s, err := ParseSuite("panic.yaml", []byte(mismatchSuite))
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	ctx := WithLogger(context.Background(), logger)

	runner, err := NewRunner(panickyBackend{}, "")
	require.NoError(t, err)
	report := runner.Run(ctx, []*Suite{s})

	assert.Equal(t, 3, report.Panic)
	assert.Zero(t, report.Failed())
	for _, tr := range report.Suites[0].Tests {
		assert.Equal(t, Panicked, tr.Outcome)
		assert.Contains(t, tr.Error, "backend exploded")
		assert.Nil(t, tr.Err)
	}
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "mismatch", hook.LastEntry().Data["suite"])
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	suites := loadTestdata(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, err := NewRunner(NewModelBackend(), "")
	require.NoError(t, err)
	report := runner.Run(ctx, suites)
	assert.Zero(t, report.Total)
}

func TestOutcomeCodes(t *testing.T) {
	for outcome, code := range map[Outcome]string{Passed: "O", Failed: "-", Ignored: "I", Panicked: "P"} {
		text, err := outcome.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, code, string(text))

		var back Outcome
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, outcome, back)
	}

	var o Outcome
	assert.Error(t, o.UnmarshalText([]byte("X")))
	_, err := Outcome(9).MarshalText()
	assert.Error(t, err)

	data, err := json.Marshal(TestResult{Name: "t", Outcome: Ignored})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":"t","r":"I"}`, string(data))
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendModel, b.Name())

	b, err = NewBackend(BackendGoja)
	require.NoError(t, err)
	assert.Equal(t, BackendGoja, b.Name())

	_, err = NewBackend("v8")
	assert.Error(t, err)
}
