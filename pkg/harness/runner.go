package harness

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	herrors "objmodel/pkg/errors"
	"objmodel/pkg/source"
)

// Outcome is the result of one test.
type Outcome uint8

const (
	Passed Outcome = iota
	Failed
	Ignored
	Panicked
)

var outcomeCodes = [...]string{Passed: "O", Failed: "-", Ignored: "I", Panicked: "P"}

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Ignored:
		return "ignored"
	default:
		return "panicked"
	}
}

// MarshalText writes the one-letter code used in result files.
func (o Outcome) MarshalText() ([]byte, error) {
	if int(o) >= len(outcomeCodes) {
		return nil, errors.Errorf("invalid outcome %d", o)
	}
	return []byte(outcomeCodes[o]), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for i, code := range outcomeCodes {
		if code == string(text) {
			*o = Outcome(i)
			return nil
		}
	}
	return errors.Errorf("invalid outcome code %q", text)
}

type TestResult struct {
	Name    string  `json:"n"`
	Outcome Outcome `json:"r"`
	Error   string  `json:"e,omitempty"`

	// Err is the positioned failure, when there is one.
	Err herrors.HarnessError `json:"-"`
}

type SuiteResult struct {
	Name    string       `json:"n"`
	Path    string       `json:"f,omitempty"`
	Total   int          `json:"c"`
	Passed  int          `json:"o"`
	Ignored int          `json:"i"`
	Panic   int          `json:"p"`
	Tests   []TestResult `json:"t"`

	// Source is kept for error display.
	Source *source.SourceFile `json:"-"`
}

// Failed is the number of tests that ran and did not pass.
func (s SuiteResult) Failed() int {
	return s.Total - s.Passed - s.Ignored - s.Panic
}

func (s *SuiteResult) add(r TestResult) {
	s.Tests = append(s.Tests, r)
	s.Total++
	switch r.Outcome {
	case Passed:
		s.Passed++
	case Ignored:
		s.Ignored++
	case Panicked:
		s.Panic++
	}
}

// Report aggregates a whole run.
type Report struct {
	Backend string        `json:"b"`
	Total   int           `json:"c"`
	Passed  int           `json:"o"`
	Ignored int           `json:"i"`
	Panic   int           `json:"p"`
	Suites  []SuiteResult `json:"s"`
}

func (r Report) Failed() int {
	return r.Total - r.Passed - r.Ignored - r.Panic
}

// Conformance is the share of non-ignored tests that passed.
func (r Report) Conformance() float64 {
	ran := r.Total - r.Ignored
	if ran == 0 {
		return 0
	}
	return float64(r.Passed) / float64(ran)
}

// Runner executes suites on one backend, one fresh realm per test.
type Runner struct {
	Backend Backend
	filter  *regexp2.Regexp
}

// NewRunner creates a runner. filter is an ECMAScript regular expression
// over "suite/test" names; empty runs everything.
func NewRunner(backend Backend, filter string) (*Runner, error) {
	r := &Runner{Backend: backend}
	if filter != "" {
		re, err := regexp2.Compile(filter, regexp2.ECMAScript)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid filter %q", filter)
		}
		r.filter = re
	}
	return r, nil
}

// Selected reports whether the filter admits the "suite/test" name.
func (r *Runner) Selected(name string) bool {
	if r.filter == nil {
		return true
	}
	ok, err := r.filter.MatchString(name)
	return err == nil && ok
}

// Run executes every selected test of every suite.
func (r *Runner) Run(ctx context.Context, suites []*Suite) Report {
	report := Report{Backend: r.Backend.Name()}
	for _, s := range suites {
		if ctx.Err() != nil {
			Logger(ctx).Warn("run cancelled")
			break
		}
		res := r.RunSuite(ctx, s)
		if res.Total == 0 {
			continue
		}
		report.Total += res.Total
		report.Passed += res.Passed
		report.Ignored += res.Ignored
		report.Panic += res.Panic
		report.Suites = append(report.Suites, res)
	}
	return report
}

func (r *Runner) RunSuite(ctx context.Context, s *Suite) SuiteResult {
	logger := Logger(ctx).WithFields(logrus.Fields{"suite": s.Name, "backend": r.Backend.Name()})
	res := SuiteResult{Name: s.Name, Path: s.Path, Source: s.Source}

	for i := range s.Tests {
		t := &s.Tests[i]
		if !r.Selected(s.Name + "/" + t.Name) {
			continue
		}
		tr := r.runTest(t)
		switch tr.Outcome {
		case Passed:
			logger.Debugf("%s: passed", t.Name)
		case Ignored:
			logger.Debugf("%s: ignored (%s)", t.Name, t.Skip)
		default:
			logger.WithField("outcome", tr.Outcome).Infof("%s: %s", t.Name, tr.Error)
		}
		res.add(tr)
	}
	return res
}

func (r *Runner) runTest(t *Test) (res TestResult) {
	res.Name = t.Name
	if t.Skip != "" {
		res.Outcome = Ignored
		return res
	}

	defer func() {
		if rec := recover(); rec != nil {
			res.Outcome = Panicked
			res.Error = fmt.Sprintf("panic: %v\n%s", rec, debug.Stack())
			res.Err = nil
		}
	}()

	if err := r.Backend.Reset(&t.Fixture); err != nil {
		return failed(res, &herrors.AssertionError{Position: t.Pos, Msg: "fixture setup failed", Cause: err})
	}

	for i := range t.Steps {
		step := &t.Steps[i]
		got, err := r.Backend.Eval(step)
		if err != nil {
			var thrownErr *Thrown
			if !errors.As(err, &thrownErr) {
				return failed(res, (&herrors.AssertionError{Position: step.Pos, Msg: step.String() + " could not run: " + err.Error()}).CausedBy(err))
			}
			got = thrownText
		}
		if got != step.Expect {
			return failed(res, &herrors.AssertionError{
				Position: step.Pos,
				Msg:      step.String(),
				Expected: step.Expect,
				Actual:   got,
				Cause:    err,
			})
		}
	}
	res.Outcome = Passed
	return res
}

func failed(res TestResult, err herrors.HarnessError) TestResult {
	res.Outcome = Failed
	res.Error = err.Error()
	res.Err = err
	return res
}
