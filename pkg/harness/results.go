package harness

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	// LatestFileName holds the full results of the last run.
	LatestFileName = "latest.json"
	// ResultsFileName holds the reduced history of every run.
	ResultsFileName = "results.json"

	// FormatVersion is written into every result file. Readers accept any
	// version matching formatConstraint.
	FormatVersion    = "1.0.0"
	formatConstraint = "^1.0.0"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultInfo is the content of latest.json.
type ResultInfo struct {
	Version string `json:"v"`
	Commit  string `json:"c"`
	Results Report `json:"r"`
}

// ReducedResultInfo is one entry of results.json.
type ReducedResultInfo struct {
	Version string `json:"v"`
	Commit  string `json:"c"`
	Backend string `json:"b"`
	Total   int    `json:"t"`
	Passed  int    `json:"o"`
	Ignored int    `json:"i"`
	Panic   int    `json:"p"`
}

func (info ResultInfo) Reduced() ReducedResultInfo {
	return ReducedResultInfo{
		Version: info.Version,
		Commit:  info.Commit,
		Backend: info.Results.Backend,
		Total:   info.Results.Total,
		Passed:  info.Results.Passed,
		Ignored: info.Results.Ignored,
		Panic:   info.Results.Panic,
	}
}

// FindRevision returns the commit checked out in the repository containing
// path.
func FindRevision(ctx context.Context, path string) (string, error) {
	logger := Logger(ctx)

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		logger.WithError(err).Debugf("%s is not inside a git repository", path)
		return "", err
	}

	head, err := repo.Reference(plumbing.HEAD, true)
	if err != nil {
		return "", err
	}
	if head.Hash().IsZero() {
		return "", errors.New("HEAD sha1 could not be resolved")
	}

	hash := head.Hash().String()
	logger.Debugf("Found revision: %s", hash)
	return strings.TrimSpace(hash), nil
}

// WriteResults writes latest.json and appends the reduced run to
// results.json in dir.
func WriteResults(ctx context.Context, dir string, report Report, commit string) error {
	logger := Logger(ctx)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	info := ResultInfo{Version: FormatVersion, Commit: commit, Results: report}
	latest, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "failed to encode results")
	}
	latestPath := filepath.Join(dir, LatestFileName)
	if err := os.WriteFile(latestPath, latest, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", latestPath)
	}

	allPath := filepath.Join(dir, ResultsFileName)
	history, err := ReadHistory(allPath)
	if err != nil {
		return err
	}
	history = append(history, info.Reduced())
	all, err := json.Marshal(history)
	if err != nil {
		return errors.Wrap(err, "failed to encode results history")
	}
	if err := os.WriteFile(allPath, all, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", allPath)
	}

	logger.Infof("Results written to %s", dir)
	return nil
}

// ReadHistory reads results.json. A missing file is an empty history.
func ReadHistory(path string) ([]ReducedResultInfo, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var history []ReducedResultInfo
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return history, nil
}

// ReadResultInfo reads a latest.json file, refusing incompatible formats.
func ReadResultInfo(path string) (ResultInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ResultInfo{}, errors.Wrapf(err, "failed to read %s", path)
	}
	var info ResultInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return ResultInfo{}, errors.Wrapf(err, "failed to decode %s", path)
	}
	if err := checkFormat(info.Version); err != nil {
		return ResultInfo{}, errors.Wrap(err, path)
	}
	return info, nil
}

func checkFormat(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "bad result format version %q", version)
	}
	constraint, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return errors.Errorf("result format %s is not supported (want %s)", version, formatConstraint)
	}
	return nil
}

// Change is a test whose outcome differs between two runs.
type Change struct {
	Suite string
	Test  string
	Base  Outcome
	New   Outcome
}

// Comparison summarizes two runs.
type Comparison struct {
	Base, New ReducedResultInfo
	Changes   []Change
}

// Compare lists the tests whose outcome changed from base to next. Tests
// present in only one of the runs are ignored.
func Compare(base, next ResultInfo) Comparison {
	cmp := Comparison{Base: base.Reduced(), New: next.Reduced()}

	outcomes := make(map[[2]string]Outcome)
	for _, s := range base.Results.Suites {
		for _, t := range s.Tests {
			outcomes[[2]string{s.Name, t.Name}] = t.Outcome
		}
	}
	for _, s := range next.Results.Suites {
		for _, t := range s.Tests {
			old, ok := outcomes[[2]string{s.Name, t.Name}]
			if ok && old != t.Outcome {
				cmp.Changes = append(cmp.Changes, Change{Suite: s.Name, Test: t.Name, Base: old, New: t.Outcome})
			}
		}
	}
	sort.Slice(cmp.Changes, func(i, j int) bool {
		a, b := cmp.Changes[i], cmp.Changes[j]
		if a.Suite != b.Suite {
			return a.Suite < b.Suite
		}
		return a.Test < b.Test
	})
	return cmp
}
