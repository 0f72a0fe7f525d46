package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

type fakeStore struct {
	records   map[string]*contracts.IdempotencyRecord
	commits   []contracts.StageCommit
	getErr    error
	commitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*contracts.IdempotencyRecord)}
}

func recordKey(runID string, stage contracts.Stage, key string) string {
	return fmt.Sprintf("%s|%s|%s", runID, stage, key)
}

func (s *fakeStore) CreateRun(ctx context.Context, run *contracts.Run) error { return nil }

func (s *fakeStore) GetRun(ctx context.Context, runID string) (*contracts.Run, error) {
	return nil, nil
}

func (s *fakeStore) ListRuns(ctx context.Context, limit int) ([]*contracts.Run, error) {
	return nil, nil
}

func (s *fakeStore) CommitStage(ctx context.Context, commit contracts.StageCommit) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits = append(s.commits, commit)
	if commit.IdemKey != "" {
		s.records[recordKey(commit.RunID, commit.Record.Stage, commit.IdemKey)] = &contracts.IdempotencyRecord{
			RunID:        commit.RunID,
			Stage:        commit.Record.Stage,
			Key:          commit.IdemKey,
			StoredStatus: string(commit.Record.Status),
			StoredBody:   commit.IdemBody,
			CreatedAt:    time.Now(),
		}
	}
	return nil
}

func (s *fakeStore) GetIdempotency(ctx context.Context, runID string, stage contracts.Stage, key string) (*contracts.IdempotencyRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.records[recordKey(runID, stage, key)], nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "console"})
}

func testKey() Key {
	return Key{RunID: "run-001", Stage: contracts.StageSnapshot, IdemKey: "idem-abc"}
}

func okCommit(runID string, stage contracts.Stage, body string) contracts.StageCommit {
	return contracts.StageCommit{
		RunID: runID,
		Record: contracts.StageRecord{
			RunID:  runID,
			Stage:  stage,
			Status: contracts.StageOK,
		},
		NewState:  contracts.StateSnapshotCaptured,
		RunStatus: contracts.RunInProgress,
		IdemBody:  json.RawMessage(body),
	}
}

func TestExecuteFirstRun(t *testing.T) {
	store := newFakeStore()
	g := NewGuard(store, testLogger())

	calls := 0
	result, err := g.Execute(context.Background(), testKey(), false, func(ctx context.Context) (contracts.StageCommit, error) {
		calls++
		return okCommit("run-001", contracts.StageSnapshot, `{"total":224.5}`), nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if result.Replayed {
		t.Error("first execution must not be a replay")
	}
	if result.Status != string(contracts.StageOK) {
		t.Errorf("Status = %s, want %s", result.Status, contracts.StageOK)
	}
	if len(store.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(store.commits))
	}
	if store.commits[0].IdemKey != "idem-abc" {
		t.Errorf("commit IdemKey = %q, want bound to the caller key", store.commits[0].IdemKey)
	}
}

func TestExecuteReplayReturnsStoredVerbatim(t *testing.T) {
	store := newFakeStore()
	g := NewGuard(store, testLogger())
	key := testKey()

	body := json.RawMessage(`{"total":224.5}`)
	store.records[recordKey(key.RunID, key.Stage, key.IdemKey)] = &contracts.IdempotencyRecord{
		RunID:        key.RunID,
		Stage:        key.Stage,
		Key:          key.IdemKey,
		StoredStatus: "COMPLETED",
		StoredBody:   body,
	}

	result, err := g.Execute(context.Background(), key, false, func(ctx context.Context) (contracts.StageCommit, error) {
		t.Fatal("compute must not run on replay")
		return contracts.StageCommit{}, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !result.Replayed {
		t.Error("Replayed = false, want true")
	}
	if result.Status != "COMPLETED" {
		t.Errorf("Status = %s, want COMPLETED", result.Status)
	}
	if !bytes.Equal(result.Body, body) {
		t.Errorf("Body = %s, want stored body verbatim", result.Body)
	}
	if len(store.commits) != 0 {
		t.Errorf("commits = %d, want 0 on replay", len(store.commits))
	}
}

func TestExecuteFailedOutcomeReplaysAsFailure(t *testing.T) {
	store := newFakeStore()
	g := NewGuard(store, testLogger())
	key := testKey()

	store.records[recordKey(key.RunID, key.Stage, key.IdemKey)] = &contracts.IdempotencyRecord{
		RunID:        key.RunID,
		Stage:        key.Stage,
		Key:          key.IdemKey,
		StoredStatus: "FAILED",
		StoredBody:   json.RawMessage(`{"err_kind":"PRECONDITION_FAILED","err_msg":"no books"}`),
	}

	result, err := g.Execute(context.Background(), key, false, func(ctx context.Context) (contracts.StageCommit, error) {
		t.Fatal("a stored failure must not re-execute under the same key")
		return contracts.StageCommit{}, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Replayed || result.Status != "FAILED" {
		t.Errorf("result = %+v, want replayed FAILED", result)
	}
}

func TestExecuteSameKeyTwice(t *testing.T) {
	store := newFakeStore()
	g := NewGuard(store, testLogger())
	key := testKey()

	compute := func(ctx context.Context) (contracts.StageCommit, error) {
		return okCommit(key.RunID, key.Stage, `{"total":224.5}`), nil
	}

	first, err := g.Execute(context.Background(), key, false, compute)
	if err != nil {
		t.Fatalf("Execute(first) error = %v", err)
	}
	second, err := g.Execute(context.Background(), key, false, compute)
	if err != nil {
		t.Fatalf("Execute(second) error = %v", err)
	}

	if second.Status != first.Status || !bytes.Equal(second.Body, first.Body) {
		t.Errorf("replay diverged: first %s %s, second %s %s",
			first.Status, first.Body, second.Status, second.Body)
	}
	if !second.Replayed {
		t.Error("second execution must be a replay")
	}
	if len(store.commits) != 1 {
		t.Errorf("commits = %d, want exactly 1 for two calls", len(store.commits))
	}
}

func TestExecuteDryRunSkipsStorage(t *testing.T) {
	store := newFakeStore()
	g := NewGuard(store, testLogger())
	key := testKey()

	// Even a stored record is ignored in dry-run mode
	store.records[recordKey(key.RunID, key.Stage, key.IdemKey)] = &contracts.IdempotencyRecord{
		StoredStatus: "COMPLETED",
		StoredBody:   json.RawMessage(`{"stored":true}`),
	}

	calls := 0
	result, err := g.Execute(context.Background(), key, true, func(ctx context.Context) (contracts.StageCommit, error) {
		calls++
		return okCommit(key.RunID, key.Stage, `{"fresh":true}`), nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if result.Replayed {
		t.Error("dry run must never replay")
	}
	if len(store.commits) != 0 {
		t.Errorf("commits = %d, want 0 in dry-run mode", len(store.commits))
	}
}

func TestExecuteEmptyKeyStillCommits(t *testing.T) {
	store := newFakeStore()
	g := NewGuard(store, testLogger())
	key := Key{RunID: "run-001", Stage: contracts.StageSnapshot}

	result, err := g.Execute(context.Background(), key, false, func(ctx context.Context) (contracts.StageCommit, error) {
		return okCommit(key.RunID, key.Stage, `{}`), nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Replayed {
		t.Error("keyless execution must not replay")
	}
	if len(store.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(store.commits))
	}
	if store.commits[0].IdemKey != "" {
		t.Errorf("commit IdemKey = %q, want empty", store.commits[0].IdemKey)
	}
}

func TestExecuteComputeFailureStillCommits(t *testing.T) {
	store := newFakeStore()
	g := NewGuard(store, testLogger())
	stageErr := contracts.PreconditionFailed(contracts.StageSnapshot, "no books")

	commit := contracts.StageCommit{
		RunID: "run-001",
		Record: contracts.StageRecord{
			RunID:  "run-001",
			Stage:  contracts.StageSnapshot,
			Status: contracts.StageErrored,
			Error:  stageErr.Error(),
		},
		NewState:  contracts.StateFailed,
		RunStatus: contracts.RunFailed,
		ErrKind:   contracts.KindPreconditionFailed,
		ErrMsg:    "no books",
		IdemBody:  json.RawMessage(`{"err_kind":"PRECONDITION_FAILED"}`),
	}

	result, err := g.Execute(context.Background(), testKey(), false, func(ctx context.Context) (contracts.StageCommit, error) {
		return commit, stageErr
	})

	if !errors.Is(err, stageErr) {
		t.Errorf("error = %v, want the compute error surfaced", err)
	}
	if result == nil || result.Status != string(contracts.StageErrored) {
		t.Errorf("result = %+v, want FAILED status", result)
	}
	if len(store.commits) != 1 {
		t.Errorf("commits = %d, want 1 (failures are stored for replay)", len(store.commits))
	}
}

func TestExecuteCommitError(t *testing.T) {
	store := newFakeStore()
	store.commitErr = errors.New("tx aborted")
	g := NewGuard(store, testLogger())

	_, err := g.Execute(context.Background(), testKey(), false, func(ctx context.Context) (contracts.StageCommit, error) {
		return okCommit("run-001", contracts.StageSnapshot, `{}`), nil
	})
	if err == nil {
		t.Fatal("expected commit failure to surface")
	}
	if !errors.Is(err, store.commitErr) {
		t.Errorf("error = %v, want wrapped commit error", err)
	}
}

func TestExecuteLookupError(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection reset")
	g := NewGuard(store, testLogger())

	_, err := g.Execute(context.Background(), testKey(), false, func(ctx context.Context) (contracts.StageCommit, error) {
		t.Fatal("compute must not run when the lookup fails")
		return contracts.StageCommit{}, nil
	})
	if err == nil {
		t.Fatal("expected lookup failure to surface")
	}
}
