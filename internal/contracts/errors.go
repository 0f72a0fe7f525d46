package contracts

import (
	"errors"
	"fmt"
)

// ErrorKind classifies run failures. Kinds are part of the stored run
// record and the API surface, so the names are wire-stable.
type ErrorKind string

const (
	// KindPreconditionFailed: 필요한 외부 입력이 없음 (예: 마켓 라인 0개 북)
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	// KindConfiguration: 프로파일/가중치 설정 불가 상태. 기본값으로 덮지 않고 즉시 실패
	KindConfiguration ErrorKind = "CONFIGURATION_ERROR"
	// KindInsufficientSignal: 집계할 팩터가 하나도 없음
	KindInsufficientSignal ErrorKind = "INSUFFICIENT_SIGNAL"
	// KindExternalProvider: 외부 데이터/LLM 공급자 오류 (유일하게 재시도 가능)
	KindExternalProvider ErrorKind = "EXTERNAL_PROVIDER"
	// KindValidation: 입력 값이 도메인 규칙 위반 (예: 토탈 라인 ≤ 0)
	KindValidation ErrorKind = "VALIDATION"
)

// StageError is the structured failure a pipeline stage reports.
// It carries the kind, the stage it happened in, and a human message;
// the wrapped cause stays reachable through errors.Unwrap.
type StageError struct {
	Kind  ErrorKind
	Stage Stage
	Msg   string
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Stage.ShortName(), e.Msg, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Stage.ShortName(), e.Msg)
}

// Unwrap returns the wrapped cause
func (e *StageError) Unwrap() error {
	return e.Err
}

// PreconditionFailed builds a KindPreconditionFailed stage error
func PreconditionFailed(stage Stage, format string, args ...interface{}) *StageError {
	return &StageError{Kind: KindPreconditionFailed, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError builds a KindConfiguration stage error
func ConfigurationError(stage Stage, format string, args ...interface{}) *StageError {
	return &StageError{Kind: KindConfiguration, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// InsufficientSignal builds a KindInsufficientSignal stage error
func InsufficientSignal(stage Stage, format string, args ...interface{}) *StageError {
	return &StageError{Kind: KindInsufficientSignal, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// ExternalProviderError builds a KindExternalProvider stage error
// wrapping the provider's cause.
func ExternalProviderError(stage Stage, msg string, cause error) *StageError {
	return &StageError{Kind: KindExternalProvider, Stage: stage, Msg: msg, Err: cause}
}

// ValidationError builds a KindValidation stage error
func ValidationError(stage Stage, format string, args ...interface{}) *StageError {
	return &StageError{Kind: KindValidation, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// WithStage returns a copy of the error bound to a stage. Pure engine
// code raises stage-less errors; the orchestrator pins them here.
func (e *StageError) WithStage(stage Stage) *StageError {
	out := *e
	out.Stage = stage
	return &out
}

// KindOf extracts the error kind, or "" for non-stage errors.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether a retry with the same inputs could
// plausibly succeed. Only provider failures qualify; everything else
// is deterministic and would fail identically.
func IsRetryable(err error) bool {
	return IsKind(err, KindExternalProvider)
}
