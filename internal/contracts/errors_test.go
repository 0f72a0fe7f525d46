package contracts

import (
	"errors"
	"fmt"
	"testing"
)

func TestStageError_KindHelpers(t *testing.T) {
	err := PreconditionFailed(StageSnapshot, "no books reported %s", "totals")

	if !IsKind(err, KindPreconditionFailed) {
		t.Error("IsKind(KindPreconditionFailed) = false, want true")
	}
	if IsKind(err, KindValidation) {
		t.Error("IsKind(KindValidation) = true, want false")
	}
	if got := KindOf(err); got != KindPreconditionFailed {
		t.Errorf("KindOf() = %s, want %s", got, KindPreconditionFailed)
	}
}

func TestStageError_SurvivesWrapping(t *testing.T) {
	inner := ExternalProviderError(StageEnrich, "research call failed", errors.New("boom"))
	wrapped := fmt.Errorf("S6 failed: %w", inner)

	if !IsKind(wrapped, KindExternalProvider) {
		t.Error("kind lost through fmt.Errorf wrapping")
	}
	if !IsRetryable(wrapped) {
		t.Error("provider error should be retryable")
	}
}

func TestIsRetryable_OnlyProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"provider error", ExternalProviderError(StageSnapshot, "timeout", errors.New("ctx")), true},
		{"configuration error", ConfigurationError(StageFactors, "no weights"), false},
		{"insufficient signal", InsufficientSignal(StageFactors, "empty factor set"), false},
		{"validation error", ValidationError(StageMarketAdjust, "total line must be positive"), false},
		{"plain error", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStageError_WithStage(t *testing.T) {
	base := InsufficientSignal("", "empty factor set")
	pinned := base.WithStage(StagePredict)

	if pinned.Stage != StagePredict {
		t.Errorf("WithStage stage = %s, want %s", pinned.Stage, StagePredict)
	}
	if base.Stage != "" {
		t.Error("WithStage mutated the original error")
	}
	if pinned.Kind != KindInsufficientSignal {
		t.Error("WithStage changed the kind")
	}
}

func TestStateAfter(t *testing.T) {
	tests := []struct {
		stage Stage
		want  RunState
	}{
		{StageGameSelect, StateCreated},
		{StageSnapshot, StateSnapshotCaptured},
		{StageFactors, StateFactorsComputed},
		{StagePredict, StatePredicted},
		{StageMarketAdjust, StateMarketAdjusted},
		{StageEnrich, StateMarketAdjusted}, // enrichment never advances the cursor
		{StageFinalize, StateFinalized},
	}

	for _, tt := range tests {
		if got := StateAfter(tt.stage); got != tt.want {
			t.Errorf("StateAfter(%s) = %s, want %s", tt.stage, got, tt.want)
		}
	}
}
