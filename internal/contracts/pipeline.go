package contracts

import (
	"encoding/json"
	"time"
)

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 스테이지 레코드, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S1 → S2 → S3 → S4 → S5 → S6 → S7
//   Game  Snapshot  Factors  Predict  Market  Enrich  Finalize

// Stage represents a pipeline stage
type Stage string

const (
	// StageGameSelect S1: 게임/베팅 타입 선택
	// 책임: 대상 게임과 베팅 타입 기록, 프로파일 스탬프
	// 위치: internal/brain/
	StageGameSelect Stage = "S1_GAME_SELECT"

	// StageSnapshot S2: 오즈 스냅샷 캡처
	// 책임: 북별 라인 수집, 평균화, 런 동안 동결
	// 위치: internal/odds/
	StageSnapshot Stage = "S2_SNAPSHOT"

	// StageFactors S3: 분석 팩터 계산
	// 책임: 폼/매치업/페이스/부상/휴식 팩터 계산, 가중치 적용
	// 위치: internal/factors/
	StageFactors Stage = "S3_FACTORS"

	// StagePredict S4: 모델 예측치 산출
	// 책임: edgeRaw → 예상 토탈/마진 변환
	// 위치: internal/engine/
	StagePredict Stage = "S4_PREDICT"

	// StageMarketAdjust S5: 마켓 엣지 반영
	// 책임: 예측 vs 동결 라인 비교, 마켓 엣지 팩터 포함 재집계
	// 위치: internal/engine/
	StageMarketAdjust Stage = "S5_MARKET_ADJUST"

	// StageEnrich S6: 리서치 보강 (선택적, 실패 비치명)
	// 책임: LLM 내러티브 생성
	// 위치: internal/research/
	StageEnrich Stage = "S6_ENRICH"

	// StageFinalize S7: 최종 판정 및 픽 생성
	// 책임: 엣지 캡, PASS/PICK 판정, 픽 영속화
	// 위치: internal/engine/ + internal/picks/
	StageFinalize Stage = "S7_FINALIZE"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S1", "S2")
func (s Stage) ShortName() string {
	switch s {
	case StageGameSelect:
		return "S1"
	case StageSnapshot:
		return "S2"
	case StageFactors:
		return "S3"
	case StagePredict:
		return "S4"
	case StageMarketAdjust:
		return "S5"
	case StageEnrich:
		return "S6"
	case StageFinalize:
		return "S7"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageGameSelect:
		return "게임/베팅 타입 선택"
	case StageSnapshot:
		return "오즈 스냅샷 캡처"
	case StageFactors:
		return "분석 팩터 계산"
	case StagePredict:
		return "모델 예측"
	case StageMarketAdjust:
		return "마켓 엣지 반영"
	case StageEnrich:
		return "리서치 보강"
	case StageFinalize:
		return "최종 판정/픽"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageGameSelect,
		StageSnapshot,
		StageFactors,
		StagePredict,
		StageMarketAdjust,
		StageEnrich,
		StageFinalize,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// RunState is the run's stage cursor. It only moves forward;
// StateFailed is terminal from any position.
type RunState string

const (
	StateCreated          RunState = "CREATED"
	StateSnapshotCaptured RunState = "SNAPSHOT_CAPTURED"
	StateFactorsComputed  RunState = "FACTORS_COMPUTED"
	StatePredicted        RunState = "PREDICTED"
	StateMarketAdjusted   RunState = "MARKET_ADJUSTED"
	StateFinalized        RunState = "FINALIZED"
	StateFailed           RunState = "FAILED"
)

// StateAfter returns the cursor value a run holds once the given stage
// has completed. StageEnrich is optional and does not advance the cursor.
func StateAfter(s Stage) RunState {
	switch s {
	case StageGameSelect:
		return StateCreated
	case StageSnapshot:
		return StateSnapshotCaptured
	case StageFactors:
		return StateFactorsComputed
	case StagePredict:
		return StatePredicted
	case StageMarketAdjust, StageEnrich:
		return StateMarketAdjusted
	case StageFinalize:
		return StateFinalized
	default:
		return StateFailed
	}
}

// RunStatus is the overall outcome of a run
type RunStatus string

const (
	RunInProgress RunStatus = "IN_PROGRESS"
	RunComplete   RunStatus = "COMPLETE"
	RunFailed     RunStatus = "FAILED"
)

// StageStatus is the outcome of a single stage execution
type StageStatus string

const (
	StageOK      StageStatus = "COMPLETED"
	StageErrored StageStatus = "FAILED"
	StageSkipped StageStatus = "SKIPPED"
)

// StageRecord is the audit-trail entry a run appends per stage
// ⭐ SSOT: 스테이지 출력은 여기 한 곳에만 저장 (재개와 리플레이 모두 이 레코드 기준)
type StageRecord struct {
	RunID      string          `json:"run_id"`
	Stage      Stage           `json:"stage"`
	Status     StageStatus     `json:"status"`
	Output     json.RawMessage `json:"output,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}
