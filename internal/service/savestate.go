package service

import (
	"errors"
	"fmt"
	"surge_detector/internal/models"
	"sync"
)

// SaveState 저장 확인 흐름의 상태
type SaveState string

const (
	StateIdle        SaveState = "IDLE"
	StateChecking    SaveState = "CHECKING"
	StateConflict    SaveState = "CONFLICT"
	StateOverwriting SaveState = "OVERWRITING"
	StateDone        SaveState = "DONE"
)

// SaveFlow 저장-충돌-덮어쓰기 확인 흐름을 명시적 상태 기계로 관리한다.
// CONFLICT 상태에서는 호출자의 결정(ConfirmOverwrite / Cancel)을 기다린다.
type SaveFlow struct {
	mu         sync.Mutex
	store      *Store
	state      SaveState
	pending    []models.StockAnalysis
	savedCount int
}

// NewSaveFlow 저장 흐름 생성(초기 상태 IDLE)
func NewSaveFlow(store *Store) *SaveFlow {
	return &SaveFlow{
		store: store,
		state: StateIdle,
	}
}

// State 현재 상태 반환
func (f *SaveFlow) State() SaveState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SavedCount 마지막 저장 성공 시의 행 수
func (f *SaveFlow) SavedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.savedCount
}

// Begin 저장 시도. 같은 날짜 데이터가 이미 있으면 CONFLICT로 전이하고
// 결과를 보류한다. 충돌이 없으면 바로 저장하고 DONE.
func (f *SaveFlow) Begin(results []models.StockAnalysis) (SaveState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = StateChecking
	n, err := f.store.Save(results, false)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			f.state = StateConflict
			f.pending = results
			return f.state, nil
		}
		f.state = StateIdle
		return f.state, err
	}

	f.state = StateDone
	f.savedCount = n
	f.pending = nil
	return f.state, nil
}

// ConfirmOverwrite CONFLICT 상태에서 덮어쓰기를 확정한다.
func (f *SaveFlow) ConfirmOverwrite() (SaveState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateConflict {
		return f.state, fmt.Errorf("덮어쓰기 확인 대기 상태가 아닙니다: %s", f.state)
	}

	f.state = StateOverwriting
	n, err := f.store.Save(f.pending, true)
	if err != nil {
		f.state = StateIdle
		f.pending = nil
		return f.state, err
	}

	f.state = StateDone
	f.savedCount = n
	f.pending = nil
	return f.state, nil
}

// Cancel 보류 중인 저장을 취소하고 IDLE로 복귀한다.
func (f *SaveFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateIdle
	f.pending = nil
}
