package order

import (
	"fmt"
	"sync"
)

// StateTransition 状态转换。
type StateTransition struct {
	From Status
	To   Status
}

// StateMachine 订单状态机，只允许登记过的合法转换。
type StateMachine struct {
	transitions map[StateTransition]bool
	mu          sync.RWMutex
}

// NewStateMachine 创建状态机并登记全部合法转换。
func NewStateMachine() *StateMachine {
	sm := &StateMachine{transitions: make(map[StateTransition]bool)}
	sm.initializeTransitions()
	return sm
}

func (sm *StateMachine) initializeTransitions() {
	legal := []StateTransition{
		// PENDING：接受前的本地状态。
		{StatusPending, StatusSubmitted},
		{StatusPending, StatusRejected},

		// SUBMITTED：KIS 已接受。
		{StatusSubmitted, StatusSubmitted}, // 체결 조회에서 변동 없음
		{StatusSubmitted, StatusPartial},
		{StatusSubmitted, StatusFilled},
		{StatusSubmitted, StatusCanceled},
		{StatusSubmitted, StatusRejected},

		// PARTIALLY_FILLED。
		{StatusPartial, StatusPartial},
		{StatusPartial, StatusFilled},
		{StatusPartial, StatusCanceled},
	}
	for _, t := range legal {
		sm.transitions[t] = true
	}
}

// CanTransition 判断转换是否合法。
func (sm *StateMachine) CanTransition(from, to Status) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.transitions[StateTransition{From: from, To: to}]
}

// Transition 校验并返回目标状态；非法转换报错。
func (sm *StateMachine) Transition(from, to Status) (Status, error) {
	if !sm.CanTransition(from, to) {
		return from, fmt.Errorf("illegal order transition %s -> %s", from, to)
	}
	return to, nil
}
