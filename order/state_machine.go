package order

import (
	"fmt"
	"sort"
)

// StateTransition 状态转换
type StateTransition struct {
	From State
	To   State
}

// StateMachine 表单生命周期的合法转换表
type StateMachine struct {
	transitions map[StateTransition]bool
}

// NewStateMachine 创建新的状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[StateTransition]bool),
	}
	sm.initializeTransitions()
	return sm
}

func (sm *StateMachine) initializeTransitions() {
	legalTransitions := []StateTransition{
		{StateForm, StateConfirm},
		{StateForm, StateSending},

		{StateConfirm, StateForm},
		{StateConfirm, StateSending},

		{StateSending, StateSent},
		{StateSending, StateError},
		// 发送中用户离开页面
		{StateSending, StateForm},

		// 终态只能显式重置
		{StateSent, StateForm},
		{StateError, StateForm},
	}

	for _, t := range legalTransitions {
		sm.transitions[t] = true
	}
}

// ValidateTransition 验证状态转换是否合法，相同状态视为幂等。
func (sm *StateMachine) ValidateTransition(from, to State) error {
	if from == to {
		return nil
	}
	if !sm.transitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}
	return nil
}

// AllowedTransitions 返回当前状态所有合法的目标状态（按名称排序）
func (sm *StateMachine) AllowedTransitions(current State) []State {
	allowed := make([]State, 0)
	for transition := range sm.transitions {
		if transition.From == current {
			allowed = append(allowed, transition.To)
		}
	}
	sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })
	return allowed
}

// IsFinalState 判断是否是提交结果的终态
func (sm *StateMachine) IsFinalState(s State) bool {
	return s == StateSent || s == StateError
}

// IsEditable 表单字段是否仍可编辑
func (sm *StateMachine) IsEditable(s State) bool {
	return s == StateForm
}
