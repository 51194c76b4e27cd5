// Package state 数据刷新生命周期状态机
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 刷新状态常量
const (
	StateIdle     = "idle"
	StateFetching = "fetching"
	StateReady    = "ready"
	StateFailed   = "failed"
)

// 事件常量
const (
	EventStartFetch     = "start_fetch"
	EventFetchSucceeded = "fetch_succeeded"
	EventFetchFailed    = "fetch_failed"
)

// RefreshState 刷新状态
type RefreshState struct {
	CurrentState string     `json:"state"`
	Since        time.Time  `json:"since"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	Refreshes    int        `json:"refreshes"`
	Failures     int        `json:"failures"`
}

// Machine 刷新状态机
type Machine struct {
	mu            sync.RWMutex
	fsm           *fsm.FSM
	state         *RefreshState
	onStateChange func(from, to string)
}

// NewMachine 创建状态机，初始状态为 idle
func NewMachine(onStateChange func(from, to string)) *Machine {
	m := &Machine{
		onStateChange: onStateChange,
		state: &RefreshState{
			CurrentState: StateIdle,
			Since:        time.Now(),
		},
	}

	m.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			// 任何空闲状态都可以开始刷新
			{Name: EventStartFetch, Src: []string{StateIdle, StateReady, StateFailed}, Dst: StateFetching},

			// 从 fetching 状态
			{Name: EventFetchSucceeded, Src: []string{StateFetching}, Dst: StateReady},
			{Name: EventFetchFailed, Src: []string{StateFetching}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// CurrentState 获取当前状态
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// GetState 获取完整状态（副本）
func (m *Machine) GetState() RefreshState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stateCopy := *m.state
	stateCopy.CurrentState = m.fsm.Current()
	return stateCopy
}

// Begin 开始一次刷新，已在刷新中时返回错误
func (m *Machine) Begin() error {
	return m.trigger(EventStartFetch, nil)
}

// Succeed 刷新成功
func (m *Machine) Succeed() error {
	return m.trigger(EventFetchSucceeded, func(s *RefreshState) {
		now := s.Since
		s.LastSuccess = &now
		s.LastError = ""
		s.Refreshes++
	})
}

// Fail 刷新失败，记录错误
func (m *Machine) Fail(cause error) error {
	return m.trigger(EventFetchFailed, func(s *RefreshState) {
		if cause != nil {
			s.LastError = cause.Error()
		}
		s.Failures++
	})
}

// CanTransition 检查是否可以转换
func (m *Machine) CanTransition(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}

func (m *Machine) trigger(event string, update func(s *RefreshState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.state.CurrentState = m.fsm.Current()
	m.state.Since = time.Now()
	if update != nil {
		update(m.state)
	}
	return nil
}
