// Package session 实现会话状态机与认证服务。
//
// 状态图：
//
//	SignedOut ──提交凭证──► NeedsDailySurvey / Dashboard（当日是否已提交问卷）
//	    │
//	    └──邮箱未注册──► NeedsAccount ──注册成功──► NeedsOnboarding ──档案──► NeedsDailySurvey ──问卷──► Dashboard
//
// 任何已认证状态在会话失效时回到 SignedOut，没有终结状态。
package session

import (
	"errors"
	"fmt"
)

// State 表示用户当前应看到的页面。
type State string

const (
	StateSignedOut        State = "signed_out"
	StateNeedsAccount     State = "needs_account"
	StateNeedsOnboarding  State = "needs_onboarding"
	StateNeedsDailySurvey State = "needs_daily_survey"
	StateDashboard        State = "dashboard"
)

// Event 表示触发状态迁移的动作。
type Event string

const (
	EventSubmitCredentials    Event = "submit_credentials"
	EventSubmitNewCredentials Event = "submit_new_credentials"
	EventSubmitProfile        Event = "submit_profile"
	EventSubmitSurvey         Event = "submit_survey"
	EventSessionInvalidated   Event = "session_invalidated"
)

var (
	// ErrAuthFailure 表示密码错误，可恢复，状态保持不变。
	ErrAuthFailure = errors.New("authentication failed")
	// ErrConflict 表示邮箱已注册或档案已存在，可恢复。
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput 表示提交字段校验失败，可恢复。
	ErrInvalidInput = errors.New("invalid input")
)

// Guards 集合状态迁移需要的判定结果。
// SubmittedToday 在登录迁移与问卷迁移中必须来自同一个判定，
// 避免重复询问或跳过当日问卷。
type Guards struct {
	EmailFound      bool
	PasswordMatches bool
	PasswordsMatch  bool
	EmailUnused     bool
	ProfileExists   bool
	FieldsValid     bool
	SubmittedToday  bool
}

// Next 纯状态迁移函数。返回错误时状态保持 current 不变；
// 这里只产生可恢复的校验类错误，存储故障由调用方直接上抛。
func Next(current State, event Event, g Guards) (State, error) {
	if event == EventSessionInvalidated {
		return StateSignedOut, nil
	}

	switch current {
	case StateSignedOut:
		if event != EventSubmitCredentials {
			return current, fmt.Errorf("event %s not allowed in state %s", event, current)
		}
		if !g.EmailFound {
			return StateNeedsAccount, nil
		}
		if !g.PasswordMatches {
			return current, ErrAuthFailure
		}
		return afterAuthenticated(g), nil

	case StateNeedsAccount:
		if event != EventSubmitNewCredentials {
			return current, fmt.Errorf("event %s not allowed in state %s", event, current)
		}
		if !g.PasswordsMatch {
			return current, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
		}
		if !g.EmailUnused {
			return current, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return StateNeedsOnboarding, nil

	case StateNeedsOnboarding:
		if event != EventSubmitProfile {
			return current, fmt.Errorf("event %s not allowed in state %s", event, current)
		}
		if !g.FieldsValid {
			return current, fmt.Errorf("%w: invalid profile fields", ErrInvalidInput)
		}
		return StateNeedsDailySurvey, nil

	case StateNeedsDailySurvey:
		if event != EventSubmitSurvey {
			return current, fmt.Errorf("event %s not allowed in state %s", event, current)
		}
		if !g.FieldsValid {
			return current, fmt.Errorf("%w: invalid survey fields", ErrInvalidInput)
		}
		return StateDashboard, nil

	case StateDashboard:
		return current, fmt.Errorf("event %s not allowed in state %s", event, current)
	}

	return current, fmt.Errorf("unknown state %s", current)
}

// afterAuthenticated 登录成功后的落点：当日已提交问卷直接进仪表盘，
// 否则先做问卷。与 NeedsDailySurvey→Dashboard 共用同一判定。
func afterAuthenticated(g Guards) State {
	if g.SubmittedToday {
		return StateDashboard
	}
	return StateNeedsDailySurvey
}
