// Package notifier 负责提醒当天尚未提交问卷的用户。
package notifier

import "context"

// Reminder 表示一条待发送的问卷提醒。
type Reminder struct {
	Email string
	Day   string
}

// Notifier 提供统一提醒接口。
type Notifier interface {
	Notify(ctx context.Context, reminders []Reminder) error
}
