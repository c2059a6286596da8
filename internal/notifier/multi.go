package notifier

import (
	"context"
	"errors"
)

// MultiNotifier 将同一批提醒分发给多个通知器。
// 单个通知器失败不阻断其余通知器，错误最后合并返回。
type MultiNotifier struct {
	targets []Notifier
}

// NewMultiNotifier 创建实例，nil 的通知器会被跳过。
func NewMultiNotifier(targets ...Notifier) *MultiNotifier {
	kept := make([]Notifier, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &MultiNotifier{targets: kept}
}

// Notify 依次调用所有通知器。
func (n *MultiNotifier) Notify(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 || len(n.targets) == 0 {
		return nil
	}
	var errs []error
	for _, t := range n.targets {
		if err := t.Notify(ctx, reminders); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
