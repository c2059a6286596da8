package notifier

import (
	"context"
	"log"
	"os"
)

// LogNotifier 仅打印提醒，适合开发阶段使用。
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier 创建日志通知器，未提供 logger 时默认输出到标准输出。
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(os.Stdout, "[notify] ", log.LstdFlags)
	}
	return &LogNotifier{logger: logger}
}

// Notify 逐条打印提醒信息。
func (n LogNotifier) Notify(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	for _, r := range reminders {
		n.logger.Printf("survey reminder: %s (%s)", r.Email, r.Day)
	}
	return nil
}
