package alert

import (
	"go.uber.org/zap"

	"offer-desk/order"
)

// Sink 把表单生命周期的通知转成告警
type Sink struct {
	mgr    *Manager
	logger *zap.Logger
}

func NewSink(mgr *Manager, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{mgr: mgr, logger: logger}
}

// Notify 实现 order.Notifier；发送失败只记日志
func (s *Sink) Notify(n order.Notification) {
	level := LevelInfo
	if n.Type == order.NotificationError {
		level = LevelError
	}
	err := s.mgr.SendAlert(Alert{
		Level:   level,
		Title:   n.Title,
		Message: n.Info,
		Fields:  map[string]interface{}{"type": string(n.Type)},
	})
	if err != nil {
		s.logger.Warn("notification dropped", zap.String("title", n.Title), zap.Error(err))
	}
}
