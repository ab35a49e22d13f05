package notifier

// TextNotifier 是监控侧的最小推送接口。
// 刻意只留一个方法，让漂移循环可以在不认识具体实现的情况下推送警报。
type TextNotifier interface {
	SendText(text string) error
}

// Nop 空实现。未配置推送渠道时监控循环照常运行。
type Nop struct{}

func (Nop) SendText(string) error { return nil }
