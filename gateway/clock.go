package gateway

import "time"

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 进程默认时钟。
var SystemClock Clock = systemClock{}
