package workflow

import "time"

const (
	DefaultPollAttempts = 60
	DefaultPollInterval = 3 * time.Second
)

// PollPolicy bounds the status loop: at most MaxAttempts status calls spaced
// by Interval. There is no sleep after the last attempt.
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{MaxAttempts: DefaultPollAttempts, Interval: DefaultPollInterval}
}

// Budget is the longest the loop can spend sleeping.
func (p PollPolicy) Budget() time.Duration {
	if p.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(p.MaxAttempts-1) * p.Interval
}

func (p PollPolicy) normalized() PollPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPollAttempts
	}
	if p.Interval < 0 {
		p.Interval = 0
	}
	return p
}
