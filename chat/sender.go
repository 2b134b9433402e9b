package chat

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/onnwee/twitchplay/irc"
	"github.com/onnwee/twitchplay/telemetry"
)

// Sender throttles chat lines to one per minimum interval. Lines that arrive
// early wait in a backlog until a later Flush or until Discard when the
// connection ends. Protocol control lines never go through a Sender.
type Sender struct {
	limiter *rate.Limiter
	write   func(line string) error
	backlog []string
}

// NewSender returns a Sender writing through write. A minInterval of zero or
// less disables throttling.
func NewSender(minInterval time.Duration, write func(line string) error) *Sender {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Sender{limiter: rate.NewLimiter(limit, 1), write: write}
}

// Enqueue queues text for channel.
func (s *Sender) Enqueue(text, channel string) {
	s.backlog = append(s.backlog, irc.EncodeChat(text, channel))
	telemetry.SetSendBacklog(s.Pending())
}

// Flush writes as many queued lines as the budget allows at now, oldest first.
// A line whose write fails is consumed and its error returned; it still spends
// budget.
func (s *Sender) Flush(now time.Time) (sent int, errs []error) {
	for len(s.backlog) > 0 && s.limiter.AllowN(now, 1) {
		line := s.backlog[0]
		s.backlog[0] = ""
		s.backlog = s.backlog[1:]
		if err := s.write(line); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	if len(s.backlog) == 0 {
		s.backlog = nil
	}
	telemetry.SetSendBacklog(s.Pending())
	return sent, errs
}

// Pending reports how many lines are waiting for budget.
func (s *Sender) Pending() int { return len(s.backlog) }

// Discard empties the backlog and returns how many lines it held.
func (s *Sender) Discard() int {
	n := s.Pending()
	s.backlog = nil
	telemetry.SetSendBacklog(0)
	return n
}
