package gateway

import (
	"errors"
	"math/rand"
	"time"

	"github.com/qyzk/ohno/internal/logging"
)

// ErrZombied reports that no Heartbeat-ACK arrived between two consecutive
// scheduled ticks: the transport is open but the peer is silently dead.
var ErrZombied = errors.New("heartbeat ack missed, connection zombied")

// maxJitterFraction bounds the client-side jitter added to the server's
// heartbeat interval. Kept small so liveness detection stays timely.
const maxJitterFraction = 0.1

// Scheduler owns the recurring heartbeat timer for one connection. The
// engine selects on C() and calls Tick when the timer fires, so all
// scheduler state lives on the engine's goroutine and needs no locking.
type Scheduler struct {
	send func() error
	log  *logging.Logger

	interval   time.Duration
	timer      *time.Timer
	ackPending bool
	stopped    bool
}

// NewScheduler creates a scheduler that emits heartbeats through send.
func NewScheduler(send func() error, log *logging.Logger) *Scheduler {
	return &Scheduler{send: send, log: log}
}

// Start arms the timer at the server-dictated interval.
func (s *Scheduler) Start(interval time.Duration) {
	s.interval = interval
	s.ackPending = false
	s.stopped = false
	s.timer = time.NewTimer(s.nextDelay())
	s.log.Debug().Dur("interval", interval).Msg("heartbeat started")
}

// C returns the tick channel. It is nil before Start and after Stop; a nil
// channel never fires in a select.
func (s *Scheduler) C() <-chan time.Time {
	if s.timer == nil || s.stopped {
		return nil
	}
	return s.timer.C
}

// Tick handles a timer fire. If the previous heartbeat is still
// unacknowledged the connection is declared zombied and ErrZombied is
// returned; the scheduler does not retry heartbeats on a suspect
// connection. Otherwise a new heartbeat is sent, the ack-pending flag is
// armed, and the timer is re-armed.
func (s *Scheduler) Tick() error {
	if s.stopped {
		return nil
	}
	if s.ackPending {
		return ErrZombied
	}
	return s.beat()
}

// Request sends an immediate heartbeat outside the regular cadence, as the
// server asks for with an inbound Heartbeat opcode.
func (s *Scheduler) Request() error {
	if s.stopped {
		return nil
	}
	return s.beat()
}

func (s *Scheduler) beat() error {
	if err := s.send(); err != nil {
		return err
	}
	s.ackPending = true
	s.Reset()
	return nil
}

// Ack confirms a Heartbeat-ACK and re-arms the timer without changing the
// interval.
func (s *Scheduler) Ack() {
	if s.stopped {
		return
	}
	s.ackPending = false
	s.Reset()
}

// Reset re-arms the timer at the current interval plus jitter.
func (s *Scheduler) Reset() {
	if s.timer == nil || s.stopped {
		return
	}
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.timer.Reset(s.nextDelay())
}

// Stop cancels any pending tick. Idempotent: safe to call repeatedly and
// after the timer has already fired.
func (s *Scheduler) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	if s.timer != nil {
		if !s.timer.Stop() {
			select {
			case <-s.timer.C:
			default:
			}
		}
	}
	s.log.Debug().Msg("heartbeat stopped")
}

// Stopped reports whether the scheduler has been stopped.
func (s *Scheduler) Stopped() bool { return s.stopped }

func (s *Scheduler) nextDelay() time.Duration {
	max := int64(float64(s.interval) * maxJitterFraction)
	if max <= 0 {
		return s.interval
	}
	return s.interval + time.Duration(rand.Int63n(max))
}
