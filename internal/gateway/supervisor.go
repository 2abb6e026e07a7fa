package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/qyzk/ohno/internal/logging"
)

// GatewayInfo is the one-shot bootstrap result consumed at process start.
type GatewayInfo struct {
	URL               string
	Shards            int
	SessionsTotal     int
	SessionsRemaining int
	ResetAfter        time.Duration
}

// BootstrapFunc fetches gateway connection info over the HTTP API.
type BootstrapFunc func(ctx context.Context) (GatewayInfo, error)

// SupervisorConfig assembles the outer restart loop.
type SupervisorConfig struct {
	Token    string
	Intents  int
	Version  int    // gateway protocol version for the URL query
	Encoding string // "json"

	Cache     Cache
	Bootstrap BootstrapFunc
	Dial      Dialer
	Handler   EventHandler
	Log       *logging.Logger

	DialTimeout  time.Duration
	HelloTimeout time.Duration
	AuthTimeout  time.Duration

	// RetryDelay spaces out reconnect attempts that ended in failure, so a
	// persistently unreachable gateway cannot induce a tight dial loop.
	// Clean server-requested reconnects are not delayed.
	RetryDelay time.Duration
}

const defaultRetryDelay = 2 * time.Second

// Supervisor owns the outer restart loop: it bootstraps once, then rebuilds
// a fresh engine per connection attempt until the context is cancelled or a
// process-fatal failure occurs.
type Supervisor struct {
	cfg SupervisorConfig
	log *logging.Logger
}

// NewSupervisor creates a supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Supervisor{cfg: cfg, log: cfg.Log.Sub("supervisor")}
}

// Run blocks until operator stop (nil) or a process-fatal failure. The
// session-start budget is checked before any connection attempt; an
// exhausted budget aborts startup so the operator can wait it out.
func (s *Supervisor) Run(ctx context.Context) error {
	info, err := s.cfg.Bootstrap(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return NewFailure(KindBootstrap, fmt.Errorf("fetching gateway info: %w", err))
	}
	if info.SessionsRemaining == 0 {
		return NewFailure(KindSessionBudget,
			fmt.Errorf("session start budget exhausted, retry after %s", info.ResetAfter))
	}
	s.log.Info().
		Str("url", info.URL).
		Int("sessionsRemaining", info.SessionsRemaining).
		Int("sessionsTotal", info.SessionsTotal).
		Msg("gateway info fetched")

	sess, err := s.cfg.Cache.Load()
	if err != nil {
		return NewFailure(KindBootstrap, fmt.Errorf("loading session cache: %w", err))
	}
	if sess.CanResume() {
		s.log.Info().Str("session", sess.ID).Int64("seq", *sess.LastSeq).
			Msg("cached session found, will attempt resume")
	}

	baseURL := info.URL
	dialURL := baseURL

	for {
		if ctx.Err() != nil {
			return nil
		}

		eng := NewEngine(EngineConfig{
			Token:        s.cfg.Token,
			Intents:      s.cfg.Intents,
			URL:          gatewayURL(dialURL, s.cfg.Version, s.cfg.Encoding),
			Session:      sess,
			Cache:        s.cfg.Cache,
			Dial:         s.cfg.Dial,
			Handler:      s.cfg.Handler,
			Log:          s.cfg.Log,
			DialTimeout:  s.cfg.DialTimeout,
			HelloTimeout: s.cfg.HelloTimeout,
			AuthTimeout:  s.cfg.AuthTimeout,
		})

		outcome, err := eng.Run(ctx)
		sess = outcome.Session
		if err != nil {
			if kind, ok := KindOf(err); ok {
				s.log.Warn().Str("kind", kind.String()).Err(err).Msg("gateway connection ended")
			} else {
				s.log.Warn().Err(err).Msg("gateway connection ended")
			}
		}

		if !outcome.Reconnect {
			s.log.Info().Msg("gateway stopped")
			return nil
		}

		switch {
		case outcome.RefreshURL:
			// The old URL may be stale after a server-requested reconnect.
			refreshed, rerr := s.cfg.Bootstrap(ctx)
			if rerr != nil {
				s.log.Warn().Err(rerr).Msg("bootstrap refresh failed, keeping previous gateway url")
			} else {
				baseURL = refreshed.URL
			}
			dialURL = baseURL
		case sess.CanResume() && outcome.ResumeURL != "":
			dialURL = outcome.ResumeURL
		default:
			dialURL = baseURL
		}

		wait := outcome.Wait
		if wait == 0 && err != nil {
			wait = s.cfg.RetryDelay
		}
		if wait > 0 {
			s.log.Debug().Dur("wait", wait).Msg("delaying reconnect")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
		}

		s.log.Info().Msg("reconnecting to gateway")
	}
}
