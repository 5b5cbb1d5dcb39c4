package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/kiliankoe/insignia/internal/detect"
	"github.com/rs/zerolog/log"
)

// Runner drives a session with two independent periodic tasks: polling the
// detection status and counting down the round timer. Both feed the session
// through its own methods only.
type Runner struct {
	Session *Session
	// Source is polled for detection status. Nil disables polling, e.g. when the
	// client forwards status itself.
	Source       detect.StatusSource
	PollInterval time.Duration
	TickInterval time.Duration
	// OnChange receives a snapshot after every applied poll or counted tick.
	OnChange func(State)
}

// Run blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if r.Source != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.poll(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.countdown(ctx)
	}()
	wg.Wait()
}

func (r *Runner) poll(ctx context.Context) {
	every := r.PollInterval
	if every <= 0 {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		r.pollOnce(ctx, every)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context, timeout time.Duration) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	st, err := r.Source.Status(cctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("session", r.Session.ID).Msg("detection status poll failed")
		r.Session.OnStatusError(err)
	} else {
		r.Session.OnStatusUpdate(st)
	}
	r.notify()
}

func (r *Runner) countdown(ctx context.Context) {
	every := r.TickInterval
	if every <= 0 {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.Session.RoundChanged():
			// every round gets its full RoundSeconds
			t.Reset(every)
		case <-t.C:
			if r.Session.Tick() {
				r.notify()
			}
		}
	}
}

func (r *Runner) notify() {
	if r.OnChange != nil {
		r.OnChange(r.Session.Snapshot())
	}
}
