// Package scheduler runs periodic housekeeping for the chat service.
package scheduler

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/session"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Sweeper is the running inactivity sweep. A closed session loses its AI
// conversation but keeps its triage history; the sweep invokes the same
// End transition an explicit close would.
type Sweeper struct {
	c *cron.Cron
}

// Opts configures the sweep.
type Opts struct {
	DB       *gorm.DB
	Events   *events.Emitter
	Schedule string        // 5-field cron expression, e.g. "*/2 * * * *"
	IdleFor  time.Duration // sessions idle this long are abandoned
	Out      io.Writer     // optional progress output
}

// Start launches the inactivity sweep on its schedule.
func Start(opts Opts) (*Sweeper, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("scheduler: db is required")
	}
	if opts.IdleFor <= 0 {
		return nil, fmt.Errorf("scheduler: idle duration is required")
	}
	if _, err := cronParser.Parse(opts.Schedule); err != nil {
		return nil, fmt.Errorf("scheduler: parse schedule %q: %w", opts.Schedule, err)
	}

	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(opts.Schedule, func() {
		closed, err := session.CloseInactive(opts.DB, opts.Events, opts.IdleFor)
		if err != nil {
			log.Printf("scheduler: close inactive sessions: %v", err)
			return
		}
		if closed > 0 && opts.Out != nil {
			fmt.Fprintf(opts.Out, "closed %d inactive session(s)\n", closed)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: add sweep job: %w", err)
	}

	c.Start()
	return &Sweeper{c: c}, nil
}

// Stop halts the sweep, waiting for an in-flight run to finish.
func (s *Sweeper) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
}
