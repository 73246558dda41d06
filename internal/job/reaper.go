package job

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/xduraid/xd-shell/internal/sys"
)

// Reaper drains child status changes on SIGCHLD and feeds them into
// the table. It is the only caller of wait in the whole shell, which
// keeps every observable state change in reaper-then-synchronous-merge
// order: foreground waits block on the table's condition variable
// until the reaper has applied the terminating event.
type Reaper struct {
	table *Table
	ch    chan os.Signal
	done  chan struct{}
}

// StartReaper subscribes to SIGCHLD and starts the drain loop.
func StartReaper(t *Table) *Reaper {
	r := &Reaper{
		table: t,
		ch:    make(chan os.Signal, 64),
		done:  make(chan struct{}),
	}
	signal.Notify(r.ch, unix.SIGCHLD)
	go r.loop()
	return r
}

// Stop unsubscribes and terminates the drain loop. The table must not
// be used for new jobs afterwards.
func (r *Reaper) Stop() {
	signal.Stop(r.ch)
	close(r.done)
}

func (r *Reaper) loop() {
	// initial pass picks up anything delivered before Notify
	r.drain()
	for {
		select {
		case <-r.ch:
			r.drain()
		case <-r.done:
			return
		}
	}
}

// drain loops a non-blocking wait until no child has a pending status
// change.
func (r *Reaper) drain() {
	for {
		pid, ws, err := sys.WaitAny()
		if err != nil {
			if !errors.Is(err, unix.ECHILD) {
				slog.Warn("reap failed", "err", err)
			}
			return
		}
		if pid <= 0 {
			return
		}
		r.table.Apply(pid, ws)
	}
}
