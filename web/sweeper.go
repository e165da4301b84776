package web

import (
	"time"

	"github.com/go-co-op/gocron"
)

// StartSweeper evicts idle raffles every interval until the scheduler is stopped.
func StartSweeper(hubs *Hubs, interval, idle time.Duration) (*gocron.Scheduler, error) {
	seconds := uint64(interval / time.Second)
	if seconds == 0 {
		seconds = 1
	}

	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(seconds).Seconds().Do(func() {
		hubs.Sweep(idle)
	})
	if err != nil {
		return nil, err
	}

	s.StartAsync()
	return s, nil
}
