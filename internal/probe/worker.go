package probe

import (
	"context"
	"log"
	"net/http"
	"time"

	"socdash/internal/config"
	"socdash/internal/models"
	"socdash/internal/store"
)

// Worker polls the monitored target and records one Up/Down sample per tick.
// It stands in for the external uptime sensor feeding the SLA chart.
type Worker struct {
	target   string
	interval time.Duration
	client   *http.Client
	st       *store.Store
	now      func() time.Time
}

func NewWorker(cfg config.Config, st *store.Store) *Worker {
	if cfg.ProbeTargetURL == "" {
		return nil
	}
	return &Worker{
		target:   cfg.ProbeTargetURL,
		interval: cfg.ProbeInterval(),
		client:   &http.Client{Timeout: 10 * time.Second},
		st:       st,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is cancelled. The first sample is taken immediately.
func (w *Worker) Run(ctx context.Context) {
	w.tick(ctx)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	status := w.Check(ctx)
	if err := w.st.InsertStatusSample(ctx, w.now(), status); err != nil && ctx.Err() == nil {
		log.Printf("probe sample insert failed target=%s err=%q", w.target, err.Error())
	}
}

// Check reports Up for any 2xx/3xx response, Down otherwise.
func (w *Worker) Check(ctx context.Context) models.Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.target, nil)
	if err != nil {
		return models.StatusDown
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return models.StatusDown
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return models.StatusUp
	}
	return models.StatusDown
}
