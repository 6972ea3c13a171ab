package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"go.uber.org/atomic"
)

type PoolInterface interface {
	Fetch(ctx context.Context, key models.MonitorKey, pref *models.UserPreference) (*models.FetchResult, error)
	Start()
	Stop()
	Active() int
}

type job struct {
	ctx   context.Context
	key   models.MonitorKey
	pref  *models.UserPreference
	reply chan jobResult
}

type jobResult struct {
	result *models.FetchResult
	err    error
}

// retryState is the per-job retry machine: every attempt is classified and
// the classification alone decides between returning and backing off.
type retryState struct {
	attempt int
	outcome Outcome
	err     error
}

// next returns the delay before the following attempt, or false when the
// job is finished.
func (s *retryState) next(maxRetries int, base time.Duration) (time.Duration, bool) {
	if s.outcome == OutcomeOK || s.outcome.Terminal() || s.attempt >= maxRetries {
		return 0, false
	}
	return base * time.Duration(s.attempt), true
}

// WorkerPool runs fetches on a fixed number of workers. Requests beyond the
// worker count wait in the queue.
type WorkerPool struct {
	fetcher    Fetcher
	workers    int
	maxRetries int
	backoff    time.Duration
	jobs       chan *job
	done       chan struct{}
	wg         sync.WaitGroup
	started    atomic.Bool
	stopOnce   sync.Once
	active     atomic.Int32
	sleep      func(ctx context.Context, d time.Duration) error
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func (p *WorkerPool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Infof(providers.TypeFetch, "Fetch pool started with %d workers", p.workers)
}

func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

func (p *WorkerPool) Active() int {
	return int(p.active.Load())
}

// Fetch queues a search and waits for its final result. Transient failures
// are retried inside the worker; exhausted retries return ErrRetriesExhausted.
func (p *WorkerPool) Fetch(ctx context.Context, key models.MonitorKey, pref *models.UserPreference) (*models.FetchResult, error) {
	j := &job{ctx: ctx, key: key, pref: pref, reply: make(chan jobResult, 1)}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolStopped
	}

	select {
	case r := <-j.reply:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolStopped
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	defer p.logger.Debugf(providers.TypeFetch, "Fetch worker %d stopped", id)

	for {
		select {
		case <-p.done:
			return
		case j := <-p.jobs:
			if j.ctx.Err() != nil {
				j.reply <- jobResult{err: j.ctx.Err()}
				continue
			}
			p.active.Inc()
			res, err := p.run(j)
			p.active.Dec()
			j.reply <- jobResult{result: res, err: err}
		}
	}
}

func (p *WorkerPool) run(j *job) (*models.FetchResult, error) {
	name := j.key.Name()
	st := retryState{}
	for {
		st.attempt++
		res, err := p.fetcher.Fetch(j.ctx, j.key, j.pref)
		st.outcome, st.err = Classify(err), err
		p.metrics.IncFetchAttempts(st.outcome.String())

		delay, retry := st.next(p.maxRetries, p.backoff)
		if !retry {
			switch {
			case st.outcome == OutcomeOK:
				p.logger.Infof(providers.TypeFetch, "%s: fetched on attempt %d/%d", name, st.attempt, p.maxRetries)
				return res, nil
			case st.outcome.Terminal():
				p.logger.Warnf(providers.TypeFetch, "%s: attempt %d/%d ended with %s: %s", name, st.attempt, p.maxRetries, st.outcome, err)
				return res, err
			default:
				p.logger.Errorf(providers.TypeFetch, "%s: giving up after %d attempts: %s", name, st.attempt, err)
				return nil, fmt.Errorf("%s: %w: %w", name, ErrRetriesExhausted, err)
			}
		}

		p.logger.Warnf(providers.TypeFetch, "%s: attempt %d/%d failed: %s, retrying in %s", name, st.attempt, p.maxRetries, err, delay)
		if err := p.sleep(j.ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func NewWorkerPool(conf *structures.Config, fetcher Fetcher, logger providers.Logger, metrics providers.MetricsProviderInterface) PoolInterface {
	workers := max(conf.Fetch.Workers, 1)
	return &WorkerPool{
		fetcher:    fetcher,
		workers:    workers,
		maxRetries: max(conf.Fetch.MaxRetries, 1),
		backoff:    conf.Fetch.RetryBackoff,
		jobs:       make(chan *job),
		done:       make(chan struct{}),
		sleep:      sleepContext,
		logger:     logger,
		metrics:    metrics,
	}
}
