package worker

import (
	"context"
	"sort"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

// Pool runs jobs on a fixed number of workers. Results are kept in
// submission order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	collector  *ResultCollector
	submitted  int
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a new worker pool bound to ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		collector:  NewResultCollector(),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker drains the queue; jobs dequeued after cancellation are dropped
func (p *Pool) worker() {
	defer p.wg.Done()

	for item := range p.jobQueue {
		if p.ctx.Err() != nil {
			continue
		}
		p.collector.Set(item.index, item.job.Execute(p.ctx))
	}
}

// Submit queues a job. It returns false once the pool is cancelled.
// Submit must not be called concurrently with Wait or Shutdown.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexedJob{index: p.submitted, job: job}:
		p.submitted++
		return true
	}
}

// Wait waits for all queued jobs and returns their results in submission
// order. Jobs skipped because of cancellation have no result.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.cancelFunc()
	return p.collector.Results()
}

// Shutdown cancels running jobs and waits for the workers to exit
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.closeQueue()
	p.wg.Wait()
}

func (p *Pool) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

// ResultCollector gathers results from concurrent workers by index
type ResultCollector struct {
	results map[int]Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make(map[int]Result),
	}
}

// Set stores the result for the job at index (thread-safe)
func (c *ResultCollector) Set(index int, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[index] = result
}

// Results returns the collected results ordered by index
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	indexes := make([]int, 0, len(c.results))
	for i := range c.results {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]Result, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, c.results[i])
	}
	return out
}
