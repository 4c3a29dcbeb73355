// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package server

// A buffered channel that we can send work requests on.
var jobQueue chan *Context

type Worker struct {
	WorkerPool chan chan *Context
	JobChannel chan *Context
	quit       chan bool
}

func NewWorker(workerPool chan chan *Context) Worker {
	return Worker{
		WorkerPool: workerPool,
		JobChannel: make(chan *Context),
		quit:       make(chan bool)}
}

func (w Worker) Start() {
	go func() {
		for {
			// register the current worker into the worker queue.
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-w.quit:
				return
			}

			select {
			case req := <-w.JobChannel:
				// check if the context is expired
				select {
				case <-req.Context.Done():
					req.handleError(req.Context.Err())
					req.sendResponse()
				default:
					req.serve()
					req.sendResponse()
				}
				req.done <- nil

			case <-w.quit:
				// we have received a signal to stop
				return
			}
		}
	}()
}

// Stop signals the worker to stop listening for work requests.
func (w Worker) Stop() {
	go func() {
		w.quit <- true
	}()
}

type Dispatcher struct {
	// A pool of workers channels that are registered with the dispatcher
	pool       chan chan *Context
	queue      chan *Context
	workers    []Worker
	quit       chan struct{}
	maxWorkers int
	maxQueue   int
}

func NewDispatcher(maxWorkers int, maxQueue int) *Dispatcher {
	jobQueue = make(chan *Context, maxQueue)
	pool := make(chan chan *Context, maxWorkers)
	return &Dispatcher{
		pool:       pool,
		queue:      jobQueue,
		quit:       make(chan struct{}),
		maxWorkers: maxWorkers,
		maxQueue:   maxQueue,
	}
}

func (d *Dispatcher) Run() {
	// starting n number of workers
	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(d.pool)
		worker.Start()
		d.workers = append(d.workers, worker)
	}

	go d.dispatch()
}

func (d *Dispatcher) Stop() {
	close(d.quit)
	for _, w := range d.workers {
		w.Stop()
	}
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case api := <-d.queue:
			// try to obtain a worker job channel that is available.
			// will block until a worker is idle
			select {
			case workerChannel := <-d.pool:
				workerChannel <- api
			case <-d.quit:
				api.handleError(EServiceUnavailable(EC_SERVER, "server shutting down", nil))
				api.sendResponse()
				api.done <- nil
				return
			}
		case <-d.quit:
			return
		}
	}
}
