// Package worker renders overlay tiles in parallel.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/bydelskart/internal/overlay"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
)

// TileRenderer renders one encoded tile. *overlay.Renderer implements it.
type TileRenderer interface {
	RenderPNG(ctx context.Context, v overlay.Variant, c tile.Coords) ([]byte, error)
}

// Sink receives rendered tiles. It is only ever called from one goroutine.
// *mbtiles.Tileset implements it.
type Sink interface {
	Put(variant string, c tile.Coords, data []byte) error
}

// Task is one tile of one overlay variant.
type Task struct {
	Coords  tile.Coords
	Variant overlay.Variant
}

// Tasks crosses every variant with every tile.
func Tasks(variants []overlay.Variant, coords []tile.Coords) []Task {
	tasks := make([]Task, 0, len(variants)*len(coords))
	for _, v := range variants {
		for _, c := range coords {
			tasks = append(tasks, Task{Coords: c, Variant: v})
		}
	}
	return tasks
}

// Result represents the outcome of a task.
type Result struct {
	Task    Task
	Bytes   int
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Renderer   TileRenderer
	Sink       Sink
	OnProgress ProgressFunc
}

// Pool manages parallel tile rendering.
type Pool struct {
	workers    int
	renderer   TileRenderer
	sink       Sink
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		renderer:   cfg.Renderer,
		sink:       cfg.Sink,
		onProgress: cfg.OnProgress,
	}
}

type rendered struct {
	Result
	data []byte
}

// Run executes all tasks and returns one result per task that was started.
// Rendered tiles are handed to the sink in completion order. Run blocks
// until all tasks complete or the context is cancelled.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan rendered, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	// The collector is the only goroutine touching the sink.
	go func() {
		defer close(done)
		completed, failed := 0, 0
		for r := range resultCh {
			if r.Err == nil && p.sink != nil {
				r.Err = p.sink.Put(r.Task.Variant.String(), r.Task.Coords, r.data)
			}
			results = append(results, r.Result)

			completed++
			if r.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(completed, len(tasks), failed)
			}
		}
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- rendered) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- rendered{Result: Result{Task: task, Err: err}}
			continue
		}

		start := time.Now()
		data, err := p.renderer.RenderPNG(ctx, task.Variant, task.Coords)
		results <- rendered{
			Result: Result{
				Task:    task,
				Bytes:   len(data),
				Err:     err,
				Elapsed: time.Since(start),
			},
			data: data,
		}
	}
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
