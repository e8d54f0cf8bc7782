package tracker

import (
	"math/rand"
	"runtime"
	"sync"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

// trackTask is one photon queued for a worker
type trackTask struct {
	TaskID int
	Photon *photon.OpticalPhoton
}

// trackResult carries a finished photon back from a worker
type trackResult struct {
	TaskID int
	Result photon.Result
}

// workerPool fans photon tracking out over parallel workers. Each worker
// owns its random generator, so results are reproducible for a fixed seed
// and worker count.
type workerPool struct {
	taskQueue   chan trackTask
	resultQueue chan trackResult
	workers     []*worker
	wg          sync.WaitGroup
}

// worker tracks photons from the shared queue with its own sampler
type worker struct {
	id          int
	tracker     *Tracker
	sampler     core.Sampler
	taskQueue   chan trackTask
	resultQueue chan trackResult
}

func newWorkerPool(t *Tracker, capacity, numWorkers int, seed int64) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &workerPool{
		taskQueue:   make(chan trackTask, capacity),
		resultQueue: make(chan trackResult, capacity),
	}
	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &worker{
			id:          i,
			tracker:     t,
			sampler:     core.NewRandomSampler(rand.New(rand.NewSource(seed + int64(i)))),
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		})
	}
	return wp
}

func (wp *workerPool) start() {
	for _, w := range wp.workers {
		wp.wg.Add(1)
		go w.run(&wp.wg)
	}
}

func (wp *workerPool) stop() {
	close(wp.taskQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for task := range w.taskQueue {
		w.tracker.Track(task.Photon, w.sampler)
		w.resultQueue <- trackResult{TaskID: task.TaskID, Result: task.Photon.Result()}
	}
}

// Run tracks every photon over numWorkers workers (0 selects
// runtime.NumCPU()) and returns the results in submission order.
func (t *Tracker) Run(photons []*photon.OpticalPhoton, numWorkers int, seed int64) []photon.Result {
	wp := newWorkerPool(t, len(photons), numWorkers, seed)
	wp.start()

	for i, p := range photons {
		wp.taskQueue <- trackTask{TaskID: i, Photon: p}
	}
	wp.stop()

	results := make([]photon.Result, len(photons))
	for r := range wp.resultQueue {
		results[r.TaskID] = r.Result
	}
	return results
}
