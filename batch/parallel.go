package batch

import (
	"runtime"
	"sync"
)

// Config configures parallel decoding.
type Config struct {
	// Workers is the number of worker goroutines. 0 means runtime.GOMAXPROCS(0).
	Workers int

	// GrainSize is the minimum number of items per worker before work is
	// spread out. With fewer than GrainSize * Workers items everything
	// runs on the calling goroutine.
	GrainSize int
}

// DefaultConfig returns the default parallel configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   0, // all available CPUs
		GrainSize: 1,
	}
}

var (
	config   = DefaultConfig()
	configMu sync.RWMutex
)

// SetConfig sets the configuration Run uses when it is given a zero Config.
func SetConfig(c Config) {
	configMu.Lock()
	defer configMu.Unlock()
	config = c
}

// GetConfig returns the current global configuration.
func GetConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}

func (c Config) sequential(n int) bool {
	w := c.workers()
	return w == 1 || n <= c.GrainSize*w
}

// WorkerPool runs submitted tasks on a fixed set of goroutines.
type WorkerPool struct {
	numWorkers int
	wg         sync.WaitGroup
	taskChan   chan func()
	once       sync.Once
}

// NewWorkerPool starts numWorkers workers, or GOMAXPROCS if numWorkers is
// not positive.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &WorkerPool{
		numWorkers: numWorkers,
		taskChan:   make(chan func(), numWorkers*4),
	}
	for i := 0; i < numWorkers; i++ {
		go pool.worker()
	}
	return pool
}

func (p *WorkerPool) worker() {
	for task := range p.taskChan {
		task()
		p.wg.Done()
	}
}

// Submit queues a task. It blocks while the queue is full.
func (p *WorkerPool) Submit(task func()) {
	p.wg.Add(1)
	p.taskChan <- task
}

// Wait waits for all submitted tasks to complete.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Close stops the workers once the queued tasks have run. Submit must not
// be called after Close.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		close(p.taskChan)
	})
}
