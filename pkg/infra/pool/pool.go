// Package pool runs bounded fan-out work, such as parsing source files, on an ants pool.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

var (
	// ErrPoolClosed is returned after Release.
	ErrPoolClosed = errors.New("pool: closed")
	// ErrInvalidPoolConfig is returned by NewPool for a bad Config.
	ErrInvalidPoolConfig = errors.New("pool: invalid config")
	// ErrPoolOverload is returned by a nonblocking pool that is full.
	ErrPoolOverload = errors.New("pool: overloaded")
)

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity 池容量（最大并发 goroutine 数），必须大于 0
	Capacity int
	// ExpiryDuration goroutine 空闲过期时间
	ExpiryDuration time.Duration
	// Nonblocking 提交任务是否非阻塞（若池满则返回错误）
	Nonblocking bool
	// PanicHandler 恐慌处理函数
	PanicHandler func(any)
}

// DefaultConfig 返回默认池配置
func DefaultConfig() *Config {
	return &Config{
		Capacity:       8,
		ExpiryDuration: 10 * time.Second,
	}
}

// Pool represents a worker pool.
type Pool struct {
	name   string
	pool   *ants.Pool
	stats  statsCounter
	closed atomic.Bool
	mu     sync.Mutex
}

type statsCounter struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
}

// Stats contains statistics about the worker pool.
type Stats struct {
	SubmittedTasks int64
	CompletedTasks int64
	FailedTasks    int64
	RejectedTasks  int64
}

// NewPool creates a new worker pool with the given configuration.
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidPoolConfig)
	}

	panicHandler := config.PanicHandler
	if panicHandler == nil {
		panicHandler = func(p any) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", p)
		}
	}

	ap, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(panicHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 ants 池失败: %w", err)
	}

	logger.Debugw("Worker pool created", "name", name, "capacity", config.Capacity)
	return &Pool{name: name, pool: ap}, nil
}

// Name 返回池名称
func (p *Pool) Name() string { return p.name }

// Cap 返回池容量
func (p *Pool) Cap() int { return p.pool.Cap() }

// Submit 提交任务到池中执行
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		p.stats.submitted.Add(1)
		defer func() {
			if r := recover(); r != nil {
				p.stats.failed.Add(1)
				panic(r)
			}
			p.stats.completed.Add(1)
		}()
		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.rejected.Add(1)
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		p.stats.failed.Add(1)
		return err
	}
	return nil
}

// Run 并发执行 n 个任务 fn(0..n-1) 并等待全部完成。
// 上下文取消后尚未开始的任务会被跳过；返回第一个提交错误或上下文错误。
// 任务自身的 panic 由池的 PanicHandler 处理，不会阻塞等待。
func (p *Pool) Run(ctx context.Context, n int, fn func(i int)) error {
	var wg sync.WaitGroup
	var firstErr error

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			firstErr = err
			break
		}

		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			fn(i)
		})
		if err != nil {
			wg.Done()
			firstErr = err
			break
		}
	}

	wg.Wait()
	if firstErr == nil {
		firstErr = ctx.Err()
	}
	return firstErr
}

// Release 关闭池并释放资源
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Swap(true) {
		return
	}
	p.pool.Release()
	logger.Debugw("Worker pool released", "name", p.name)
}

// Stats 返回池统计信息快照
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks: p.stats.submitted.Load(),
		CompletedTasks: p.stats.completed.Load(),
		FailedTasks:    p.stats.failed.Load(),
		RejectedTasks:  p.stats.rejected.Load(),
	}
}
