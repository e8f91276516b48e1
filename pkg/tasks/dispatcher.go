package tasks

import (
	"context"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Task 异步任务函数
type Task func(ctx context.Context)

// Dispatcher 按 key 串行的异步任务调度器
// 同一 key 的任务按提交顺序依次执行，不同 key 的任务并行执行。
// 用于主事务提交后的解耦后续动作：任务自带错误边界（panic 恢复），
// 任何任务失败都不会影响提交方。
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string]*keyQueue
	wg     sync.WaitGroup
	closed bool
	logger *zap.Logger
}

type keyQueue struct {
	tasks []Task
}

// NewDispatcher 创建任务调度器
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queues: make(map[string]*keyQueue),
		logger: logger,
	}
}

// Dispatch 提交任务
// 返回 false 表示调度器已关闭，任务被拒绝。
func (d *Dispatcher) Dispatch(key string, task Task) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}

	if q, ok := d.queues[key]; ok {
		// 该 key 已有在途队列，追加即可（由既有 goroutine 继续消费）
		q.tasks = append(q.tasks, task)
		d.mu.Unlock()
		return true
	}

	q := &keyQueue{tasks: []Task{task}}
	d.queues[key] = q
	d.wg.Add(1)
	d.mu.Unlock()

	go d.drain(key, q)
	return true
}

// drain 依次消费某 key 队列中的任务，队列清空后退出并移除该 key
func (d *Dispatcher) drain(key string, q *keyQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.tasks) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		d.mu.Unlock()

		d.runOne(key, task)
	}
}

// runOne 执行单个任务，panic 只记录日志，不向外传播
func (d *Dispatcher) runOne(key string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("异步任务 panic",
				zap.String("key", key),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	task(context.Background())
}

// Shutdown 停止接收新任务并等待在途任务完成
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
