// Package queue は直列ワーカーキューを提供する
//
// 1つのゴルーチンが投入順（FIFO）にタスクを実行する。
// パイプラインの変更・起動・停止はすべてこのキュー上で行い、
// 同時変更を防ぐ。
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// ErrClosed はクローズ済みのキューへの投入を表す
var ErrClosed = errors.New("キューはクローズされています")

// Serial は単一ワーカーのタスクキュー
type Serial struct {
	name string

	mu      sync.Mutex
	tasks   []func()
	closed  bool
	notify  chan struct{}
	stopped chan struct{}
}

// NewSerial は新しいSerialを作成し、ワーカーを開始する
func NewSerial(name string) *Serial {
	q := &Serial{
		name:    name,
		notify:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Async はタスクを投入してすぐに戻る
func (q *Serial) Async(task func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.tasks = append(q.tasks, task)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Sync はタスクを投入して完了を待つ
// ctx が先に終了した場合、タスクは後で実行されるが結果は待たない
func (q *Serial) Sync(ctx context.Context, task func()) error {
	done := make(chan struct{})
	if err := q.Async(func() {
		defer close(done)
		task()
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close は新規投入を止め、投入済みのタスクを実行し終えるまで待つ
func (q *Serial) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.notify)
	}
	q.mu.Unlock()

	select {
	case <-q.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len は未実行のタスク数を返す
func (q *Serial) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// run はタスクを順番に実行する
func (q *Serial) run() {
	defer close(q.stopped)

	for {
		task, ok := q.next()
		if ok {
			q.execute(task)
			continue
		}
		if _, open := <-q.notify; !open {
			// クローズ後に残ったタスクを実行して終了
			for {
				task, ok := q.next()
				if !ok {
					return
				}
				q.execute(task)
			}
		}
	}
}

// next は先頭のタスクを取り出す
func (q *Serial) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

// execute はタスクを実行し、パニックはログに記録してワーカーを継続する
func (q *Serial) execute(task func()) {
	var catcher panics.Catcher
	catcher.Try(task)
	if r := catcher.Recovered(); r != nil {
		slog.Error("ワーカーキューのタスクがパニックしました", "queue", q.name, "panic", r.Value)
	}
}
