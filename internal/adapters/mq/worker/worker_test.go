package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/trainage/internal/adapters/mq/queue"
	worker "github.com/okian/trainage/internal/adapters/mq/worker"
	"github.com/okian/trainage/internal/audit"
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	eventChan chan queue.Event
	closeOnce sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{eventChan: make(chan queue.Event, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Event {
	return mq.eventChan
}

func (mq *mockQueue) Close() error {
	mq.closeOnce.Do(func() { close(mq.eventChan) })
	return nil
}

func (mq *mockQueue) addEvent(e queue.Event) {
	mq.eventChan <- e
}

type call struct {
	userID  string
	trigger model.AuditTrigger
}

type mockAuditor struct {
	mu     sync.Mutex
	calls  []call
	errors map[string]error
	seen   chan struct{}
}

func newMockAuditor() *mockAuditor {
	return &mockAuditor{errors: make(map[string]error), seen: make(chan struct{}, 1000)}
}

func (ma *mockAuditor) Audit(ctx context.Context, userID string, trigger model.AuditTrigger) (audit.Result, error) {
	ma.mu.Lock()
	ma.calls = append(ma.calls, call{userID: userID, trigger: trigger})
	err := ma.errors[userID]
	ma.mu.Unlock()
	ma.seen <- struct{}{}
	if err != nil {
		return audit.Result{}, err
	}
	return audit.Result{UserID: userID, Trigger: trigger, Outcome: audit.OutcomeUnchanged}, nil
}

func (ma *mockAuditor) setError(userID string, err error) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.errors[userID] = err
}

func (ma *mockAuditor) snapshot() []call {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return append([]call(nil), ma.calls...)
}

// waitFor blocks until n audits were attempted or the timeout passes.
func (ma *mockAuditor) waitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-ma.seen:
		case <-deadline:
			return false
		}
	}
	return true
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		q := newMockQueue()
		auditor := newMockAuditor()

		convey.Convey("When creating a worker with default options", func() {
			w := worker.NewInMemoryWorker(q, auditor)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
				convey.So(w.Processed(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, auditor, worker.WithName("test-worker"))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And when processing events", func() {
				q.addEvent(queue.Event{EventID: "e1", UserID: "u1", Trigger: model.AuditWorkoutCompleted})
				q.addEvent(queue.Event{EventID: "e2", UserID: "u2"})
				convey.So(auditor.waitFor(2, time.Second), convey.ShouldBeTrue)

				convey.Convey("Then each user is audited with the event trigger", func() {
					calls := auditor.snapshot()
					convey.So(calls, convey.ShouldHaveLength, 2)
					convey.So(calls[0], convey.ShouldResemble, call{userID: "u1", trigger: model.AuditWorkoutCompleted})
					convey.So(calls[1].trigger, convey.ShouldEqual, model.AuditWorkoutCompleted)
				})
			})

			convey.Convey("And when an audit fails", func() {
				auditor.setError("bad", errors.New("store down"))
				q.addEvent(queue.Event{EventID: "e1", UserID: "bad"})
				q.addEvent(queue.Event{EventID: "e2", UserID: "good"})
				convey.So(auditor.waitFor(2, time.Second), convey.ShouldBeTrue)

				convey.Convey("Then the worker keeps going", func() {
					calls := auditor.snapshot()
					convey.So(calls[1].userID, convey.ShouldEqual, "good")
				})
			})

			convey.Convey("And when shutting down", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				err := w.Shutdown(sctx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When context is cancelled", func() {
			w := worker.NewInMemoryWorker(q, auditor)
			ctx, cancel := context.WithCancel(context.Background())
			stopped := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(stopped)
			}()
			cancel()

			convey.Convey("Then worker should stop", func() {
				select {
				case <-stopped:
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool fed by the in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		auditor := newMockAuditor()

		convey.Convey("When creating a worker pool with default count", func() {
			p := worker.NewPool(0, q, auditor)

			convey.Convey("Then it sizes itself from the CPU count", func() {
				convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When processing many events", func() {
			p := worker.NewPool(4, q, auditor)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			p.Start(ctx)

			const n = 50
			for i := 0; i < n; i++ {
				convey.So(q.Enqueue(ctx, queue.Event{
					EventID: fmt.Sprintf("e%d", i),
					UserID:  fmt.Sprintf("u%d", i%7),
					Trigger: model.AuditWorkoutCompleted,
				}), convey.ShouldBeTrue)
			}

			convey.Convey("Then all events are audited and shutdown drains cleanly", func() {
				convey.So(auditor.waitFor(n, 2*time.Second), convey.ShouldBeTrue)
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				convey.So(p.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(p.Processed(), convey.ShouldEqual, n)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
