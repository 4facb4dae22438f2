package order

import (
	"sort"
	"sync"
)

// resetBroadcast 表单重置事件的订阅表。
type resetBroadcast struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func()
}

func newResetBroadcast() *resetBroadcast {
	return &resetBroadcast{handlers: make(map[int]func())}
}

// subscribe 返回取消订阅函数，重复调用无副作用。
func (b *resetBroadcast) subscribe(fn func()) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// publish 按订阅顺序调用。
func (b *resetBroadcast) publish() {
	b.mu.Lock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.handlers[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
