package feed

import (
	"sync"
)


// makes a copy of the list on update
// callbacks are identified by the id returned from `Add`, since funcs are not comparable
type CallbackList[T any] struct {
	mutex     sync.Mutex
	nextId    int
	callbacks map[int]T
	order     []int
}

func NewCallbackList[T any]() *CallbackList[T] {
	return &CallbackList[T]{
		callbacks: map[int]T{},
	}
}

func (self *CallbackList[T]) Get() []T {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbacks := make([]T, 0, len(self.order))
	for _, callbackId := range self.order {
		callbacks = append(callbacks, self.callbacks[callbackId])
	}
	return callbacks
}

func (self *CallbackList[T]) Add(callback T) int {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbackId := self.nextId
	self.nextId += 1
	self.callbacks[callbackId] = callback
	nextOrder := make([]int, len(self.order), len(self.order)+1)
	copy(nextOrder, self.order)
	self.order = append(nextOrder, callbackId)
	return callbackId
}

func (self *CallbackList[T]) Remove(callbackId int) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if _, ok := self.callbacks[callbackId]; !ok {
		// not present
		return
	}
	delete(self.callbacks, callbackId)
	nextOrder := make([]int, 0, len(self.order))
	for _, id := range self.order {
		if id != callbackId {
			nextOrder = append(nextOrder, id)
		}
	}
	self.order = nextOrder
}
