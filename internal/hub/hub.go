// Package hub fans state changes out to in-process subscribers.
package hub

import "sync"

const defaultBuffer = 16

type subscriber[T any] struct {
	id int
	ch chan T
}

// Hub broadcasts values to every subscriber. A slow subscriber loses its
// oldest pending value, never the newest one, so readers of full-state
// values always converge on the latest state.
type Hub[T any] struct {
	mu     sync.Mutex
	nextID int
	buffer int
	subs   map[int]*subscriber[T]
}

func New[T any](buffer int) *Hub[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub[T]{
		buffer: buffer,
		subs:   make(map[int]*subscriber[T]),
	}
}

func (h *Hub[T]) Add() (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan T, h.buffer)
	h.subs[id] = &subscriber[T]{id: id, ch: ch}
	cancel := func() {
		h.mu.Lock()
		sub, ok := h.subs[id]
		if ok {
			delete(h.subs, id)
		}
		h.mu.Unlock()
		if ok {
			close(sub.ch)
		}
	}
	return ch, cancel
}

func (h *Hub[T]) Broadcast(value T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- value:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- value:
		default:
		}
	}
}

func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
