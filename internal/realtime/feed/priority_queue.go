package feed

import (
	"container/heap"
	"sync"

	"github.com/wonny/delphi/v2/backend/internal/realtime"
)

// GamePriorityItem represents a game with its priority in the queue
type GamePriorityItem struct {
	Priority *realtime.GamePriority
	Index    int // Index in the heap
}

// PriorityQueue implements a max-heap for game refresh priorities
// ⭐ SSOT: 스트림 구독 게임 선택은 이 큐에서만
type PriorityQueue struct {
	mu    sync.RWMutex
	items []*GamePriorityItem
	index map[string]int // gameID -> index mapping for O(1) lookup
}

// NewPriorityQueue creates a new priority queue
func NewPriorityQueue() *PriorityQueue {
	pq := &PriorityQueue{
		items: make([]*GamePriorityItem, 0),
		index: make(map[string]int),
	}
	heap.Init(pq)
	return pq
}

// Len returns the number of items in the queue
func (pq *PriorityQueue) Len() int {
	return len(pq.items)
}

// Less compares two items (max-heap: higher score first)
func (pq *PriorityQueue) Less(i, j int) bool {
	return pq.items[i].Priority.Score > pq.items[j].Priority.Score
}

// Swap swaps two items
func (pq *PriorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].Index = i
	pq.items[j].Index = j
	pq.index[pq.items[i].Priority.GameID] = i
	pq.index[pq.items[j].Priority.GameID] = j
}

// Push adds an item to the queue
func (pq *PriorityQueue) Push(x interface{}) {
	item := x.(*GamePriorityItem)
	item.Index = len(pq.items)
	pq.items = append(pq.items, item)
	pq.index[item.Priority.GameID] = item.Index
}

// Pop removes and returns the highest priority item
func (pq *PriorityQueue) Pop() interface{} {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	pq.items = old[0 : n-1]
	delete(pq.index, item.Priority.GameID)
	return item
}

// Update updates the priority of a game
func (pq *PriorityQueue) Update(priority *realtime.GamePriority) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	priority.CalculateScore()

	if idx, exists := pq.index[priority.GameID]; exists {
		pq.items[idx].Priority = priority
		heap.Fix(pq, idx)
	} else {
		item := &GamePriorityItem{
			Priority: priority,
		}
		heap.Push(pq, item)
	}
}

// Remove removes a game from the queue
func (pq *PriorityQueue) Remove(gameID string) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if idx, exists := pq.index[gameID]; exists {
		heap.Remove(pq, idx)
	}
}

// GetTop returns the top N games by priority (without removing them)
func (pq *PriorityQueue) GetTop(n int) []*realtime.GamePriority {
	pq.mu.RLock()
	defer pq.mu.RUnlock()

	if n > len(pq.items) {
		n = len(pq.items)
	}

	result := make([]*realtime.GamePriority, n)
	for i := 0; i < n; i++ {
		result[i] = pq.items[i].Priority
	}
	return result
}

// Contains checks if a game is in the queue
func (pq *PriorityQueue) Contains(gameID string) bool {
	pq.mu.RLock()
	defer pq.mu.RUnlock()

	_, exists := pq.index[gameID]
	return exists
}
