package graph

import (
	"container/list"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ProcessingQueue holds nodes that are ready to be processed (in-degree 0).
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{queue: list.New()}
}

// InitializeQueue enqueues every zero in-degree node in insertion order.
func (g *Graph) InitializeQueue(inDegree map[string]int) *ProcessingQueue {
	pq := NewProcessingQueue()
	for _, name := range g.order {
		if inDegree[name] == 0 {
			pq.Enqueue(name)
		}
	}
	return pq
}

// Enqueue adds a node to the back of the queue.
func (pq *ProcessingQueue) Enqueue(node string) {
	pq.queue.PushBack(node)
}

// Dequeue removes and returns the node at the front of the queue.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of nodes in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue has no nodes.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// CalculateInDegrees computes the number of incoming edges for each node.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.Nodes))
	for name := range g.Nodes {
		inDegree[name] = len(g.Parents[name])
	}
	return inDegree
}

// ErrCycleDetected is matched by every *CycleError.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo describes the nodes Kahn's algorithm could not reach.
type CycleInfo struct {
	TotalNodes        int
	ProcessedNodes    int
	UnprocessedNodes  []string // part of or blocked by a cycle
	CycleParticipants []string // subset of UnprocessedNodes on a cycle
	CyclePath         []string // e.g. [A, B, C, A]
}

// CycleError reports a dependency cycle between collections.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in dependency graph: %d of %d collections could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}
	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nCollections in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	participant := make(map[string]bool, len(e.Info.CycleParticipants))
	for _, p := range e.Info.CycleParticipants {
		participant[p] = true
	}
	var blocked []string
	for _, u := range e.Info.UnprocessedNodes {
		if !participant[u] {
			blocked = append(blocked, u)
		}
	}
	if len(blocked) > 0 {
		msg += fmt.Sprintf("\nCollections blocked by cycle: %s", strings.Join(blocked, ", "))
	}
	return msg
}

// Is reports ErrCycleDetected as a match.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// kahn runs the algorithm and returns the processed order.
func (g *Graph) kahn() []string {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	var result []string
	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		result = append(result, node)

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}
	return result
}

// DetectIncompleteProcessing returns nil when every node can be ordered,
// otherwise a description of the unreachable part of the graph.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	processedOrder := g.kahn()
	if len(processedOrder) == len(g.Nodes) {
		return nil
	}

	processed := make(map[string]bool, len(processedOrder))
	for _, n := range processedOrder {
		processed[n] = true
	}

	var unprocessed []string
	unprocessedSet := make(map[string]bool)
	for _, name := range g.order {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
			unprocessedSet[name] = true
		}
	}

	var participants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			participants = append(participants, node)
		}
	}

	var cyclePath []string
	if len(participants) > 0 {
		cyclePath = g.FindCyclePath(participants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    len(processedOrder),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: participants,
		CyclePath:         cyclePath,
	}
}

// FindCyclePath returns the nodes of a cycle through start, with start at
// both ends, or nil.
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}
	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}
	return nil
}

func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}
		if child == target {
			*path = append(*path, target)
			return true
		}
		if visited[child] {
			continue
		}
		visited[child] = true
		*path = append(*path, child)
		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}

func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}
	if visited[current] || !allowedNodes[current] {
		return false
	}
	visited[current] = true
	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}
	return false
}

// TopologicalSort returns collections with every dependency before its
// dependents. Ties resolve by insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	result := g.kahn()
	if len(result) != len(g.Nodes) {
		return nil, &CycleError{Info: g.DetectIncompleteProcessing()}
	}
	return result, nil
}

// SeedOrder is the order collections must be imported in.
func (g *Graph) SeedOrder() ([]string, error) {
	return g.TopologicalSort()
}

// DeleteOrder is the reverse of SeedOrder: dependents go first.
func (g *Graph) DeleteOrder() ([]string, error) {
	seedOrder, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	deleteOrder := make([]string, len(seedOrder))
	for i, c := range seedOrder {
		deleteOrder[len(seedOrder)-1-i] = c
	}
	return deleteOrder, nil
}

// Validate fails with a *CycleError when the graph cannot be ordered.
func (g *Graph) Validate() error {
	if info := g.DetectIncompleteProcessing(); info != nil {
		return &CycleError{Info: info}
	}
	return nil
}

// OrderViolation is a dependency that a given sequence visits too late.
type OrderViolation struct {
	Collection string // seeded first
	DependsOn  string // seeded later, or never
}

// CheckOrder reports every edge whose dependency appears after its
// dependent in sequence. Edges touching a collection absent from sequence
// are ignored.
func (g *Graph) CheckOrder(sequence []string) []OrderViolation {
	pos := make(map[string]int, len(sequence))
	for i, c := range sequence {
		if _, seen := pos[c]; !seen {
			pos[c] = i
		}
	}

	var violations []OrderViolation
	for _, e := range g.AllEdges() {
		depPos, depListed := pos[e.From]
		ownPos, ownListed := pos[e.To]
		if !ownListed || !depListed {
			continue
		}
		if depPos > ownPos {
			violations = append(violations, OrderViolation{Collection: e.To, DependsOn: e.From})
		}
	}
	sort.SliceStable(violations, func(i, j int) bool {
		return pos[violations[i].Collection] < pos[violations[j].Collection]
	})
	return violations
}
