// Package cart implements the client-side cart store: an observable
// line-item collection keyed by product+variant, persisted best-effort
// through the injected core.Memory capability.
//
// Derived values (count, subtotal) are always recomputed from the line
// list, never stored, so they cannot drift. Storage failures are swallowed:
// the cart stays usable in-memory for the session.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cairocart/storefront-go/core"
)

// Storage keys under the configured Memory namespace
const (
	storageKeyLines        = "cart:lines"
	storageKeyInstructions = "cart:instructions"
)

// Line is one distinct product+variant entry in the cart. The uniqueness
// key is ProductID+Variant; Variant is an opaque string such as "Red / M".
type Line struct {
	ProductID string  `json:"productId"`
	Variant   string  `json:"variant,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name,omitempty"`
	Image     string  `json:"image,omitempty"`
}

func (l Line) key() string {
	return l.ProductID + "\x00" + l.Variant
}

// Snapshot is an immutable view of the cart handed to subscribers and
// returned by Lines()
type Snapshot struct {
	Lines               []Line
	SpecialInstructions string
	Count               int
	Subtotal            float64
}

// Result reports the outcome of a cart mutation. Err carries the sentinel
// for a rejection so callers can classify with errors.Is; Message stays the
// user-facing text.
type Result struct {
	Success bool
	Message string
	Err     error
}

// Store is the cart store. All mutations are synchronous and atomic from
// the caller's perspective.
type Store struct {
	mu           sync.Mutex
	lines        []Line
	instructions string
	memory       core.Memory
	logger       core.Logger
	subscribers  map[int]func(Snapshot)
	nextSubID    int
}

// NewStore creates a cart store persisting through the given Memory.
// A nil memory disables persistence entirely.
func NewStore(memory core.Memory, logger core.Logger) *Store {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Store{
		memory:      memory,
		logger:      logger,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Load restores the persisted cart, if any. Unreadable stored data is
// discarded rather than raised.
func (s *Store) Load(ctx context.Context) {
	if s.memory == nil {
		return
	}

	s.mu.Lock()
	if raw, err := s.memory.Get(ctx, storageKeyLines); err == nil && raw != "" {
		var lines []Line
		if err := json.Unmarshal([]byte(raw), &lines); err == nil {
			// Re-validate on load: lines with non-positive quantity are
			// never stored, but stale data may predate that rule
			s.lines = s.lines[:0]
			for _, l := range lines {
				if l.Quantity >= 1 && l.ProductID != "" {
					s.lines = append(s.lines, l)
				}
			}
		}
	}
	if raw, err := s.memory.Get(ctx, storageKeyInstructions); err == nil {
		s.instructions = raw
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Add inserts a line or merges quantities into an existing line with the
// same productID+variant key. When maxStock > 0 and the merged quantity
// would exceed it, the cart is left untouched and the result carries the
// stock message.
func (s *Store) Add(ctx context.Context, line Line, maxStock int) Result {
	if line.ProductID == "" {
		return Result{Success: false, Message: "Product is required."}
	}
	if line.Quantity < 1 {
		return Result{Success: false, Message: "Quantity must be at least 1."}
	}

	s.mu.Lock()
	idx := s.indexOf(line.ProductID, line.Variant)
	newQuantity := line.Quantity
	if idx >= 0 {
		newQuantity += s.lines[idx].Quantity
	}
	if maxStock > 0 && newQuantity > maxStock {
		s.mu.Unlock()
		return Result{
			Success: false,
			Message: fmt.Sprintf("Only %d available in stock.", maxStock),
			Err:     core.ErrInsufficientStock,
		}
	}

	if idx >= 0 {
		s.lines[idx].Quantity = newQuantity
	} else {
		s.lines = append(s.lines, line)
	}
	s.persistLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return Result{Success: true}
}

// SetQuantity overwrites a line's quantity. Quantity < 1 removes the line
// (and still succeeds); quantity above maxStock rejects without mutating.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int, variant string, maxStock int) Result {
	if quantity < 1 {
		s.Remove(ctx, productID, variant)
		return Result{Success: true}
	}
	if maxStock > 0 && quantity > maxStock {
		return Result{
			Success: false,
			Message: fmt.Sprintf("Only %d available in stock.", maxStock),
			Err:     core.ErrInsufficientStock,
		}
	}

	s.mu.Lock()
	idx := s.indexOf(productID, variant)
	if idx < 0 {
		s.mu.Unlock()
		return Result{Success: false, Message: "Item is not in the cart.", Err: core.ErrLineNotFound}
	}
	s.lines[idx].Quantity = quantity
	s.persistLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return Result{Success: true}
}

// Remove deletes the line unconditionally. Removing an absent line is a
// no-op (idempotent).
func (s *Store) Remove(ctx context.Context, productID, variant string) {
	s.mu.Lock()
	idx := s.indexOf(productID, variant)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	s.persistLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Clear empties all lines and resets special instructions
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.instructions = ""
	s.persistLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetSpecialInstructions stores the order note, persisted separately from
// the line list
func (s *Store) SetSpecialInstructions(ctx context.Context, instructions string) {
	s.mu.Lock()
	s.instructions = instructions
	if s.memory != nil {
		if err := s.memory.Set(ctx, storageKeyInstructions, instructions, 0); err != nil {
			s.logger.Debug("Cart persistence failed", map[string]interface{}{
				"operation": "cart_persist",
				"key":       storageKeyInstructions,
				"error":     err.Error(),
			})
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SpecialInstructions returns the current order note
func (s *Store) SpecialInstructions() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instructions
}

// Count is the sum of all line quantities
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

// Subtotal is the sum of price×quantity over all lines
func (s *Store) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	subtotal := 0.0
	for _, l := range s.lines {
		subtotal += l.Price * float64(l.Quantity)
	}
	return subtotal
}

// Snapshot returns a consistent copy of the full cart state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Lines returns a copy of the current line list
func (s *Store) Lines() []Line {
	return s.Snapshot().Lines
}

// Subscribe registers a subscriber notified synchronously after every
// mutation with a consistent snapshot. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) indexOf(productID, variant string) int {
	key := Line{ProductID: productID, Variant: variant}.key()
	for i, l := range s.lines {
		if l.key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Lines:               make([]Line, len(s.lines)),
		SpecialInstructions: s.instructions,
	}
	copy(snap.Lines, s.lines)
	for _, l := range s.lines {
		snap.Count += l.Quantity
		snap.Subtotal += l.Price * float64(l.Quantity)
	}
	return snap
}

// persistLocked writes the line list best-effort; failures are logged at
// debug and otherwise ignored
func (s *Store) persistLocked(ctx context.Context) {
	if s.memory == nil {
		return
	}
	data, err := json.Marshal(s.lines)
	if err == nil {
		err = s.memory.Set(ctx, storageKeyLines, string(data), 0)
	}
	if err != nil {
		s.logger.Debug("Cart persistence failed", map[string]interface{}{
			"operation": "cart_persist",
			"key":       storageKeyLines,
			"error":     err.Error(),
		})
	}
	if s.instructions == "" && len(s.lines) == 0 {
		// Clear() also resets the note
		if err := s.memory.Delete(ctx, storageKeyInstructions); err != nil {
			s.logger.Debug("Cart persistence failed", map[string]interface{}{
				"operation": "cart_persist",
				"key":       storageKeyInstructions,
				"error":     err.Error(),
			})
		}
	}
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
