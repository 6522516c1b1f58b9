package cart

import (
	"errors"
	"strings"
	"sync"

	"farmsmart/internal/domain"
	"farmsmart/internal/notify"
	"github.com/shopspring/decimal"
)

var ErrInvalidItem = errors.New("cart item needs an id")

// Service is the in-memory store cart of one browser. Lines keep insertion
// order and never hold a quantity below 1. Nothing here is persisted.
type Service struct {
	mu       sync.Mutex
	lines    []domain.CartLine
	notifier notify.Notifier
}

func New(n notify.Notifier) *Service {
	return &Service{notifier: n}
}

// Add increments the line for item.ItemID, or appends it with quantity 1.
func (s *Service) Add(item domain.CartLine) error {
	item.ItemID = strings.TrimSpace(item.ItemID)
	if item.ItemID == "" {
		return ErrInvalidItem
	}

	s.mu.Lock()
	if i := s.indexLocked(item.ItemID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		item.Quantity = 1
		s.lines = append(s.lines, item)
	}
	s.mu.Unlock()

	s.notifier.Success(item.Name + " added to cart")
	return nil
}

// UpdateQuantity adjusts a line by delta and removes it once the result is
// not positive.
func (s *Service) UpdateQuantity(itemID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(itemID)
	if i < 0 {
		return domain.ErrNotFound
	}
	s.lines[i].Quantity += delta
	if s.lines[i].Quantity <= 0 {
		s.removeLocked(i)
	}
	return nil
}

func (s *Service) Remove(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(itemID); i >= 0 {
		s.removeLocked(i)
	}
}

func (s *Service) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
}

// Deduct takes paid lines out of the cart by quantity. Lines added or
// increased after the snapshot was taken keep the unpaid remainder.
func (s *Service) Deduct(paid []domain.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paid {
		i := s.indexLocked(p.ItemID)
		if i < 0 {
			continue
		}
		s.lines[i].Quantity -= p.Quantity
		if s.lines[i].Quantity <= 0 {
			s.removeLocked(i)
		}
	}
}

func (s *Service) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartLine{}, s.lines...)
}

// Total is recomputed from the lines on every call.
func (s *Service) Total() decimal.Decimal {
	return Total(s.Lines())
}

func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s *Service) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func (s *Service) indexLocked(itemID string) int {
	for i, l := range s.lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (s *Service) removeLocked(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}

// Total sums unit price times quantity over lines.
func Total(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}
