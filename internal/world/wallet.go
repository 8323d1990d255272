package world

import "sync"

// Wallet holds the player's currency. Spend is an atomic check-and-deduct;
// the mutex lets pickups credit the wallet from outside the game loop.
type Wallet struct {
	mu       sync.Mutex
	balance  int
	starting int
}

func NewWallet(starting int) *Wallet {
	if starting < 0 {
		starting = 0
	}
	return &Wallet{balance: starting, starting: starting}
}

func (w *Wallet) Balance() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// HasSufficient reports whether amount could be spent right now.
func (w *Wallet) HasSufficient(amount int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance >= amount
}

// Spend deducts amount if the balance covers it. Non-positive amounts are
// rejected.
func (w *Wallet) Spend(amount int) bool {
	if amount <= 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balance < amount {
		return false
	}
	w.balance -= amount
	return true
}

// Add credits amount; non-positive amounts are ignored.
func (w *Wallet) Add(amount int) {
	if amount <= 0 {
		return
	}
	w.mu.Lock()
	w.balance += amount
	w.mu.Unlock()
}

// Set overwrites the balance, clamping at zero.
func (w *Wallet) Set(amount int) {
	if amount < 0 {
		amount = 0
	}
	w.mu.Lock()
	w.balance = amount
	w.mu.Unlock()
}

// Reset restores the starting balance.
func (w *Wallet) Reset() {
	w.mu.Lock()
	w.balance = w.starting
	w.mu.Unlock()
}
