package agent

import (
	"encoding/binary"
	"math/rand"

	"github.com/dop251/goja"
)

// LockWitness proves possession of an agent's engine lock at the call site.
// It carries no data of its own; it exists purely as a capability token so
// functions that must only run under the lock can require one as a
// parameter instead of trusting a comment (spec.md §4.10, §5).
//
// goja's Runtime is not safe for concurrent use from more than one
// goroutine at a time; LockWitness is how this module encodes "the caller
// already holds the one goroutine allowed to touch this runtime" in the
// type system rather than at runtime.
type LockWitness struct {
	host *Host
}

// Host returns the agent host this witness was constructed against.
func (w LockWitness) Host() *Host { return w.host }

// Realm is a scope entered against a held LockWitness (spec.md §4.10).
// goja runtimes are single-context, so unlike the original's
// multi-context-per-isolate model, "entering" a Realm binds the realm's
// held values rather than switching an active V8 context. Every Realm of
// one Host (MakeContext may be called more than once, and ScratchContext
// is another) shares that Host's single goja runtime and its globals;
// realms are not isolated from each other.
type Realm struct {
	lock LockWitness
	host *Host
	seed []byte
}

// newRealm constructs a Realm bound to lock and host, consuming any pending
// RNG seed the host is currently latched to give out. A consumed seed is
// fed into the runtime's RNG immediately, so Math.random() becomes
// deterministic for this realm's lifetime rather than just latching
// bookkeeping nothing reads (spec.md §8 seed scenario 1).
func newRealm(lock LockWitness, host *Host) *Realm {
	seed := host.TakeRandomSeed(lock)
	if seed != nil {
		host.runtime.SetRandSource(randSourceFromSeed(seed))
	}
	return &Realm{lock: lock, host: host, seed: seed}
}

// randSourceFromSeed turns an arbitrary-length seed into a goja RandSource
// by folding it into a 64-bit value via FNV-1a and handing that to
// math/rand — the same seed always produces the same Math.random()
// stream, which is all spec.md's determinism invariant requires.
func randSourceFromSeed(seed []byte) goja.RandSource {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	hash := uint64(offset64)
	for _, b := range seed {
		hash ^= uint64(b)
		hash *= prime64
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], hash)
	rng := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(buf[:]))))
	return rng.Float64
}

// Lock returns the LockWitness this realm was constructed from. A Realm
// cannot outlive its source witness; callers that hold a *Realm past the
// point their witness would have expired are violating the invariant the
// type system otherwise can't express in Go (there being no borrow
// checker), so a realm is kept only within the single task closure that
// received its witness.
func (r *Realm) Lock() LockWitness { return r.lock }

// Host returns the owning host.
func (r *Realm) Host() *Host { return r.host }

// Runtime exposes the bound goja runtime for callees that need to compile
// or run script under this realm.
func (r *Realm) Runtime() *goja.Runtime { return r.host.runtime }

// Seed returns the deterministic RNG seed latched when this realm was
// created, or nil if none was pending.
func (r *Realm) Seed() []byte { return r.seed }
