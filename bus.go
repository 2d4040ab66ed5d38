package actorloop

import "time"

// maxBusSubscribers caps subscriber slots at 32 so the readers mask below
// never aliases, per spec.md §4.7's invariant.
const maxBusSubscribers = 32

// BusID identifies a topic bus.
type BusID uint32

// BusConfig configures a bus at creation time (spec.md §4.7's `cfg`).
type BusConfig struct {
	Capacity       int           // ring size, entries
	MaxSubscribers int           // <= maxBusSubscribers
	MaxReaders     int           // 0 means never auto-expire by read count
	MaxAge         time.Duration // 0 means never auto-expire by age
	MaxEntrySize   int
}

type busEntry struct {
	payload     []byte
	publishedAt time.Time
	readCount   int
	readersMask uint32
	valid       bool
}

type busSubscriber struct {
	actor  ActorID
	active bool
	bit    uint32 // 1 << slot index, matched against busEntry.readersMask
}

// Bus is the bounded, multi-subscriber ring buffer of spec.md §4.7: entries
// are published once and each subscriber's Read walks the ring from the tail,
// taking the first entry whose readersMask lacks that subscriber's bit, so
// each entry is consumed at most once per subscriber. Subscribers keep no
// read cursor of their own.
//
// Bus is grounded on the teacher's EventTarget subscriber-slot bookkeeping
// (a fixed registration table with an id-keyed removal path) with the
// listener-callback dispatch model replaced by pull-based Read/ReadWait,
// since spec.md's bus is polled, not callback-driven.
type Bus struct {
	id     BusID
	cfg    BusConfig
	ring   []busEntry
	head   int // next write position
	tail   int // oldest valid position
	count  int
	subs   [maxBusSubscribers]busSubscriber
	nSubs  int
}

// busTable owns every live bus, by id.
type busTable struct {
	buses  map[BusID]*Bus
	nextID BusID
}

func newBusTable() *busTable {
	return &busTable{buses: make(map[BusID]*Bus)}
}

// Create allocates a new bus. Rejects configurations exceeding compile-time
// caps on subscribers.
func (bt *busTable) Create(cfg BusConfig) (BusID, Status) {
	if cfg.MaxSubscribers <= 0 || cfg.MaxSubscribers > maxBusSubscribers {
		return 0, StatusInvalid
	}
	if cfg.Capacity <= 0 {
		return 0, StatusInvalid
	}
	bt.nextID++
	id := bt.nextID
	bt.buses[id] = &Bus{
		id:   id,
		cfg:  cfg,
		ring: make([]busEntry, cfg.Capacity),
	}
	return id, StatusOK
}

// Destroy removes a bus. Fails if subscribers remain.
func (bt *busTable) Destroy(id BusID) Status {
	b, ok := bt.buses[id]
	if !ok {
		return StatusInvalid
	}
	if b.nSubs > 0 {
		return StatusInvalid
	}
	delete(bt.buses, id)
	return StatusOK
}

func (bt *busTable) get(id BusID) (*Bus, Status) {
	b, ok := bt.buses[id]
	if !ok {
		return nil, StatusInvalid
	}
	return b, StatusOK
}

// expireByAge advances the tail past any entry older than MaxAge.
func (b *Bus) expireByAge(now time.Time) {
	if b.cfg.MaxAge <= 0 {
		return
	}
	for b.count > 0 {
		e := &b.ring[b.tail]
		if !e.valid || now.Sub(e.publishedAt) < b.cfg.MaxAge {
			break
		}
		b.invalidateTail()
	}
}

func (b *Bus) invalidateTail() {
	b.ring[b.tail] = busEntry{}
	b.tail = (b.tail + 1) % len(b.ring)
	b.count--
}

// Publish appends a new entry, evicting the oldest if full, per spec.md §4.7.
func (b *Bus) Publish(data []byte) Status {
	now := time.Now()
	b.expireByAge(now)

	if b.cfg.MaxEntrySize > 0 && len(data) > b.cfg.MaxEntrySize {
		return StatusInvalid
	}

	if b.count == len(b.ring) {
		b.invalidateTail()
	}

	payload := make([]byte, len(data))
	copy(payload, data)

	b.ring[b.head] = busEntry{payload: payload, publishedAt: now, valid: true}
	b.head = (b.head + 1) % len(b.ring)
	b.count++
	return StatusOK
}

// Subscribe registers a new subscriber, so it only sees entries published
// after subscribing: every entry already in the ring is marked read by this
// subscriber's bit up front, since the readersMask is the only gate Read
// consults.
func (b *Bus) Subscribe(actor ActorID) (int, Status) {
	if b.nSubs >= b.cfg.MaxSubscribers {
		return -1, StatusNoMem
	}
	for i := range b.subs {
		if !b.subs[i].active {
			bit := uint32(1) << uint(i)
			b.subs[i] = busSubscriber{actor: actor, active: true, bit: bit}
			for j := 0; j < b.count; j++ {
				idx := (b.tail + j) % len(b.ring)
				b.ring[idx].readersMask |= bit
			}
			b.nSubs++
			return i, StatusOK
		}
	}
	return -1, StatusNoMem
}

// Unsubscribe removes a subscriber slot.
func (b *Bus) Unsubscribe(slot int) Status {
	if slot < 0 || slot >= len(b.subs) || !b.subs[slot].active {
		return StatusInvalid
	}
	b.subs[slot] = busSubscriber{}
	b.nSubs--
	return StatusOK
}

// Read performs one non-blocking read for subscriber slot, per spec.md
// §4.7: walk from tail to head, return the first entry not yet marked read
// by this subscriber, truncate to max_len, apply reader-count expiry.
func (b *Bus) Read(slot int, buf []byte) (int, Status) {
	if slot < 0 || slot >= len(b.subs) || !b.subs[slot].active {
		return 0, StatusInvalid
	}
	sub := &b.subs[slot]
	b.expireByAge(time.Now())

	for i := 0; i < b.count; i++ {
		idx := (b.tail + i) % len(b.ring)
		e := &b.ring[idx]
		if !e.valid || e.readersMask&sub.bit != 0 {
			continue
		}
		copy(buf, e.payload)
		n := len(e.payload)
		e.readersMask |= sub.bit
		e.readCount++

		if b.cfg.MaxReaders > 0 && e.readCount >= b.cfg.MaxReaders {
			b.invalidateEntryAt(idx)
		}
		return n, StatusOK
	}
	return 0, StatusWouldBlock
}

// invalidateEntryAt frees the entry at idx; if idx is the current tail the
// tail is advanced and compacted, otherwise the slot is just marked invalid
// and skipped by future scans (it will fall out of the window as the tail
// advances past it).
func (b *Bus) invalidateEntryAt(idx int) {
	b.ring[idx].valid = false
	for b.count > 0 && !b.ring[b.tail].valid {
		b.ring[b.tail] = busEntry{}
		b.tail = (b.tail + 1) % len(b.ring)
		b.count--
	}
}

// ReadWait cooperatively polls Read, yielding the calling actor between
// attempts, until data arrives or timeoutMs elapses.
func (c *ActorContext) ReadWait(id BusID, slot int, buf []byte, timeoutMs int64) (int, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		b, st := c.rt.buses.get(id)
		if !st.Ok() {
			return 0, st
		}
		n, st := b.Read(slot, buf)
		if st.Code != WOULDBLOCK {
			return n, st
		}
		if timeoutMs >= 0 && time.Now().After(deadline) {
			return 0, StatusTimeout
		}
		c.Yield()
	}
}

// BusCreate allocates a new topic bus.
func (c *ActorContext) BusCreate(cfg BusConfig) (BusID, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	if cfg.Capacity > c.rt.opts.maxBusEntries {
		return 0, StatusInvalid
	}
	if len(c.rt.buses.buses) >= c.rt.opts.maxBuses {
		return 0, StatusNoMem
	}
	return c.rt.buses.Create(cfg)
}

// BusDestroy removes a topic bus. Fails if subscribers remain.
func (c *ActorContext) BusDestroy(id BusID) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	return c.rt.buses.Destroy(id)
}

// BusPublish appends an entry to a topic bus.
func (c *ActorContext) BusPublish(id BusID, data []byte) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	b, st := c.rt.buses.get(id)
	if !st.Ok() {
		return st
	}
	return b.Publish(data)
}

// BusSubscribe registers the calling actor as a subscriber, returning a
// subscriber handle used by subsequent Read/ReadWait/Unsubscribe calls.
func (c *ActorContext) BusSubscribe(id BusID) (int, Status) {
	if !c.requireRunning() {
		return -1, StatusNotFromActor
	}
	b, st := c.rt.buses.get(id)
	if !st.Ok() {
		return -1, st
	}
	return b.Subscribe(c.actor.id)
}

// BusUnsubscribe removes the calling actor's subscription.
func (c *ActorContext) BusUnsubscribe(id BusID, slot int) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	b, st := c.rt.buses.get(id)
	if !st.Ok() {
		return st
	}
	return b.Unsubscribe(slot)
}

// BusRead performs one non-blocking read for the given subscriber handle.
func (c *ActorContext) BusRead(id BusID, slot int, buf []byte) (int, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	b, st := c.rt.buses.get(id)
	if !st.Ok() {
		return 0, st
	}
	return b.Read(slot, buf)
}

// BusEntryCount returns the number of currently valid entries in a bus.
func (c *ActorContext) BusEntryCount(id BusID) (int, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	b, st := c.rt.buses.get(id)
	if !st.Ok() {
		return 0, st
	}
	return b.EntryCount(), StatusOK
}

// EntryCount returns the number of currently valid entries in the bus.
func (b *Bus) EntryCount() int {
	n := 0
	for i := 0; i < b.count; i++ {
		idx := (b.tail + i) % len(b.ring)
		if b.ring[idx].valid {
			n++
		}
	}
	return n
}
