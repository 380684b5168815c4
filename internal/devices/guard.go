package devices

import "sync"

// Guard serializes access to bench stations. Each station admits one
// exclusive holder at a time; distinct stations do not block each other.
type Guard struct {
	mu       sync.Mutex
	stations map[Station]*sync.Mutex
}

// NewGuard constructs a guard covering every known station.
func NewGuard() *Guard {
	guard := &Guard{stations: make(map[Station]*sync.Mutex, len(Stations()))}
	for _, station := range Stations() {
		guard.stations[station] = new(sync.Mutex)
	}
	return guard
}

// Acquire blocks until the station is exclusively held and returns the
// release function. Release exactly once, immediately after the device
// call returns, fault or not.
func (g *Guard) Acquire(station Station) (release func()) {
	lock := g.lockFor(station)
	lock.Lock()
	var once sync.Once
	return func() {
		once.Do(lock.Unlock)
	}
}

func (g *Guard) lockFor(station Station) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.stations[station]
	if !ok {
		lock = new(sync.Mutex)
		g.stations[station] = lock
	}
	return lock
}
