package adc

import "sync"

// latest holds the most recent reading of a streaming source.
type latest struct {
	mu    sync.RWMutex
	value int
	ok    bool
	err   error
}

func (l *latest) set(v int) {
	l.mu.Lock()
	l.value = v
	l.ok = true
	l.mu.Unlock()
}

// fail makes every following get return err.
func (l *latest) fail(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

// reset forgets the value and any failure.
func (l *latest) reset() {
	l.mu.Lock()
	l.value, l.ok, l.err = 0, false, nil
	l.mu.Unlock()
}

func (l *latest) get() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.err != nil {
		return 0, l.err
	}
	if !l.ok {
		return 0, ErrNoSample
	}
	return l.value, nil
}
