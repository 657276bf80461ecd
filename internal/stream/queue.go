package stream

import "sync"

// dropQueue ist eine begrenzte Warteschlange mit Drop-Oldest-Semantik: ist
// sie voll, verdrängt ein neuer Eintrag den ältesten. Das bevorzugt Aktualität
// vor Vollständigkeit und ist für eine Live-Anzeige die richtige Wahl.
type dropQueue[T any] struct {
	mu sync.Mutex
	ch chan T
	// onDrop wird für jeden verdrängten Eintrag aufgerufen, etwa um native
	// Ressourcen freizugeben. Darf nil sein.
	onDrop func(T)
}

func newDropQueue[T any](capacity int, onDrop func(T)) *dropQueue[T] {
	return &dropQueue[T]{
		ch:     make(chan T, capacity),
		onDrop: onDrop,
	}
}

// Push fügt einen Eintrag ein und verdrängt bei voller Warteschlange den
// ältesten.
func (q *dropQueue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case q.ch <- item:
			return
		default:
		}
		select {
		case oldest := <-q.ch:
			if q.onDrop != nil {
				q.onDrop(oldest)
			}
		default:
		}
	}
}

// Chan gibt den Lesekanal der Warteschlange zurück.
func (q *dropQueue[T]) Chan() <-chan T {
	return q.ch
}

// Len gibt die aktuelle Anzahl wartender Einträge zurück.
func (q *dropQueue[T]) Len() int {
	return len(q.ch)
}

// Drain leert die Warteschlange und ruft onDrop für jeden Eintrag auf.
func (q *dropQueue[T]) Drain() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case item := <-q.ch:
			if q.onDrop != nil {
				q.onDrop(item)
			}
		default:
			return
		}
	}
}
