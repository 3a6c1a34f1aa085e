package gallery

import (
	"context"
	"sync"
	"time"
)

const DefaultSlideshowInterval = 5 * time.Second

// Slideshow cycles an index over n images. Next and Prev wrap around. When
// started, it advances on a fixed interval and reports each new index.
type Slideshow struct {
	interval time.Duration

	mu      sync.Mutex
	n       int
	index   int
	running bool
	stop    chan struct{}
	done    chan struct{}
	ticks   chan int
}

// NewSlideshow creates a slideshow over n images positioned at start.
func NewSlideshow(n, start int, interval time.Duration) *Slideshow {
	if interval <= 0 {
		interval = DefaultSlideshowInterval
	}
	s := &Slideshow{n: n, interval: interval}
	if n > 0 {
		s.index = ((start % n) + n) % n
	}
	return s
}

func (s *Slideshow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func (s *Slideshow) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Next advances to the following image, wrapping to the first.
func (s *Slideshow) Next() int {
	return s.step(1)
}

// Prev steps back one image, wrapping to the last.
func (s *Slideshow) Prev() int {
	return s.step(-1)
}

func (s *Slideshow) step(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == 0 {
		return 0
	}
	s.index = (s.index + delta + s.n) % s.n
	return s.index
}

// Start begins auto-advancing and returns a channel receiving the index
// after every advance. The channel is closed when Stop is called or ctx is
// done. Calling Start on a running slideshow returns the same channel.
func (s *Slideshow) Start(ctx context.Context) <-chan int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return s.ticks
	}

	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.ticks = make(chan int)
	go s.run(ctx, s.stop, s.done, s.ticks)
	return s.ticks
}

func (s *Slideshow) run(ctx context.Context, stop, done chan struct{}, ticks chan int) {
	defer close(done)
	defer close(ticks)
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
	}()

	if s.Len() == 0 {
		return
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-t.C:
			idx := s.Next()
			select {
			case ticks <- idx:
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}
}

// Stop halts auto-advance and waits for the ticker goroutine to exit. It is
// safe to call more than once, and after ctx is cancelled.
func (s *Slideshow) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether auto-advance is on. It turns false once the
// context passed to Start is done.
func (s *Slideshow) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
