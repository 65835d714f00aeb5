package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

type Spinner struct {
	chars    []string
	delay    time.Duration
	message  string
	out      io.Writer
	width    int
	active   bool
	mu       sync.Mutex
	stopChan chan bool
	done     chan struct{}
}

// New returns a spinner drawing on stderr.
func New(message string) *Spinner {
	return NewWithWriter(os.Stderr, message)
}

func NewWithWriter(out io.Writer, message string) *Spinner {
	return &Spinner{
		chars:    []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		delay:    100 * time.Millisecond,
		message:  message,
		out:      out,
		stopChan: make(chan bool, 1),
	}
}

// Enabled reports whether f is a terminal a spinner can redraw in place.
func Enabled(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.delay)
		defer ticker.Stop()

		for i := 0; ; i++ {
			s.render(s.chars[i%len(s.chars)])
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) render(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("%s %s", frame, s.message)
	pad := ""
	if n := len(line); n < s.width {
		pad = strings.Repeat(" ", s.width-n)
	}
	fmt.Fprintf(s.out, "\r%s%s", line, pad)
	s.width = max(s.width, len(line))
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	done := s.done
	s.mu.Unlock()

	s.stopChan <- true
	<-done

	// Clear the spinner line completely
	s.mu.Lock()
	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.width)+"\r")
	s.width = 0
	s.mu.Unlock()
}

func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}
