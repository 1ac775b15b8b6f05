package realtime

import (
	"io"
	"sync"
)

// fakeSocket records frames written by the hub and replays scripted reads.
type fakeSocket struct {
	mu     sync.Mutex
	frames []frame
	reads  []error
	closed int
}

type frame struct {
	kind    int
	payload []byte
}

func (s *fakeSocket) WriteMessage(kind int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame{kind: kind, payload: append([]byte(nil), data...)})
	return nil
}

// ReadMessage returns the next scripted error, then io.EOF.
func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reads) == 0 {
		return 0, nil, io.EOF
	}
	err := s.reads[0]
	s.reads = s.reads[1:]
	return 1, nil, err
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSocket) written() []frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame(nil), s.frames...)
}

func (s *fakeSocket) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
