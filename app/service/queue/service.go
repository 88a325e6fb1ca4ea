// Package queue decouples the terminal reader from turn processing with
// a bounded buffer.
package queue

import (
	"log/slog"

	"github.com/samber/do"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

type Service struct {
	queue chan string
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		queue: make(chan string, bufferSize),
	}, nil
}

func (s *Service) Add(text string) {
	defer func() {
		if r := recover(); r != nil {

		}
	}()

	select {
	case s.queue <- text:
	default:
		slog.Warn("input queue is full")
	}
}

func (s *Service) Channel() <-chan string {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
