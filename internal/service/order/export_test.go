package order

import "context"

// FlushEvents waits until every event queued so far has reached the publisher.
func (s *Service) FlushEvents(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.flush(ctx)
}
