// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification

import "time"

// SetClock replaces the time source for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
