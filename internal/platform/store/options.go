package store

import (
	"lakefill/internal/platform/logger"
)

// Option adjusts the Store while Open assembles it. Options run before
// any seam is dialed and an error from one aborts the open
type Option func(*Store) error

// WithLogger hands the store the logger its subclients inherit
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}
