package extract

import "github.com/okian/evalharvest/pkg/logger"

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for skip warnings.
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}
