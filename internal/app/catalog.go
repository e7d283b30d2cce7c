package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/flagged"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
)

// Sources lists candidate datasets and drops those of flagged models.
// Names that do not follow the source naming scheme are kept.
func (s *Service) Sources(ctx context.Context, author, search string) ([]string, error) {
	ids, err := s.hub.ListDatasets(ctx, author, search)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		a, m, err := model.ParseSourceName(id)
		if err == nil && s.flagged.Contains(a, m) {
			metrics.RecordItemFlagged()
			s.logger.Info(ctx, "flagged model skipped", logger.String("source", id))
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// LoadFlagged reads the flagged-model list from a local path or an http(s)
// URL fetched through h. An empty location yields an empty set.
func LoadFlagged(ctx context.Context, h Hub, location, variable string, log logger.Logger) (*flagged.Set, error) {
	if location == "" {
		return flagged.NewSet(), nil
	}
	if log == nil {
		log = logger.Nop()
	}

	var r io.Reader
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		body, err := h.Get(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("flagged list: %w", err)
		}
		r = bytes.NewReader(body)
	} else {
		f, err := os.Open(location) //nolint:gosec // operator-supplied path
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errkind.Wrap(errkind.ErrNotFound, "flagged list "+location, err)
			}
			return nil, fmt.Errorf("flagged list: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	set, err := flagged.Parse(ctx, r, variable, log)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "flagged list loaded", logger.String("location", location), logger.Int("pairs", set.Len()))
	return set, nil
}
