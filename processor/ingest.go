package processor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/rosmsg"
	"github.com/roskit/mcap2table/source"
)

// Ingestor drives one pass over a bag source, flattening every decodable
// message into its topic bucket. Each row gets the record timestamp set
// under log_timestamp_ns after the payload is flattened, so the injected
// time survives even a payload field with the same name.
type Ingestor struct {
	log           *logging.ComponentLogger
	flattener     *Flattener
	topics        map[string]struct{}
	progressEvery int
}

// IngestStats counts what a pass consumed.
type IngestStats struct {
	MessagesRead    int64
	MessagesSkipped int64
	DecodeFailures  int64
	RowsBuffered    int64
}

// NewIngestor creates an ingestor. topics is an optional allow-list;
// empty means every topic is kept. progressEvery of zero disables
// progress logging.
func NewIngestor(log *logging.ComponentLogger, topics []string, progressEvery int) *Ingestor {
	ing := &Ingestor{
		log:           log,
		flattener:     NewFlattener(log),
		progressEvery: progressEvery,
	}
	if len(topics) > 0 {
		ing.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			ing.topics[t] = struct{}{}
		}
	}
	return ing
}

// Run consumes src until end of stream, buffering rows into set. A
// message that failed to decode is counted and skipped with a warning;
// an unreadable stream aborts the whole pass.
func (ing *Ingestor) Run(ctx context.Context, src source.Source, set *ChannelSet) (IngestStats, error) {
	var stats IngestStats
	for {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("ingest canceled: %w", err)
		}

		entry, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read bag stream: %w", err)
		}

		stats.MessagesRead++
		if ing.progressEvery > 0 && stats.MessagesRead%int64(ing.progressEvery) == 0 {
			ing.log.Info().Int64("messages", stats.MessagesRead).Msg("Ingest progress")
		}

		if ing.topics != nil {
			if _, ok := ing.topics[entry.Topic]; !ok {
				stats.MessagesSkipped++
				continue
			}
		}
		if entry.DecodeErr != nil {
			stats.DecodeFailures++
			ing.log.Warn().
				Str("topic", entry.Topic).
				Err(entry.DecodeErr).
				Msg("Skipping message that failed to decode")
			continue
		}

		row := NewRow()
		ing.flattener.Flatten(entry.Message, "", row)
		row.Set(logTimestampNsKey, rosmsg.UintScalar(entry.LogTimeNs))
		set.Add(entry.Topic, row)
		stats.RowsBuffered++
	}
	return stats, nil
}
