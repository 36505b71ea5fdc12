package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/foxglove/mcap/go/mcap"

	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/rosmsg"
)

const (
	schemaEncodingROS2 = "ros2msg"
	messageEncodingCDR = "cdr"
)

// MCAPSource reads an MCAP bag sequentially through the lexer, which
// yields chunked and unchunked records alike in file order. Schemas and
// channels are cached as they appear so later messages can be decoded.
type MCAPSource struct {
	f     *os.File
	lexer *mcap.Lexer
	buf   []byte
	log   *logging.ComponentLogger

	schemas    map[uint16]*rosmsg.Schema
	schemaErrs map[uint16]error
	channels   map[uint16]*mcap.Channel
}

// Open opens the bag at path for a single forward pass.
func Open(path string, log *logging.ComponentLogger) (*MCAPSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bag: %w", err)
	}
	lexer, err := mcap.NewLexer(f, &mcap.LexerOptions{})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open mcap stream: %w", err)
	}
	return &MCAPSource{
		f:          f,
		lexer:      lexer,
		buf:        make([]byte, 1024),
		log:        log,
		schemas:    make(map[uint16]*rosmsg.Schema),
		schemaErrs: make(map[uint16]error),
		channels:   make(map[uint16]*mcap.Channel),
	}, nil
}

// Next returns the next message entry, caching schema and channel records
// it passes on the way. Structural failures such as a corrupt record or a
// message on an undeclared channel end the stream with an error; a payload
// that merely fails to decode is returned as an entry with DecodeErr set.
func (s *MCAPSource) Next() (*Entry, error) {
	for {
		tokenType, data, err := s.lexer.Next(s.buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read mcap stream: %w", err)
		}
		if cap(data) > cap(s.buf) {
			s.buf = data
		}

		switch tokenType {
		case mcap.TokenSchema:
			sch, err := mcap.ParseSchema(data)
			if err != nil {
				return nil, fmt.Errorf("failed to parse schema record: %w", err)
			}
			s.addSchema(sch)
		case mcap.TokenChannel:
			ch, err := mcap.ParseChannel(data)
			if err != nil {
				return nil, fmt.Errorf("failed to parse channel record: %w", err)
			}
			s.channels[ch.ID] = ch
		case mcap.TokenMessage:
			msg, err := mcap.ParseMessage(data)
			if err != nil {
				return nil, fmt.Errorf("failed to parse message record: %w", err)
			}
			ch, ok := s.channels[msg.ChannelID]
			if !ok {
				return nil, fmt.Errorf("message references undeclared channel %d", msg.ChannelID)
			}
			return s.entryFor(ch, msg), nil
		}
	}
}

func (s *MCAPSource) addSchema(sch *mcap.Schema) {
	if sch.Encoding != schemaEncodingROS2 {
		s.schemaErrs[sch.ID] = fmt.Errorf("unsupported schema encoding %q for %s", sch.Encoding, sch.Name)
		return
	}
	parsed, err := rosmsg.ParseSchema(sch.Name, sch.Data)
	if err != nil {
		s.schemaErrs[sch.ID] = fmt.Errorf("failed to parse schema %s: %w", sch.Name, err)
		s.log.Debug().Str("schema", sch.Name).Err(err).Msg("Schema did not parse, its messages will be skipped")
		return
	}
	s.schemas[sch.ID] = parsed
}

func (s *MCAPSource) entryFor(ch *mcap.Channel, msg *mcap.Message) *Entry {
	entry := &Entry{Topic: ch.Topic, LogTimeNs: msg.LogTime}
	if err, ok := s.schemaErrs[ch.SchemaID]; ok {
		entry.DecodeErr = err
		return entry
	}
	schema, ok := s.schemas[ch.SchemaID]
	if !ok {
		entry.DecodeErr = fmt.Errorf("no schema for channel %s", ch.Topic)
		return entry
	}
	if ch.MessageEncoding != messageEncodingCDR {
		entry.DecodeErr = fmt.Errorf("unsupported message encoding %q on channel %s", ch.MessageEncoding, ch.Topic)
		return entry
	}
	decoded, err := rosmsg.DecodeMessage(schema, msg.Data)
	if err != nil {
		entry.DecodeErr = err
		return entry
	}
	entry.Message = decoded
	return entry
}

func (s *MCAPSource) Close() error {
	return s.f.Close()
}
