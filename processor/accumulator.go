package processor

// ChannelSet buffers flattened rows per topic. Topics keep the order in
// which they first produced a row; rows keep arrival order. Nothing is
// deduplicated or evicted, the whole bag is held until assembly.
type ChannelSet struct {
	order []string
	rows  map[string][]*Row
}

func NewChannelSet() *ChannelSet {
	return &ChannelSet{rows: make(map[string][]*Row)}
}

func (s *ChannelSet) Add(topic string, row *Row) {
	if _, ok := s.rows[topic]; !ok {
		s.order = append(s.order, topic)
	}
	s.rows[topic] = append(s.rows[topic], row)
}

// Topics returns topic names in first-appearance order.
func (s *ChannelSet) Topics() []string {
	return s.order
}

func (s *ChannelSet) Rows(topic string) []*Row {
	return s.rows[topic]
}

func (s *ChannelSet) Empty() bool {
	return len(s.order) == 0
}

func (s *ChannelSet) TotalRows() int {
	n := 0
	for _, rows := range s.rows {
		n += len(rows)
	}
	return n
}
