package sink

import "testing"

func TestNewSinkFactory(t *testing.T) {
	for _, format := range []string{FormatCSV, FormatParquet, FormatSQLite} {
		t.Run(format, func(t *testing.T) {
			s, err := New(Options{
				Format:    format,
				Directory: t.TempDir(),
				BagName:   "demo_bag",
				RunID:     "run-factory",
			}, testLogger())
			if err != nil {
				t.Fatalf("New(%s) failed: %v", format, err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
		})
	}

	if _, err := New(Options{Format: "xml", Directory: t.TempDir()}, testLogger()); err == nil {
		t.Fatalf("New accepted unknown format")
	}
}
