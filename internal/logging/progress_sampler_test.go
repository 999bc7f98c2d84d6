package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(0)
	if s.bucketSize != 10 {
		t.Fatalf("expected default bucket 10, got %v", s.bucketSize)
	}
	steps := []struct {
		phase   string
		percent float64
		want    bool
	}{
		{"Running main build", 0, true},
		{"Running main build", 4, false},
		{"Running main build", 10.5, true},
		{"Running main build", 12, false},
		{"Running main build", 150, true},
		{"Completed", -1, true},
		{"Completed", -1, false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.phase, step.percent); got != step.want {
			t.Fatalf("step %d: ShouldLog(%q, %v) = %v, want %v", i, step.phase, step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("x", 1) {
		t.Fatal("nil sampler should always log")
	}
}
