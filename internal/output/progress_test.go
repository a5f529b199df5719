package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestProgressBarLine(t *testing.T) {
	p := NewProgress(12, "Interpreting scan steps")

	tests := []struct {
		current int
		counter string
		percent string
	}{
		{0, "0/12", "  0%"},
		{5, "5/12", " 41%"},
		{12, "12/12", "100%"},
	}

	for _, tt := range tests {
		p.current = tt.current
		line := p.line()

		if !strings.HasPrefix(line, "[") || !strings.Contains(line, "]") {
			t.Errorf("line should contain the bar, got: %q", line)
		}
		if !strings.Contains(line, tt.counter) {
			t.Errorf("line at %d should show %q, got: %q", tt.current, tt.counter, line)
		}
		if !strings.Contains(line, tt.percent) {
			t.Errorf("line at %d should show %q, got: %q", tt.current, tt.percent, line)
		}
		if !strings.HasSuffix(line, "Interpreting scan steps") {
			t.Errorf("line should end with the description, got: %q", line)
		}
	}
}

func TestProgressBarCapsAtTotal(t *testing.T) {
	p := NewProgress(10, "Test")
	p.SetWriter(&bytes.Buffer{})

	p.IncrementBy(15)
	if p.current != 10 {
		t.Errorf("IncrementBy over total: current = %d, want 10", p.current)
	}

	p.SetCurrent(20)
	if p.current != 10 {
		t.Errorf("SetCurrent over total: current = %d, want 10", p.current)
	}
}

func TestProgressBarNonTTYEmitsOnlyCompletedLine(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(3, "Steps")
	p.SetWriter(buf)

	p.Increment()
	p.Increment()
	if buf.Len() != 0 {
		t.Errorf("non-TTY writer should stay silent before completion, got: %q", buf.String())
	}

	p.Increment()
	output := buf.String()
	if !strings.Contains(output, "3/3") || !strings.Contains(output, "100%") {
		t.Errorf("completion should emit the full line, got: %q", output)
	}

	// Finish after the completed line was already emitted must not
	// duplicate it.
	p.Finish()
	if got := buf.String(); got != output {
		t.Errorf("Finish() duplicated the completed line: %q", got)
	}
}

func TestProgressBarFinishCompletes(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(100, "Complete")
	p.SetWriter(buf)

	p.SetCurrent(75)
	p.Finish()
	output := buf.String()

	if !strings.Contains(output, "100/100") || !strings.Contains(output, "100%") {
		t.Errorf("Finish() should show completion, got: %q", output)
	}
	if !strings.HasSuffix(strings.TrimSpace(output), "Complete") {
		t.Errorf("Finish() should end with description, got: %q", output)
	}
}

func TestProgressBarZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(0, "Empty")
	p.SetWriter(buf)

	// Must not panic or divide by zero.
	p.Increment()
	output := buf.String()

	if !strings.Contains(output, "[") || !strings.Contains(output, "]") {
		t.Errorf("progress bar with zero total should still render, got: %q", output)
	}
}

func TestProgressBarWidth(t *testing.T) {
	p := NewProgress(100, "Test")
	p.SetWidth(20)
	p.current = 50

	line := p.line()
	start := strings.Index(line, "[")
	end := strings.Index(line, "]")
	if start == -1 || end == -1 {
		t.Fatalf("could not find brackets in line: %q", line)
	}

	barContent := line[start+1 : end]
	if len(barContent) != 20 {
		t.Errorf("progress bar width should be 20, got %d: %q", len(barContent), barContent)
	}
}

// TestProgressBarConcurrent tests thread safety
func TestProgressBarConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(1000, "Concurrent test")
	p.SetWriter(buf)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				p.Increment()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if p.current != 1000 {
		t.Errorf("after concurrent increments: current = %d, want 1000", p.current)
	}
}

func TestSpinner_Basic(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Loading")
	s.SetWriter(buf)
	s.Start()

	// Give it a moment to start
	time.Sleep(150 * time.Millisecond)

	s.Stop()
	output := buf.String()

	// Non-TTY start prints the message once.
	if !strings.Contains(output, "Loading") {
		t.Errorf("Spinner should print its message, got: %q", output)
	}
}

func TestSpinner_MultipleStops(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Test")
	s.SetWriter(buf)
	s.Start()

	// Multiple stops should not panic
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Never started")
	s.SetWriter(buf)

	// Stop on a spinner that never ran must be a no-op.
	s.Stop()
	if buf.Len() != 0 {
		t.Errorf("Stop() without Start() should not write, got: %q", buf.String())
	}
}

func TestSpinner_UpdateMessage(t *testing.T) {
	s := NewSpinner("Initial")
	s.UpdateMessage("Updated")

	s.mu.Lock()
	got := s.message
	s.mu.Unlock()
	if got != "Updated" {
		t.Errorf("message = %q, want %q", got, "Updated")
	}
}

func TestSpinner_StopWithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Working")
	s.SetWriter(buf)
	s.Start()

	s.StopWithMessage("Done!")

	output := buf.String()
	if !strings.Contains(output, "Done!") {
		t.Errorf("Spinner should contain final message, got: %q", output)
	}
}

// TestSpinner_Concurrent tests spinner thread safety
func TestSpinner_Concurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Concurrent spinner")
	s.SetWriter(buf)
	s.Start()

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				s.UpdateMessage("Message from goroutine")
				time.Sleep(time.Millisecond)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}

	s.Stop()
	// Should not panic or race
}

// Benchmark tests
func BenchmarkProgressBar_Increment(b *testing.B) {
	buf := &bytes.Buffer{}
	p := NewProgress(b.N, "Benchmark")
	p.SetWriter(buf)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Increment()
	}
}

func BenchmarkFormatSize(b *testing.B) {
	sizes := []int64{
		512,
		1024 * 1024,
		1024 * 1024 * 1024,
		10 * 1024 * 1024 * 1024,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		formatSize(sizes[i%len(sizes)])
	}
}

func BenchmarkFormatRelativeTime(b *testing.B) {
	times := []time.Time{
		time.Now().Add(-30 * time.Second),
		time.Now().Add(-5 * time.Minute),
		time.Now().Add(-2 * time.Hour),
		time.Now().Add(-3 * 24 * time.Hour),
		time.Now().Add(-30 * 24 * time.Hour),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		formatRelativeTime(times[i%len(times)])
	}
}
