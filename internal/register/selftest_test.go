package register

import "testing"

func configuredFiles(t *testing.T) (*GlobalFile, *PixelFile) {
	t.Helper()
	globals := NewGlobalFile()
	if err := globals.Set("PlsrDAC", 100); err != nil {
		t.Fatal(err)
	}
	pixels := NewPixelFile()
	tdac, err := pixels.Plane("TDAC")
	if err != nil {
		t.Fatal(err)
	}
	tdac.Fill(15)
	enable, err := pixels.Plane("Enable")
	if err != nil {
		t.Fatal(err)
	}
	enable.Fill(1)
	return globals, pixels
}

func TestSelfTestPasses(t *testing.T) {
	globals, pixels := configuredFiles(t)
	tr := NewLoopback(0xC0FFEE)

	report, err := SelfTest(globals, pixels, tr)
	if err != nil {
		t.Fatalf("SelfTest() failed: %v", err)
	}
	if !report.Passed() {
		t.Errorf("mismatches = %+v", report.Mismatches)
	}
	if report.ChipSN != 0xC0FFEE {
		t.Errorf("chip sn = %#x", report.ChipSN)
	}
	if report.Globals == 0 || report.Planes != len(PlaneBits) {
		t.Errorf("coverage: globals = %d, planes = %d", report.Globals, report.Planes)
	}
}

func TestSelfTestSkipsReadonly(t *testing.T) {
	globals, pixels := configuredFiles(t)
	tr := NewLoopback(1)

	report, err := SelfTest(globals, pixels, tr)
	if err != nil {
		t.Fatal(err)
	}
	writable := 0
	for _, reg := range globals.All() {
		if !reg.Readonly {
			writable++
		}
	}
	if report.Globals != writable {
		t.Errorf("globals checked = %d, want %d", report.Globals, writable)
	}
}

func TestSelfTestCountsGlobalMismatch(t *testing.T) {
	globals, pixels := configuredFiles(t)
	tr := NewLoopback(1)

	plsr, err := globals.Get("PlsrDAC")
	if err != nil {
		t.Fatal(err)
	}
	tr.FaultyGlobals = map[uint8]bool{plsr.Address: true}

	report, err := SelfTest(globals, pixels, tr)
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed() {
		t.Fatal("self-test should detect the dropped write")
	}
	// Every writable register sharing the faulty address fails readback.
	for _, m := range report.Mismatches {
		got, err := globals.Get(m.Name)
		if err != nil {
			t.Fatalf("mismatch names unknown register %q", m.Name)
		}
		if got.Address != plsr.Address {
			t.Errorf("unexpected mismatch %+v", m)
		}
	}
}

func TestSelfTestCountsPixelMismatches(t *testing.T) {
	globals, pixels := configuredFiles(t)
	tr := NewLoopback(1)
	tr.FaultyPixels = map[string][]int{
		"Enable": {0, 17, 4000},
	}

	report, err := SelfTest(globals, pixels, tr)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range report.Mismatches {
		if m.Name == "Enable" {
			found = true
			if m.Count != 3 {
				t.Errorf("Enable mismatches = %d, want 3", m.Count)
			}
		}
	}
	if !found {
		t.Error("Enable plane mismatch not reported")
	}
	if report.TotalMismatches() != 3 {
		t.Errorf("total = %d, want 3", report.TotalMismatches())
	}
}
