package source

import "testing"

func TestSourceFileLines(t *testing.T) {
	sf := FromFile("testdata/suites/define.yaml", "name: define\r\ntests: []\n")

	if sf.Name != "define.yaml" || !sf.IsFile() {
		t.Fatalf("unexpected metadata: %+v", sf)
	}
	if got := sf.DisplayPath(); got != "testdata/suites/define.yaml" {
		t.Errorf("DisplayPath() = %q", got)
	}
	if line, ok := sf.Line(1); !ok || line != "name: define" {
		t.Errorf("Line(1) = %q, %v", line, ok)
	}
	if line, ok := sf.Line(3); !ok || line != "" {
		t.Errorf("Line(3) = %q, %v", line, ok)
	}
	for _, n := range []int{0, 4} {
		if _, ok := sf.Line(n); ok {
			t.Errorf("Line(%d) should be out of range", n)
		}
	}

	inline := NewInlineSource("x")
	if inline.IsFile() || inline.DisplayPath() != "<inline>" {
		t.Errorf("inline source reported as %q", inline.DisplayPath())
	}

	var missing *SourceFile
	if _, ok := missing.Line(1); ok {
		t.Errorf("nil source has no lines")
	}
}
