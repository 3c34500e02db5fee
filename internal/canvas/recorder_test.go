package canvas

import "testing"

func TestRecorder_SaveRestore(t *testing.T) {
	r := NewRecorder(90, 90)
	r.SetFillColor("white")
	r.Save()
	r.SetFillColor("red")
	r.FillRect(0, 0, 1, 1)
	r.Restore()
	r.FillText("A", 2, 3)

	rects := r.Calls("FillRect")
	if len(rects) != 1 || rects[0].Fill != "red" {
		t.Errorf("FillRect ops = %v", rects)
	}
	texts := r.Calls("FillText")
	if len(texts) != 1 || texts[0].Fill != "white" {
		t.Errorf("FillText should use the restored colour, got %+v", texts)
	}
	if got := texts[0].String(); got != `FillText(2, 3, "A")` {
		t.Errorf("String() = %s", got)
	}
}

func TestRecorder_MeasureText(t *testing.T) {
	r := NewRecorder(90, 90)
	r.SetFontSize(20)
	m := r.MeasureText("abc")
	if m.Width < 35.99 || m.Width > 36.01 {
		t.Errorf("Width = %v, want 36", m.Width)
	}
	if h := m.Height(); h < 9.99 || h > 10.01 {
		t.Errorf("Height() = %v, want 10", h)
	}
}

func TestRecorder_Texts(t *testing.T) {
	r := NewRecorder(10, 10)
	r.FillText("one", 0, 0)
	r.FillRect(0, 0, 1, 1)
	r.FillText("two", 0, 0)
	got := r.Texts()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("Texts() = %v", got)
	}
	r.Reset()
	if len(r.Ops) != 0 {
		t.Error("Reset() should drop ops")
	}
}
