package cli

import (
	"bytes"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "TYPE", "NETDEV", "SYSFS")
	tbl.Row("rx", "4", "4")
	tbl.Row("tx", "16", "16")
	tbl.Flush()

	want := "TYPE  NETDEV  SYSFS\n" +
		"----  ------  -----\n" +
		"rx    4       4\n" +
		"tx    16      16\n"
	if got := buf.String(); got != want {
		t.Errorf("table output:\n%s\nwant:\n%s", got, want)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "ID", "IRQ")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table wrote %q", buf.String())
	}
}

func TestTablePrefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "ID").WithPrefix("  ")
	tbl.Row("8193")
	tbl.Flush()

	want := "  ID\n  --\n  8193\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTableAbsentCells(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "NAPI", "IRQ", "PID")
	tbl.Row("8193", "40", "")
	tbl.Row("8194")
	tbl.Flush()

	want := "NAPI  IRQ  PID\n" +
		"----  ---  ---\n" +
		"8193  40   -\n" +
		"8194  -    -\n"
	if got := buf.String(); got != want {
		t.Errorf("table output:\n%s\nwant:\n%s", got, want)
	}
}
