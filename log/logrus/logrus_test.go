package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/concache"
)

func TestLevelsAndFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Debug("d", nil)
	l.Warn("w", concache.Fields{"key": "k"})
	boom := errors.New("boom")
	l.Error("e", concache.Fields{"err": boom, "key": "k"})

	entries := hook.AllEntries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Level != logrus.DebugLevel || entries[1].Level != logrus.WarnLevel {
		t.Fatalf("levels: %v %v", entries[0].Level, entries[1].Level)
	}
	last := hook.LastEntry()
	if last.Data[logrus.ErrorKey] != boom {
		t.Fatalf("error not attached with WithError: %v", last.Data)
	}
	if last.Data["key"] != "k" || last.Data["component"] != "concache" {
		t.Fatalf("fields=%v", last.Data)
	}
}
