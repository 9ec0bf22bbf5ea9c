package chat

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringListScanToleratesAndReportsCorruptData(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restoreGlobals := zap.ReplaceGlobals(zap.New(core))
	defer restoreGlobals()

	var list StringList
	if err := list.Scan("{broken"); err != nil {
		t.Fatalf("expected corrupt data to degrade, got error %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list after corrupt scan, got %v", list)
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "discarding corrupt keyword list" {
		t.Fatalf("expected a single corruption report, got %+v", entries)
	}

	if err := list.Scan(`["work","lunch"]`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0] != "work" {
		t.Fatalf("expected decoded keywords, got %v", list)
	}
}
