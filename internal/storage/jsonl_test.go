package storage

import (
	"os"
	"path/filepath"
	"testing"

	"liquidityVault/internal/model"
)

func TestJsonlAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "journal.jsonl")
	journal := NewJsonlJournal(path)

	first := []model.OperationRecord{
		{Seq: 1, Kind: model.OpAcceptPosition, Caller: "0x1111111111111111111111111111111111111111", PositionID: 7, Shares: "1000", RecordedAt: "2026-08-31T00:00:00Z"},
	}
	second := []model.OperationRecord{
		{Seq: 2, Kind: model.OpRemoveLiquidity, Caller: "0x1111111111111111111111111111111111111111", PositionID: 7, Shares: "400", Liquidity: "123", RecordedAt: "2026-08-31T00:01:00Z"},
	}

	if err := journal.AppendOperations(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := journal.AppendOperations(nil); err != nil {
		t.Fatalf("append empty: %v", err)
	}
	if err := journal.AppendOperations(second); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := ReadOperations(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("read %d records, want 2", len(records))
	}
	if records[0].Seq != 1 || records[0].Kind != model.OpAcceptPosition || records[0].Shares != "1000" {
		t.Fatalf("first record mismatch: %+v", records[0])
	}
	if records[1].Seq != 2 || records[1].Liquidity != "123" {
		t.Fatalf("second record mismatch: %+v", records[1])
	}
}

func TestReadOperationsRejectsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	if err := os.WriteFile(path, []byte("{not json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadOperations(path); err == nil {
		t.Fatalf("expected error for malformed journal line")
	}

	if err := os.WriteFile(path, []byte(`{"seq":1,"kind":"mint","caller":"0x1111111111111111111111111111111111111111"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadOperations(path); err == nil {
		t.Fatalf("expected error for unknown operation kind")
	}
}
