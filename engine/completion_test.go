package engine

import "testing"

func TestCompletionTablePutTakeRemoves(t *testing.T) {
	table := newCompletionTable()
	var resolved any
	table.put(1, &completion{resolve: func(v any) { resolved = v }})

	c := table.take(1)
	if c == nil {
		t.Fatal("expected completion for seq 1")
	}
	c.resolve("value")
	if resolved != "value" {
		t.Fatalf("expected resolved=value, got %v", resolved)
	}

	if table.take(1) != nil {
		t.Fatal("expected second take to return nil")
	}
}

func TestCompletionTableLen(t *testing.T) {
	table := newCompletionTable()
	table.put(1, &completion{})
	table.put(2, &completion{})
	if table.len() != 2 {
		t.Fatalf("expected len 2, got %d", table.len())
	}
	table.take(1)
	if table.len() != 1 {
		t.Fatalf("expected len 1, got %d", table.len())
	}
}
