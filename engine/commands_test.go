package engine

import "testing"

func TestCommandBufferOrderingAndDrain(t *testing.T) {
	b := &commandBuffer{}
	b.push(Command{Kind: CommandStartTimer, TimerID: "0"})
	b.push(Command{Kind: CommandScheduleActivity, ActivityID: "1"})

	if b.len() != 2 {
		t.Fatalf("expected len 2, got %d", b.len())
	}

	drained := b.drain()
	if len(drained) != 2 || drained[0].Kind != CommandStartTimer || drained[1].Kind != CommandScheduleActivity {
		t.Fatalf("unexpected drain order: %+v", drained)
	}
	if b.len() != 0 {
		t.Fatal("expected buffer empty after drain")
	}
}
