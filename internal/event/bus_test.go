package event

import (
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern  Topic
		concrete Topic
		want     bool
	}{
		{"selection.changed", "selection.changed", true},
		{"selection.*", "selection.changed", true},
		{"*.changed", "selection.changed", true},
		{"*.changed", "page.changed", true},
		{"cell.*", "cell.saved", true},
		{"cell.*", "cell", false},
		{"cell.saved", "cell.cancelled", false},
		{"*", "cell.saved", false},
		{"*.*", "cell.saved", true},
	}

	for _, tt := range tests {
		if got := Match(tt.pattern, tt.concrete); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.concrete, got, tt.want)
		}
	}
}

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		if _, err := b.Subscribe(TopicSelectionChanged, func(Event) {
			order = append(order, i)
		}); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}

	b.Publish(New(TopicSelectionChanged, "t1", SelectionPayload{Selected: 1, Total: 5}))

	if len(order) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("delivery %d went to subscriber %d", i, got)
		}
	}
}

func TestPublishWildcard(t *testing.T) {
	b := NewBus()
	var got []Topic

	if _, err := b.Subscribe("cell.*", func(ev Event) {
		got = append(got, ev.Type)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	b.Publish(New(TopicCellSaved, "t1", CellPayload{}))
	b.Publish(New(TopicCellCancelled, "t1", CellPayload{}))
	b.Publish(New(TopicPageChanged, "t1", PagePayload{}))

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d: %v", len(got), got)
	}
	if got[0] != TopicCellSaved || got[1] != TopicCellCancelled {
		t.Errorf("unexpected topics: %v", got)
	}
}

func TestSubscribeOnce(t *testing.T) {
	b := NewBus()
	count := 0

	if _, err := b.SubscribeOnce(TopicRedraw, func(Event) { count++ }); err != nil {
		t.Fatalf("SubscribeOnce: %v", err)
	}

	b.Publish(New(TopicRedraw, "t1", RedrawPayload{}))
	b.Publish(New(TopicRedraw, "t1", RedrawPayload{}))

	if count != 1 {
		t.Errorf("once handler ran %d times, want 1", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	count := 0

	sub, err := b.Subscribe(TopicSortChanged, func(Event) { count++ })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := b.Unsubscribe(sub); err != ErrNotFound {
		t.Errorf("second Unsubscribe = %v, want ErrNotFound", err)
	}

	b.Publish(New(TopicSortChanged, "t1", SortPayload{}))
	if count != 0 {
		t.Error("handler ran after Unsubscribe")
	}
}

func TestNilHandlerRejected(t *testing.T) {
	b := NewBus()
	if _, err := b.Subscribe(TopicRedraw, nil); err != ErrNilHandler {
		t.Errorf("Subscribe(nil) = %v, want ErrNilHandler", err)
	}
	if _, err := b.Subscribe("", func(Event) {}); err != ErrInvalidTopic {
		t.Errorf("Subscribe(empty topic) = %v, want ErrInvalidTopic", err)
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	b := NewBus()
	ran := false

	if _, err := b.Subscribe(TopicRedraw, func(Event) { panic("boom") }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := b.Subscribe(TopicRedraw, func(Event) { ran = true }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	b.Publish(New(TopicRedraw, "t1", RedrawPayload{}))

	if !ran {
		t.Error("panic in first handler prevented delivery to second")
	}
	if b.Stats().HandlerPanics != 1 {
		t.Errorf("HandlerPanics = %d, want 1", b.Stats().HandlerPanics)
	}
}
