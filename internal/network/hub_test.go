package network

import (
	"testing"

	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

func event(turn int) api.ActionEvent {
	return api.ActionEvent{SessionID: "s1", Turn: turn}
}

func TestPublishReachesSessionWatchers(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Subscribe("s1", "w1")
	ch2 := hub.Subscribe("s1", "w2")
	other := hub.Subscribe("s2", "w3")

	hub.Publish("s1", event(1))

	if ev := <-ch1; ev.Turn != 1 {
		t.Errorf("w1 got %+v", ev)
	}
	if ev := <-ch2; ev.Turn != 1 {
		t.Errorf("w2 got %+v", ev)
	}

	select {
	case ev := <-other:
		t.Errorf("s2 watcher got foreign event %+v", ev)
	default:
	}
}

func TestPublishNeverBlocksOnSlowWatcher(t *testing.T) {
	hub := NewHub()
	hub.Subscribe("s1", "slow")

	// Никто не читает: буфер переполняется, лишние события теряются молча
	for i := 0; i < 200; i++ {
		hub.Publish("s1", event(i))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("s1", "w1")
	hub.Unsubscribe("s1", "w1")

	if _, ok := <-ch; ok {
		t.Error("channel must be closed after unsubscribe")
	}
	if hub.WatcherCount("s1") != 0 {
		t.Errorf("watchers = %d, want 0", hub.WatcherCount("s1"))
	}

	// Повторная отписка - no-op
	hub.Unsubscribe("s1", "w1")
}

func TestResubscribeReplacesChannel(t *testing.T) {
	hub := NewHub()
	old := hub.Subscribe("s1", "w1")
	fresh := hub.Subscribe("s1", "w1")

	if _, ok := <-old; ok {
		t.Error("old channel must be closed on resubscribe")
	}

	hub.Publish("s1", event(5))
	if ev := <-fresh; ev.Turn != 5 {
		t.Errorf("fresh channel got %+v", ev)
	}
	if hub.WatcherCount("s1") != 1 {
		t.Errorf("watchers = %d, want 1", hub.WatcherCount("s1"))
	}
}

func TestDropSessionClosesAllWatchers(t *testing.T) {
	hub := NewHub()
	ch1 := hub.Subscribe("s1", "w1")
	ch2 := hub.Subscribe("s1", "w2")

	hub.DropSession("s1")

	if _, ok := <-ch1; ok {
		t.Error("w1 channel must be closed")
	}
	if _, ok := <-ch2; ok {
		t.Error("w2 channel must be closed")
	}
	if hub.WatcherCount("s1") != 0 {
		t.Errorf("watchers = %d, want 0", hub.WatcherCount("s1"))
	}
}
