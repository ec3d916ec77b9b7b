package bus

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"supportbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "discord", Content: "hello"})

	select {
	case msg := <-b.Subscribe():
		if msg.Content != "hello" {
			t.Fatalf("Content = %q", msg.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestPublishAfterCloseDropped(t *testing.T) {
	b := New(10, testLogger())
	b.Close()
	// Must not panic on the closed channel.
	b.Publish(domain.InboundMessage{Channel: "discord"})
}

func TestOutboundRouting(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	var got atomic.Value
	b.OnOutbound("discord", func(msg domain.OutboundMessage) {
		got.Store(msg.Content)
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "discord", Content: "reply"})
	if v, _ := got.Load().(string); v != "reply" {
		t.Fatalf("handler got %q", v)
	}

	// No handler for this channel: logged and dropped, no panic.
	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", Content: "x"})
}

func TestEventBusEmit(t *testing.T) {
	eb := NewEventBus(testLogger())

	var count atomic.Int32
	eb.On(EventGatewayReady, func(e Event) { count.Add(1) })
	eb.On("*", func(e Event) { count.Add(1) })

	eb.Emit(Event{Type: EventGatewayReady, Source: "discord"})
	if count.Load() != 2 {
		t.Fatalf("handler calls = %d, want 2", count.Load())
	}

	eb.Emit(Event{Type: EventContextReloaded})
	if count.Load() != 3 {
		t.Fatalf("handler calls = %d, want 3", count.Load())
	}
}

func TestEventBusEmitAsync(t *testing.T) {
	eb := NewEventBus(testLogger())

	delivered := make(chan struct{})
	eb.On(EventGatewayReady, func(e Event) { close(delivered) })

	eb.EmitAsync(Event{Type: EventGatewayReady, Source: "discord"})
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("async event never delivered")
	}
}

func TestEventBusOff(t *testing.T) {
	eb := NewEventBus(testLogger())

	var count atomic.Int32
	id := eb.On(EventModelFallback, func(e Event) { count.Add(1) })
	eb.Off(EventModelFallback, id)

	eb.Emit(Event{Type: EventModelFallback})
	if count.Load() != 0 {
		t.Fatalf("removed handler still called %d times", count.Load())
	}
}

func TestEventBusHandlerPanicContained(t *testing.T) {
	eb := NewEventBus(testLogger())

	var after atomic.Bool
	eb.On(EventQuestionReceived, func(e Event) { panic("boom") })
	eb.On(EventQuestionReceived, func(e Event) { after.Store(true) })

	eb.Emit(Event{Type: EventQuestionReceived})
	if !after.Load() {
		t.Fatal("handler after panicking one was not called")
	}
}
