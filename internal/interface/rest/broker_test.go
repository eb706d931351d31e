package restservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker(t *testing.T) {
	t.Parallel()

	t.Run("newListener", func(t *testing.T) {
		topics := []string{"item_for_sale", "ITEM_BOUGHT"}
		listener := newListener[string]("test-id", topics)

		require.NotNil(t, listener)
		require.Equal(t, "test-id", listener.id)
		require.NotNil(t, listener.ch)
		require.Len(t, listener.topics, 2)

		// topics are lowercased
		require.Contains(t, listener.topics, "item_for_sale")
		require.Contains(t, listener.topics, "item_bought")
	})

	t.Run("includesAny", func(t *testing.T) {
		listener := newListener[string]("test-id", []string{"item_for_sale"})

		require.True(t, listener.includesAny([]string{"item_for_sale"}))
		require.True(t, listener.includesAny([]string{"ITEM_FOR_SALE"}))
		require.False(t, listener.includesAny([]string{"item_bought"}))

		// a listener without topics receives everything
		all := newListener[string]("all", nil)
		require.True(t, all.includesAny([]string{"item_bought"}))
	})

	t.Run("pushListener and removeListener", func(t *testing.T) {
		broker := newBroker[string]()
		listener := newListener[string]("test-id", nil)

		broker.pushListener(listener)
		require.True(t, broker.hasListeners())

		ch, err := broker.getListenerChannel("test-id")
		require.NoError(t, err)
		require.Equal(t, listener.ch, ch)

		broker.removeListener("test-id")
		require.False(t, broker.hasListeners())

		_, err = broker.getListenerChannel("test-id")
		require.Error(t, err)

		require.NotPanics(t, func() {
			broker.removeListener("non-existent")
		})
	})

	t.Run("removeListener closes done channel", func(t *testing.T) {
		broker := newBroker[string]()
		l := newListener[string]("test-id", nil)
		broker.pushListener(l)

		select {
		case <-l.done:
			require.Fail(t, "done closed before removeListener")
		default:
		}

		broker.removeListener("test-id")

		select {
		case <-l.done:
		default:
			require.Fail(t, "done not closed after removeListener")
		}
	})

	t.Run("closeDone is idempotent", func(t *testing.T) {
		l := newListener[string]("test-id", nil)
		require.NotPanics(t, func() {
			l.closeDone()
			l.closeDone()
		})
	})

	t.Run("fanout delivers to matching listeners", func(t *testing.T) {
		broker := newBroker[string]()
		sales := newListener[string]("sales", []string{"item_for_sale"})
		purchases := newListener[string]("purchases", []string{"item_bought"})
		broker.pushListener(sales)
		broker.pushListener(purchases)

		broker.fanout("msg", "item_for_sale")

		select {
		case msg := <-sales.ch:
			require.Equal(t, "msg", msg)
		case <-time.After(time.Second):
			require.Fail(t, "message not delivered")
		}

		select {
		case <-purchases.ch:
			require.Fail(t, "message delivered to wrong listener")
		default:
		}
	})

	t.Run("fanout after remove does not panic or block", func(t *testing.T) {
		broker := newBroker[string]()
		l := newListener[string]("test-id", nil)
		broker.pushListener(l)
		broker.removeListener("test-id")

		done := make(chan struct{})
		require.NotPanics(t, func() {
			go func() {
				defer close(done)
				broker.fanout("msg", "item_for_sale")
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				require.Fail(t, "fanout blocked after removal")
			}
		})
	})

	t.Run("fanout drops message when channel is full", func(t *testing.T) {
		broker := newBroker[string]()
		l := newListener[string]("test-id", nil)
		broker.pushListener(l)

		for i := 0; i < cap(l.ch); i++ {
			l.ch <- "fill"
		}

		require.NotPanics(t, func() {
			broker.fanout("overflow", "item_for_sale")
		})
		require.Len(t, l.ch, cap(l.ch))
	})
}
