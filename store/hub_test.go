package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubCoalescesSignals(t *testing.T) {
	t.Parallel()

	h := NewHub()
	id, ch := h.add()

	h.Broadcast()
	h.Broadcast()
	h.Broadcast()

	<-ch
	select {
	case <-ch:
		t.Fatal("signals should coalesce into one")
	default:
	}

	h.remove(id)
	assert.Equal(t, 0, h.Len())

	// broadcasting with no subscribers must not block
	h.Broadcast()
}
