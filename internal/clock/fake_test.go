package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestFakeClockNowAndAdvance(t *testing.T) {
	c := Fake(epoch)
	assert.True(t, c.Now().Equal(epoch))

	c.Advance(90 * time.Minute)
	assert.True(t, c.Now().Equal(epoch.Add(90*time.Minute)))
}

func TestFakeTickerFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)

	select {
	case <-ticker.C:
		t.Fatal("ticker fired before Advance")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after Advance")
	}
}

func TestFakeTickerStop(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	require.Equal(t, 1, c.PendingCount())

	ticker.Stop()
	assert.Equal(t, 0, c.PendingCount())

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeSetDoesNotFire(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Minute)

	c.Set(epoch.Add(24 * time.Hour))
	select {
	case <-ticker.C:
		t.Fatal("Set fired a ticker")
	default:
	}

	c.Advance(time.Minute)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not resume after Set")
	}
}

func TestSameDay(t *testing.T) {
	assert.True(t, SameDay(epoch, epoch.Add(2*time.Hour)))
	assert.False(t, SameDay(epoch.Add(-24*time.Hour), epoch))
	assert.Equal(t, "2026-03-10", DateKey(epoch))
}
