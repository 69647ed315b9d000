package result

import (
	"testing"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

func TestNew(t *testing.T) {
	tr := trade.Reconstruct(42, trade.Attrs{Status: trade.StatusAlleged, UpdateTime: time.Now()})
	s := New(tr, 87.5)

	if s.Trade().ID() != 42 {
		t.Errorf("Trade().ID() = %d", s.Trade().ID())
	}
	if s.Score() != 87.5 {
		t.Errorf("Score() = %f", s.Score())
	}
	if !s.IsScored() {
		t.Error("IsScored() = false")
	}
}

func TestUnscored(t *testing.T) {
	s := Unscored(trade.Reconstruct(7, trade.Attrs{}))
	if s.IsScored() || s.Score() != 0 {
		t.Errorf("Unscored: scored=%v score=%f", s.IsScored(), s.Score())
	}
}
