package usecase

import (
	"context"
	"testing"
	"time"
)

const midVol = 0.007 // mid bucket: 3% stop, 15 minute ratchet interval

func TestDynamicStopPercent(t *testing.T) {
	cases := []struct {
		vol  float64
		want string
	}{
		{0.001, "0.02"},
		{0.004999, "0.02"},
		{0.005, "0.03"},
		{0.009999, "0.03"},
		{0.01, "0.05"},
		{0.5, "0.05"},
	}
	for _, c := range cases {
		if got := DynamicStopPercent(c.vol); !got.Equal(dec(c.want)) {
			t.Errorf("vol %v: expected %s, got %s", c.vol, c.want, got)
		}
	}
}

func TestReevalIntervalWidensWithVolatility(t *testing.T) {
	if ReevalInterval(0.001) != 5*time.Minute {
		t.Errorf("low vol: got %v", ReevalInterval(0.001))
	}
	if ReevalInterval(midVol) != 15*time.Minute {
		t.Errorf("mid vol: got %v", ReevalInterval(midVol))
	}
	if ReevalInterval(0.02) != 30*time.Minute {
		t.Errorf("high vol: got %v", ReevalInterval(0.02))
	}
}

func TestStopRatchetNeverLowers(t *testing.T) {
	ctx := context.Background()
	repo := newMemStopRepo()
	tracker := NewStopLossTracker(repo, dec("0.03"), testLogger())

	now := time.Now()
	tracker.now = func() time.Time { return now }

	if err := tracker.Seed(ctx, "BTCUSDT", dec("100")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	stop, _ := repo.GetStopLoss(ctx, "BTCUSDT")
	if !stop.StopPrice.Equal(dec("97")) {
		t.Fatalf("seed stop: expected 97, got %s", stop.StopPrice)
	}

	triggered, err := tracker.Evaluate(ctx, "BTCUSDT", dec("120"), midVol)
	if err != nil || triggered {
		t.Fatalf("evaluate at 120: triggered=%v err=%v", triggered, err)
	}
	stop, _ = repo.GetStopLoss(ctx, "BTCUSDT")
	if !stop.PeakPrice.Equal(dec("120")) || !stop.StopPrice.Equal(dec("116.4")) {
		t.Fatalf("after 120: peak=%s stop=%s", stop.PeakPrice, stop.StopPrice)
	}

	// Price falls back under the ratcheted stop: the stop holds and fires.
	now = now.Add(20 * time.Minute)
	triggered, err = tracker.Evaluate(ctx, "BTCUSDT", dec("110"), midVol)
	if err != nil {
		t.Fatalf("evaluate at 110: %v", err)
	}
	if !triggered {
		t.Fatal("expected trigger at 110 with stop 116.4")
	}
	stop, _ = repo.GetStopLoss(ctx, "BTCUSDT")
	if !stop.StopPrice.Equal(dec("116.4")) {
		t.Errorf("stop moved on trigger: %s", stop.StopPrice)
	}
}

func TestStopRatchetGatedByInterval(t *testing.T) {
	ctx := context.Background()
	repo := newMemStopRepo()
	tracker := NewStopLossTracker(repo, dec("0.03"), testLogger())

	now := time.Now()
	tracker.now = func() time.Time { return now }

	if err := tracker.Seed(ctx, "BTCUSDT", dec("100")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := tracker.Evaluate(ctx, "BTCUSDT", dec("120"), midVol); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}

	// Within the interval the ratchet is skipped even though the peak rose.
	now = now.Add(5 * time.Minute)
	if _, err := tracker.Evaluate(ctx, "BTCUSDT", dec("130"), midVol); err != nil {
		t.Fatalf("gated evaluate: %v", err)
	}
	stop, _ := repo.GetStopLoss(ctx, "BTCUSDT")
	if !stop.PeakPrice.Equal(dec("120")) {
		t.Fatalf("peak moved inside the interval: %s", stop.PeakPrice)
	}

	// Past the interval the same price ratchets.
	now = now.Add(15 * time.Minute)
	if _, err := tracker.Evaluate(ctx, "BTCUSDT", dec("130"), midVol); err != nil {
		t.Fatalf("post-interval evaluate: %v", err)
	}
	stop, _ = repo.GetStopLoss(ctx, "BTCUSDT")
	if !stop.PeakPrice.Equal(dec("130")) || !stop.StopPrice.Equal(dec("126.1")) {
		t.Errorf("after gate: peak=%s stop=%s", stop.PeakPrice, stop.StopPrice)
	}
}

func TestEvaluateWithoutStopNeverFires(t *testing.T) {
	tracker := NewStopLossTracker(newMemStopRepo(), dec("0.03"), testLogger())
	triggered, err := tracker.Evaluate(context.Background(), "ETHUSDT", dec("50"), midVol)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if triggered {
		t.Fatal("unarmed symbol fired")
	}
}

func TestClearRemovesStop(t *testing.T) {
	ctx := context.Background()
	repo := newMemStopRepo()
	tracker := NewStopLossTracker(repo, dec("0.03"), testLogger())

	if err := tracker.Seed(ctx, "BTCUSDT", dec("100")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := tracker.Clear(ctx, "BTCUSDT"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	armed, err := tracker.Armed(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("armed: %v", err)
	}
	if armed {
		t.Fatal("stop survived clear")
	}
}
