package signal

import (
	"math"

	"scout/pkg/model"
)

// Thresholds maps the oscillator value to an action. Values outside the
// watch/buy band resolve to "hold".
type Thresholds struct {
	Watch float64 // below this: watch
	Buy   float64 // above this: buy
}

// DefaultThresholds returns the stock action mapping.
func DefaultThresholds() Thresholds {
	return Thresholds{Watch: 40, Buy: 55}
}

// Result is the full scoring output for one price series.
type Result struct {
	Trend            string  // Bullish or Bearish
	RSI              float64 // clipped to [0,100]
	VolumeSpike      bool
	Action           string // watch, hold, buy
	Score            float64
	SyntheticHistory bool // series was padded to reach the long EMA window
}

// Scorer derives trend and strength indicators from a candle series.
// Stateless; safe for concurrent use.
type Scorer struct {
	shortWindow int
	longWindow  int
	rsiPeriod   int
	thresholds  Thresholds
}

// NewScorer creates a scorer with the standard 9/21 EMA and 14-period RSI
// windows.
func NewScorer(thresholds Thresholds) *Scorer {
	return &Scorer{
		shortWindow: 9,
		longWindow:  21,
		rsiPeriod:   14,
		thresholds:  thresholds,
	}
}

// Score evaluates a candle series, oldest first. Series shorter than the
// long EMA window are padded by repeating the last close; the result is
// flagged SyntheticHistory so callers can surface the degraded input.
// Empty series score as neutral holds.
func (s *Scorer) Score(candles []model.Candle) Result {
	res := Result{Trend: "Bearish", RSI: 50, Action: "hold"}
	if len(candles) == 0 {
		return res
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	if len(closes) < s.longWindow {
		last := closes[len(closes)-1]
		for len(closes) < s.longWindow {
			closes = append(closes, last)
		}
		res.SyntheticHistory = true
	}

	shortEMA := ema(closes, s.shortWindow)
	longEMA := ema(closes, s.longWindow)
	if shortEMA > longEMA {
		res.Trend = "Bullish"
	}

	res.RSI = rsi(closes, s.rsiPeriod)
	res.VolumeSpike = volumeSpike(candles)
	res.Action = s.action(res.RSI)
	res.Score = s.rank(res, "")

	return res
}

// Rank recomputes the composite score with a headline sentiment attached.
// Positive sentiment adds a small boost; anything else adds nothing.
func (s *Scorer) Rank(res Result, sentiment string) float64 {
	return s.rank(res, sentiment)
}

func (s *Scorer) rank(res Result, sentiment string) float64 {
	trendBonus := 0.0
	if res.Trend == "Bullish" {
		trendBonus = 1.0
	}
	sentimentBoost := 0.0
	if sentiment == "Positive" {
		sentimentBoost = 0.1
	}
	score := ((res.RSI / 100) + trendBonus + sentimentBoost) / 2
	return math.Round(score*100) / 100
}

func (s *Scorer) action(oscillator float64) string {
	switch {
	case oscillator < s.thresholds.Watch:
		return "watch"
	case oscillator > s.thresholds.Buy:
		return "buy"
	default:
		return "hold"
	}
}

// ema computes the exponential moving average over the whole series with
// the given window's smoothing factor, seeded from the first close.
func ema(closes []float64, window int) float64 {
	if len(closes) == 0 {
		return 0
	}
	k := 2.0 / (float64(window) + 1)
	avg := closes[0]
	for _, c := range closes[1:] {
		avg = c*k + avg*(1-k)
	}
	return avg
}

// rsi computes the simple-average RSI over the trailing period. When the
// average loss is zero or undefined the value is pinned to the neutral 50
// rather than allowed to blow up.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 50
	}

	rs := avgGain / avgLoss
	value := 100 - (100 / (1 + rs))
	return math.Min(100, math.Max(0, math.Round(value*100)/100))
}

// volumeSpike reports whether the latest volume exceeds 1.5x the mean of
// the preceding five periods. Needs at least six periods; otherwise false.
func volumeSpike(candles []model.Candle) bool {
	if len(candles) < 6 {
		return false
	}

	var sum float64
	start := len(candles) - 6
	for _, c := range candles[start : len(candles)-1] {
		sum += float64(c.Volume)
	}
	mean := sum / 5
	if mean == 0 {
		return false
	}

	return float64(candles[len(candles)-1].Volume) > mean*1.5
}
