package policy

import (
	"context"
	"time"

	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/orders"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// Clock supplies the "today" anchor for eligibility windows. Historical
// datasets need an anchor inside the dataset's own time range, so the
// anchor is injectable instead of hardwired to the wall clock.
type Clock interface {
	Today(ctx context.Context) time.Time
}

type realClock struct{}

func (realClock) Today(context.Context) time.Time { return time.Now().UTC() }

// FixedClock always reports the same date.
type FixedClock time.Time

func (f FixedClock) Today(context.Context) time.Time { return time.Time(f) }

// datasetMaxClock anchors today to the newest purchase date in the order
// store, falling back to the wall clock when the store is empty.
type datasetMaxClock struct {
	store model.OrderStore
}

func (d datasetMaxClock) Today(ctx context.Context) time.Time {
	max, err := d.store.MaxPurchaseDate(ctx)
	if err != nil || max.IsZero() {
		return time.Now().UTC()
	}
	return max
}

// ClockFromConfig picks the anchor source: a simulated date wins, then the
// dataset max, then the wall clock.
func ClockFromConfig(cfg model.PolicyConfig, store model.OrderStore) Clock {
	if cfg.SimulatedToday != "" {
		t, err := orders.ParseDate(cfg.SimulatedToday)
		if err != nil {
			logx.Warn().Str("simulated_today", cfg.SimulatedToday).Err(err).Msg("unparseable simulated date, using wall clock")
			return realClock{}
		}
		return FixedClock(t)
	}
	if cfg.UseDatasetMaxAsToday && store != nil {
		return datasetMaxClock{store: store}
	}
	return realClock{}
}
