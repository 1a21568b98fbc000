package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	alertentity "ngx_pipeline/internal/feature/alerts/domain/entity"
	alertusecase "ngx_pipeline/internal/feature/alerts/usecase"
	inddomain "ngx_pipeline/internal/feature/indicators/domain"
	priceentity "ngx_pipeline/internal/feature/prices/domain/entity"
	priceusecase "ngx_pipeline/internal/feature/prices/usecase"
	recusecase "ngx_pipeline/internal/feature/recommendations/usecase"
	"ngx_pipeline/internal/shared/tradedate"
)

func (o *Orchestrator) fetch(ctx context.Context, st *runState, rec *recorder) error {
	raw, err := o.deps.Fetcher.Fetch(ctx, st.asOf)
	if err != nil {
		return err
	}
	rec.add("fetched", len(raw))

	if len(o.cfg.Codes) > 0 {
		keep := make(map[string]struct{}, len(o.cfg.Codes))
		for _, c := range o.cfg.Codes {
			keep[c] = struct{}{}
		}
		raw = slices.DeleteFunc(raw, func(r priceentity.RawRecord) bool {
			_, ok := keep[priceusecase.NormalizeCode(r.Code)]
			return !ok
		})
		rec.add("selected", len(raw))
	}
	st.raw = raw
	if len(raw) == 0 {
		rec.warn("source returned no records for the selected instruments")
	}
	return nil
}

func (o *Orchestrator) parse(st *runState) []priceentity.Quote {
	quotes := make([]priceentity.Quote, len(st.raw))
	for i, r := range st.raw {
		quotes[i] = priceusecase.ParseRecord(r, st.asOf, o.cfg.Source)
	}
	return quotes
}

func (o *Orchestrator) validate(ctx context.Context, st *runState, rec *recorder) error {
	if len(st.raw) == 0 {
		return errSkip
	}
	quotes := o.parse(st)

	sectors, err := o.deps.Instruments.KnownSectors(ctx)
	if err != nil {
		rec.warn("known sectors unavailable: %v", err)
	}
	codes := make([]string, 0, len(quotes))
	for _, q := range quotes {
		codes = append(codes, q.Code)
	}
	priors, err := o.deps.Prices.PriorCloses(ctx, codes, st.asOf)
	if err != nil {
		rec.warn("prior closes unavailable: %v", err)
	}

	v := priceusecase.NewValidator(o.cfg.Quality, o.cfg.ValidExchanges, sectors)
	vr := v.Validate(quotes, priors)
	rec.add("validated", len(vr.Accepted))
	rec.add("rejected", len(vr.Rejected))
	for tier, n := range vr.Counts {
		rec.add(tierKey(tier), n)
	}
	for _, w := range vr.Warnings {
		rec.warn("%s", w)
	}
	for _, e := range vr.Errors {
		rec.fail(errors.New(e))
	}
	st.quotes = vr.Accepted
	return nil
}

func tierKey(t priceentity.QualityTier) string {
	switch t {
	case priceentity.QualityGood:
		return "good"
	case priceentity.QualityIncomplete:
		return "incomplete"
	case priceentity.QualitySuspicious:
		return "suspicious"
	default:
		return "poor"
	}
}

func (o *Orchestrator) transform(ctx context.Context, st *runState, rec *recorder) error {
	quotes := st.quotes
	if !o.cfg.Stages.Validate {
		quotes = o.parse(st)
		for i := range quotes {
			c := priceusecase.ClassifyQuality(priceusecase.QualityInput{
				Close:     quotes[i].Close,
				DailyPct:  quotes[i].DailyPct,
				YTDPct:    quotes[i].YTDPct,
				MarketCap: quotes[i].MarketCap,
			}, nil, o.cfg.Quality)
			quotes[i].Quality = c.Tier
			quotes[i].QualityNote = c.Message
		}
	}
	if len(quotes) == 0 {
		return errSkip
	}

	deduped, dups := priceusecase.Deduplicate(quotes)
	rec.add("duplicates", dups)
	for _, q := range deduped {
		st.instruments = append(st.instruments, priceusecase.ToInstrument(q))
		obs, ok := priceusecase.ToObservation(q)
		if !ok {
			rec.add("skipped", 1)
			rec.warn("%s: no usable close, observation skipped", q.Code)
			continue
		}
		st.observations = append(st.observations, obs)
	}
	rec.add("transformed", len(st.observations))
	return nil
}

func (o *Orchestrator) loadInstruments(ctx context.Context, st *runState, rec *recorder) error {
	if len(st.instruments) == 0 {
		return errSkip
	}
	res, err := o.deps.Instruments.Sync(ctx, st.instruments)
	if err != nil {
		return fmt.Errorf("sync instruments: %w", err)
	}
	rec.add("instruments_created", res.Created)
	rec.add("instruments_updated", res.Updated)
	rec.add("instruments_unchanged", res.Unchanged)
	return nil
}

func (o *Orchestrator) loadPrices(ctx context.Context, st *runState, rec *recorder) error {
	if len(st.observations) == 0 {
		return errSkip
	}
	res := o.deps.Prices.BulkUpsert(ctx, st.observations, o.cfg.BatchSize)
	rec.add("loaded", res.Loaded)
	rec.add("batches_failed", len(res.Failed))
	for _, f := range res.Failed {
		rec.add("skipped", f.End-f.Start)
		rec.fail(f)
	}
	return nil
}

func (o *Orchestrator) computeIndicators(ctx context.Context, st *runState, rec *recorder) error {
	codes := o.cfg.Codes
	if len(codes) == 0 {
		active, err := o.deps.Instruments.ActiveCodes(ctx)
		if err != nil {
			return fmt.Errorf("list active instruments: %w", err)
		}
		codes = active
	}
	if len(codes) == 0 {
		return errSkip
	}

	o.forEach(ctx, codes, rec, func(ctx context.Context, code string) error {
		r, err := o.deps.Indicators.ComputeFor(ctx, code, st.asOf, o.cfg.HistoryDepth)
		if errors.Is(err, inddomain.ErrNoHistory) {
			rec.add("no_history", 1)
			return nil
		}
		if err != nil {
			rec.add("indicator_failures", 1)
			return err
		}
		st.mu.Lock()
		st.indicators[code] = r
		st.mu.Unlock()
		rec.add("indicators", 1)
		return nil
	})
	return nil
}

func (o *Orchestrator) evaluateAlerts(ctx context.Context, st *runState, rec *recorder) error {
	if len(st.indicators) == 0 {
		return errSkip
	}
	rules, err := o.deps.Alerts.LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	if len(rules) == 0 {
		rec.warn("no alert rules configured")
		return errSkip
	}

	codes := slices.Sorted(maps.Keys(st.indicators))
	o.forEach(ctx, codes, rec, func(ctx context.Context, code string) error {
		r := st.indicators[code]
		trailing, err := o.deps.Indicators.TrailingVolatility(ctx, code, r.Current.Date, TrailingVolatilityWindow)
		if err != nil {
			rec.warn("%s: %v", code, err)
		}
		current := r.Current
		alerts, err := o.deps.Alerts.EvaluateInstrument(ctx, alertusecase.Input{
			Code:               code,
			Date:               r.Current.Date,
			DailyPct:           floatPtr(r.Price.DailyPct),
			Current:            &current,
			Prior:              r.Prior,
			TrailingVolatility: trailing,
		}, rules)
		if err != nil {
			rec.add("alert_failures", 1)
			return err
		}
		st.mu.Lock()
		st.alerts = append(st.alerts, alerts...)
		st.mu.Unlock()
		rec.add("alerts", len(alerts))
		return nil
	})

	slices.SortFunc(st.alerts, func(a, b alertentity.Alert) int {
		return cmp.Or(cmp.Compare(a.Code, b.Code), cmp.Compare(a.RuleName, b.RuleName))
	})
	return nil
}

func (o *Orchestrator) generateRecommendations(ctx context.Context, st *runState, rec *recorder) error {
	if len(st.indicators) == 0 {
		return errSkip
	}

	codes := slices.Sorted(maps.Keys(st.indicators))
	candidates := make([]recusecase.Candidate, 0, len(codes))
	o.forEach(ctx, codes, rec, func(ctx context.Context, code string) error {
		r := st.indicators[code]
		// an instrument that did not trade on the run date has no current price to act on
		if !tradedate.Normalize(r.Current.Date).Equal(st.asOf) {
			rec.add("stale", 1)
			return nil
		}
		prior, err := o.deps.Indicators.Recent(ctx, code, r.Current.Date, PriorSnapshotWindow)
		if err != nil {
			return fmt.Errorf("load prior snapshots: %w", err)
		}
		st.mu.Lock()
		candidates = append(candidates, recusecase.Candidate{
			Code:    code,
			Price:   r.Price.Close.InexactFloat64(),
			Current: r.Current,
			Prior:   prior,
		})
		st.mu.Unlock()
		return nil
	})
	slices.SortFunc(candidates, func(a, b recusecase.Candidate) int { return cmp.Compare(a.Code, b.Code) })

	gen, err := o.deps.Recommendations.Generate(ctx, st.asOf, candidates)
	if err != nil {
		rec.fail(err)
	}
	rec.add("recommendations", len(gen.Recommendations))
	rec.add("excluded", len(gen.Excluded))

	closes, err := o.deps.Prices.ClosesAsOf(ctx, st.asOf)
	if err != nil {
		rec.fail(fmt.Errorf("load closes as of %s: %w", tradedate.Format(st.asOf), err))
		return nil
	}
	rr, err := o.deps.Recommendations.ReconcileOutcomes(ctx, st.asOf, closes)
	if err != nil {
		rec.fail(fmt.Errorf("reconcile outcomes: %w", err))
	}
	rec.add("hit_target", rr.HitTarget)
	rec.add("hit_stop", rr.HitStop)
	rec.add("expired", rr.Expired)
	return nil
}

func (o *Orchestrator) notify(ctx context.Context, st *runState, rec *recorder) error {
	if len(st.alerts) == 0 {
		return errSkip
	}
	res := o.deps.Alerts.Notify(ctx, st.alerts, st.asOf)
	rec.add("messages", res.Messages)
	rec.add("notified", res.Notified)
	for _, w := range res.Warnings {
		rec.warn("%s", w)
	}
	return nil
}

func floatPtr(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
