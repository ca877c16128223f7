package resolve

import (
	"time"

	"github.com/sells-group/dart-report/internal/model"
)

// Market holds the market-data inputs of one (entity, year).
type Market struct {
	StockPrice        *float64
	SharesOutstanding *float64
	PriceAsOf         string
	SharesAsOf        string
}

// LatestMarket picks, per field, the value from the latest as-of snapshot of
// cy that carries that field. Unparseable dates sort before any valid date.
func LatestMarket(snaps []model.MarketSnapshot, cy model.CorpYear) Market {
	var m Market
	var priceAt, sharesAt time.Time
	var havePrice, haveShares bool

	for _, s := range snaps {
		if s.CorpCode != cy.CorpCode || s.Year != cy.Year {
			continue
		}
		at, _ := model.ParseAsOf(s.AsOfDate)
		if s.StockPrice != nil && (!havePrice || at.After(priceAt)) {
			v := *s.StockPrice
			m.StockPrice, m.PriceAsOf = &v, s.AsOfDate
			priceAt, havePrice = at, true
		}
		if s.SharesOutstanding != nil && (!haveShares || at.After(sharesAt)) {
			v := *s.SharesOutstanding
			m.SharesOutstanding, m.SharesAsOf = &v, s.AsOfDate
			sharesAt, haveShares = at, true
		}
	}
	return m
}

func (m Market) value(req Request, key string) model.ResolvedValue {
	v := model.ResolvedValue{
		CorpCode: req.CorpYear.CorpCode,
		Year:     req.CorpYear.Year,
		ReportID: req.ReportID,
		StdKey:   key,
		Kind:     model.KindMarket,
		Status:   model.StatusMissing,
	}
	switch key {
	case model.KeyStockPrice:
		v.Value = m.StockPrice
		if m.PriceAsOf != "" {
			v.Labels = []string{"asof:" + m.PriceAsOf}
		}
	case model.KeySharesOutstanding:
		v.Value = m.SharesOutstanding
		if m.SharesAsOf != "" {
			v.Labels = []string{"asof:" + m.SharesAsOf}
		}
	}
	if v.Value != nil {
		v.Status = model.StatusResolved
		v.CandidateRows, v.DistinctValues = 1, 1
	}
	return v
}
