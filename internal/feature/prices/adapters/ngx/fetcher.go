package ngx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	pipelineusecase "ngx_pipeline/internal/feature/pipeline/usecase"
	"ngx_pipeline/internal/feature/prices/domain"
	"ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/ratelimiter"
	"ngx_pipeline/internal/shared/retry"
)

// minCells is the column count of a usable row: name, sector, price, change, ytd, market cap.
const minCells = 6

// Fetcher はNGXの株価一覧ページを取得し、行ごとの生レコードに変換します。
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
	policy  retry.Policy
	log     *logger.Logger
}

// FetcherがパイプラインのFetcherインターフェースを実装していることをコンパイル時に検証します。
var _ pipelineusecase.Fetcher = (*Fetcher)(nil)

// NewFetcher は設定・HTTPクライアント・レートリミッターからFetcherを生成します。
// limiter が nil の場合は制限なしになります。
func NewFetcher(cfg Config, client *http.Client, limiter ratelimiter.Limiter, log *logger.Logger) *Fetcher {
	if limiter == nil {
		limiter = ratelimiter.Unlimited{}
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	f := &Fetcher{cfg: cfg, client: client, limiter: limiter, log: log}
	f.policy = retry.Policy{
		MaxAttempts: attempts,
		Backoff:     retry.Linear(backoff),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("ngx fetch failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("wait", wait),
				logger.Error(err))
		},
	}
	return f
}

// Fetch はページを取得して行を返します。ページは常に最新値のみを掲載するため asOf は記録用です。
// 5xx・429・ネットワークエラーは retry.ErrTransient、それ以外の失敗は domain.ErrFatalSource をラップします。
func (f *Fetcher) Fetch(ctx context.Context, asOf time.Time) ([]entity.RawRecord, error) {
	start := time.Now()

	var records []entity.RawRecord
	err := f.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		records, err = f.fetchOnce(ctx)
		return err
	})
	if err != nil {
		f.log.Error("ngx fetch failed", logger.String("url", f.cfg.URL), logger.Error(err))
		return nil, err
	}

	f.log.Info("ngx fetch complete",
		logger.Int("rows", len(records)),
		logger.String("as_of", asOf.Format("2006-01-02")),
		logger.Duration("elapsed", time.Since(start)))
	return records, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]entity.RawRecord, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrFatalSource, err)
	}
	req.Header.Set("Accept", "text/html")

	res, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Transient(err)
	}
	defer func() {
		// 接続を再利用するためにボディを読み切ってから閉じる
		_, _ = io.Copy(io.Discard, res.Body)
		if err := res.Body.Close(); err != nil {
			f.log.Warn("failed to close response body", logger.Error(err))
		}
	}()

	if err := classifyStatus(res.StatusCode); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("read body: %w", err))
	}
	return ParseDocument(doc)
}

func classifyStatus(code int) error {
	switch {
	case code >= 500 || code == http.StatusTooManyRequests:
		return retry.Transient(fmt.Errorf("ngx http %d", code))
	case code >= 400:
		return fmt.Errorf("%w: ngx http %d", domain.ErrFatalSource, code)
	}
	return nil
}

// ParseDocument は最初のテーブルの tbody 行を生レコードに変換します。
// テーブルが存在しないページは domain.ErrFatalSource になります。セル数が足りない行は読み飛ばします。
func ParseDocument(doc *goquery.Document) ([]entity.RawRecord, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no table in page", domain.ErrFatalSource)
	}
	body := table.Find("tbody").First()
	if body.Length() == 0 {
		return nil, fmt.Errorf("%w: table has no tbody", domain.ErrFatalSource)
	}

	var out []entity.RawRecord
	body.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < minCells {
			return
		}
		text := func(i int) string { return strings.TrimSpace(cells.Eq(i).Text()) }

		out = append(out, entity.RawRecord{
			Code:      codeFromLink(cells.Eq(0)),
			Name:      text(0),
			Sector:    text(1),
			Exchange:  entity.DefaultExchange,
			Close:     text(2),
			DailyPct:  text(3),
			YTDPct:    text(4),
			MarketCap: text(5),
		})
	})
	return out, nil
}

// codeFromLink reads the code query parameter of the first link in the cell.
func codeFromLink(cell *goquery.Selection) string {
	href, ok := cell.Find("a").First().Attr("href")
	if !ok {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("code"))
}
