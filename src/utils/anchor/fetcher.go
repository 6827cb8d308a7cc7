package anchor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/warp-contracts/tom-indexer/src/utils/build_info"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/logger"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring/report"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"
)

var (
	ErrHashMismatch = errors.New("anchor data hash mismatch")
	ErrTooLarge     = errors.New("anchor document too large")
)

// Downloads off-chain documents referenced by anchorUrl and verifies them against anchorDataHash (blake2b-256)
type Fetcher struct {
	client *resty.Client
	config *config.Config
	log    *logrus.Entry
	report *report.AnchorReport

	// Verified documents, keyed by url and hash
	documents *cache.Cache

	mtx      sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewFetcher(config *config.Config) (self *Fetcher) {
	self = new(Fetcher)
	self.config = config
	self.log = logger.NewSublogger("anchor")
	self.report = &report.AnchorReport{}
	self.limiters = make(map[string]*rate.Limiter)
	self.documents = cache.New(config.Anchor.CacheExpiration, config.Anchor.CacheExpiration*2)

	self.client = resty.New().
		SetTimeout(config.Anchor.RequestTimeout).
		SetHeader("User-Agent", "tom-indexer/"+build_info.Version).
		SetRetryCount(2).
		AddRetryCondition(self.onRetryCondition).
		OnBeforeRequest(self.onRateLimit)

	return
}

func (self *Fetcher) WithMonitor(monitor monitoring.Monitor) *Fetcher {
	self.report = monitor.GetReport().Anchor
	return self
}

func (self *Fetcher) onRetryCondition(resp *resty.Response, err error) bool {
	if err != nil || resp == nil {
		return false
	}
	return resp.StatusCode() >= 500
}

func (self *Fetcher) onRateLimit(c *resty.Client, req *resty.Request) (err error) {
	u, err := url.ParseRequestURI(req.URL)
	if err != nil {
		return
	}

	self.mtx.Lock()
	limiter, ok := self.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(self.config.Anchor.RateLimit), 1)
		self.limiters[u.Host] = limiter
	}
	self.mtx.Unlock()

	// Blocks till the request is possible or ctx gets canceled
	return limiter.Wait(req.Context())
}

// Fetches the document. Verification is skipped when dataHash is empty
func (self *Fetcher) Fetch(ctx context.Context, documentUrl, dataHash string) (out []byte, err error) {
	dataHash = strings.ToLower(strings.TrimSpace(dataHash))
	key := documentUrl + "#" + dataHash

	if cached, ok := self.documents.Get(key); ok {
		self.report.State.CacheHits.Inc()
		return cached.([]byte), nil
	}

	defer func() {
		if err != nil {
			self.report.Errors.FetchFailures.Inc()
		}
	}()

	resp, err := self.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(documentUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", documentUrl, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status: %s", documentUrl, resp.Status())
	}

	out, err = io.ReadAll(io.LimitReader(body, self.config.Anchor.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", documentUrl, err)
	}
	if int64(len(out)) > self.config.Anchor.MaxBodySize {
		return nil, ErrTooLarge
	}

	if dataHash != "" {
		sum := blake2b.Sum256(out)
		computed := hex.EncodeToString(sum[:])
		if computed != dataHash {
			self.log.WithField("url", documentUrl).
				WithField("expected", dataHash).
				WithField("computed", computed).
				Warn("Anchor hash mismatch")
			self.report.Errors.HashMismatches.Inc()
			return nil, ErrHashMismatch
		}
	}

	self.report.State.DocumentsFetched.Inc()
	self.documents.SetDefault(key, out)
	return
}
