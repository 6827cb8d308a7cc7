package anchor

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/warp-contracts/tom-indexer/src/utils/config"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"golang.org/x/crypto/blake2b"
)

const document = `{"body":{"event":"publish","label":"Treasury"}}`

func TestFetcherTestSuite(t *testing.T) {
	suite.Run(t, new(FetcherTestSuite))
}

type FetcherTestSuite struct {
	suite.Suite
	ctx      context.Context
	config   *config.Config
	server   *httptest.Server
	requests atomic.Int64
}

func (s *FetcherTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.config = config.Default()
	s.config.Anchor.RateLimit = 1000
	s.config.Anchor.MaxBodySize = 1024

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		switch r.URL.Path {
		case "/doc.json":
			_, _ = w.Write([]byte(document))
		case "/large.json":
			_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func (s *FetcherTestSuite) TearDownSuite() {
	s.server.Close()
}

func hash(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (s *FetcherTestSuite) TestVerified() {
	fetcher := NewFetcher(s.config)

	out, err := fetcher.Fetch(s.ctx, s.server.URL+"/doc.json", strings.ToUpper(hash(document)))
	require.Nil(s.T(), err)
	require.Equal(s.T(), document, string(out))

	// Served from cache
	before := s.requests.Load()
	out, err = fetcher.Fetch(s.ctx, s.server.URL+"/doc.json", hash(document))
	require.Nil(s.T(), err)
	require.Equal(s.T(), document, string(out))
	require.Equal(s.T(), before, s.requests.Load())
}

func (s *FetcherTestSuite) TestNoHash() {
	out, err := NewFetcher(s.config).Fetch(s.ctx, s.server.URL+"/doc.json", "")
	require.Nil(s.T(), err)
	require.Equal(s.T(), document, string(out))
}

func (s *FetcherTestSuite) TestHashMismatch() {
	_, err := NewFetcher(s.config).Fetch(s.ctx, s.server.URL+"/doc.json", hash("other"))
	require.ErrorIs(s.T(), err, ErrHashMismatch)
}

func (s *FetcherTestSuite) TestTooLarge() {
	_, err := NewFetcher(s.config).Fetch(s.ctx, s.server.URL+"/large.json", "")
	require.ErrorIs(s.T(), err, ErrTooLarge)
}

func (s *FetcherTestSuite) TestNotFound() {
	_, err := NewFetcher(s.config).Fetch(s.ctx, s.server.URL+"/missing.json", "")
	require.Error(s.T(), err)
}
