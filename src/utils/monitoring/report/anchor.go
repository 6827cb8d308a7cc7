package report

import (
	"go.uber.org/atomic"
)

type AnchorErrors struct {
	FetchFailures  atomic.Uint64 `json:"fetch"`
	HashMismatches atomic.Uint64 `json:"hash_mismatch"`
}

type AnchorState struct {
	DocumentsFetched atomic.Uint64 `json:"documents_fetched"`
	CacheHits        atomic.Uint64 `json:"cache_hits"`
}

type AnchorReport struct {
	State  AnchorState  `json:"state"`
	Errors AnchorErrors `json:"errors"`
}
