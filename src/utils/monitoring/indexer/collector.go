package monitor_indexer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	// Run
	UpForSeconds *prometheus.Desc

	// Syncer
	CheckpointSlot                *prometheus.Desc
	CheckpointTxIndex             *prometheus.Desc
	EventsFetched                 *prometheus.Desc
	EventsApplied                 *prometheus.Desc
	EventsNoBody                  *prometheus.Desc
	EventsUnknownType             *prometheus.Desc
	EventsIgnored                 *prometheus.Desc
	EventsUnresolved              *prometheus.Desc
	EventsSkipped                 *prometheus.Desc
	AverageEventsAppliedPerMinute *prometheus.Desc

	// Mirror
	MirrorAddressesSynced *prometheus.Desc
	MirrorUtxosInserted   *prometheus.Desc

	// Anchor
	AnchorDocumentsFetched *prometheus.Desc
	AnchorCacheHits        *prometheus.Desc

	// Redis
	RedisMessagesPublished *prometheus.Desc

	// Errors
	SyncerFetchFailures          *prometheus.Desc
	SyncerApplyFailures          *prometheus.Desc
	SyncerCheckpointLoadFailures *prometheus.Desc
	SyncerCheckpointSaveFailures *prometheus.Desc
	MirrorFetchFailures          *prometheus.Desc
	MirrorStoreFailures          *prometheus.Desc
	AnchorFetchFailures          *prometheus.Desc
	AnchorHashMismatches         *prometheus.Desc
	RedisPublishFailures         *prometheus.Desc
	RedisPersistentFailures      *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "tom-indexer",
	}

	return &Collector{
		// Run
		UpForSeconds: prometheus.NewDesc("up_for_seconds", "", nil, labels),

		// Syncer
		CheckpointSlot:                prometheus.NewDesc("syncer_checkpoint_slot", "", nil, labels),
		CheckpointTxIndex:             prometheus.NewDesc("syncer_checkpoint_tx_index", "", nil, labels),
		EventsFetched:                 prometheus.NewDesc("syncer_events_fetched", "", nil, labels),
		EventsApplied:                 prometheus.NewDesc("syncer_events_applied", "", nil, labels),
		EventsNoBody:                  prometheus.NewDesc("syncer_events_no_body", "", nil, labels),
		EventsUnknownType:             prometheus.NewDesc("syncer_events_unknown_type", "", nil, labels),
		EventsIgnored:                 prometheus.NewDesc("syncer_events_ignored", "", nil, labels),
		EventsUnresolved:              prometheus.NewDesc("syncer_events_unresolved", "", nil, labels),
		EventsSkipped:                 prometheus.NewDesc("syncer_events_skipped", "", nil, labels),
		AverageEventsAppliedPerMinute: prometheus.NewDesc("syncer_average_events_applied_per_minute", "", nil, labels),

		// Mirror
		MirrorAddressesSynced: prometheus.NewDesc("mirror_addresses_synced", "", nil, labels),
		MirrorUtxosInserted:   prometheus.NewDesc("mirror_utxos_inserted", "", nil, labels),

		// Anchor
		AnchorDocumentsFetched: prometheus.NewDesc("anchor_documents_fetched", "", nil, labels),
		AnchorCacheHits:        prometheus.NewDesc("anchor_cache_hits", "", nil, labels),

		// Redis
		RedisMessagesPublished: prometheus.NewDesc("redis_messages_published", "", nil, labels),

		// Errors
		SyncerFetchFailures:          prometheus.NewDesc("error_syncer_fetch", "", nil, labels),
		SyncerApplyFailures:          prometheus.NewDesc("error_syncer_apply", "", nil, labels),
		SyncerCheckpointLoadFailures: prometheus.NewDesc("error_syncer_checkpoint_load", "", nil, labels),
		SyncerCheckpointSaveFailures: prometheus.NewDesc("error_syncer_checkpoint_save", "", nil, labels),
		MirrorFetchFailures:          prometheus.NewDesc("error_mirror_fetch", "", nil, labels),
		MirrorStoreFailures:          prometheus.NewDesc("error_mirror_store", "", nil, labels),
		AnchorFetchFailures:          prometheus.NewDesc("error_anchor_fetch", "", nil, labels),
		AnchorHashMismatches:         prometheus.NewDesc("error_anchor_hash_mismatch", "", nil, labels),
		RedisPublishFailures:         prometheus.NewDesc("error_redis_publish", "", nil, labels),
		RedisPersistentFailures:      prometheus.NewDesc("error_redis_persistent", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	// Run
	ch <- self.UpForSeconds

	// Syncer
	ch <- self.CheckpointSlot
	ch <- self.CheckpointTxIndex
	ch <- self.EventsFetched
	ch <- self.EventsApplied
	ch <- self.EventsNoBody
	ch <- self.EventsUnknownType
	ch <- self.EventsIgnored
	ch <- self.EventsUnresolved
	ch <- self.EventsSkipped
	ch <- self.AverageEventsAppliedPerMinute

	// Mirror
	ch <- self.MirrorAddressesSynced
	ch <- self.MirrorUtxosInserted

	// Anchor
	ch <- self.AnchorDocumentsFetched
	ch <- self.AnchorCacheHits

	// Redis
	ch <- self.RedisMessagesPublished

	// Errors
	ch <- self.SyncerFetchFailures
	ch <- self.SyncerApplyFailures
	ch <- self.SyncerCheckpointLoadFailures
	ch <- self.SyncerCheckpointSaveFailures
	ch <- self.MirrorFetchFailures
	ch <- self.MirrorStoreFailures
	ch <- self.AnchorFetchFailures
	ch <- self.AnchorHashMismatches
	ch <- self.RedisPublishFailures
	ch <- self.RedisPersistentFailures
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	r := self.monitor.Report

	// Run
	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(r.Run.State.UpForSeconds.Load()))

	// Syncer
	ch <- prometheus.MustNewConstMetric(self.CheckpointSlot, prometheus.GaugeValue, float64(r.Syncer.State.CheckpointSlot.Load()))
	ch <- prometheus.MustNewConstMetric(self.CheckpointTxIndex, prometheus.GaugeValue, float64(r.Syncer.State.CheckpointTxIndex.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsFetched, prometheus.CounterValue, float64(r.Syncer.State.EventsFetched.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsApplied, prometheus.CounterValue, float64(r.Syncer.State.EventsApplied.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsNoBody, prometheus.CounterValue, float64(r.Syncer.State.EventsNoBody.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsUnknownType, prometheus.CounterValue, float64(r.Syncer.State.EventsUnknownType.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsIgnored, prometheus.CounterValue, float64(r.Syncer.State.EventsIgnored.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsUnresolved, prometheus.CounterValue, float64(r.Syncer.State.EventsUnresolved.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsSkipped, prometheus.CounterValue, float64(r.Syncer.State.EventsSkipped.Load()))
	ch <- prometheus.MustNewConstMetric(self.AverageEventsAppliedPerMinute, prometheus.GaugeValue, r.Syncer.State.AverageEventsAppliedPerMinute.Load())

	// Mirror
	ch <- prometheus.MustNewConstMetric(self.MirrorAddressesSynced, prometheus.CounterValue, float64(r.Mirror.State.AddressesSynced.Load()))
	ch <- prometheus.MustNewConstMetric(self.MirrorUtxosInserted, prometheus.CounterValue, float64(r.Mirror.State.UtxosInserted.Load()))

	// Anchor
	ch <- prometheus.MustNewConstMetric(self.AnchorDocumentsFetched, prometheus.CounterValue, float64(r.Anchor.State.DocumentsFetched.Load()))
	ch <- prometheus.MustNewConstMetric(self.AnchorCacheHits, prometheus.CounterValue, float64(r.Anchor.State.CacheHits.Load()))

	// Redis
	ch <- prometheus.MustNewConstMetric(self.RedisMessagesPublished, prometheus.CounterValue, float64(r.RedisPublisher.State.MessagesPublished.Load()))

	// Errors
	ch <- prometheus.MustNewConstMetric(self.SyncerFetchFailures, prometheus.CounterValue, float64(r.Syncer.Errors.FetchFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.SyncerApplyFailures, prometheus.CounterValue, float64(r.Syncer.Errors.ApplyFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.SyncerCheckpointLoadFailures, prometheus.CounterValue, float64(r.Syncer.Errors.CheckpointLoadFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.SyncerCheckpointSaveFailures, prometheus.CounterValue, float64(r.Syncer.Errors.CheckpointSaveFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.MirrorFetchFailures, prometheus.CounterValue, float64(r.Mirror.Errors.FetchFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.MirrorStoreFailures, prometheus.CounterValue, float64(r.Mirror.Errors.StoreFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.AnchorFetchFailures, prometheus.CounterValue, float64(r.Anchor.Errors.FetchFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.AnchorHashMismatches, prometheus.CounterValue, float64(r.Anchor.Errors.HashMismatches.Load()))
	ch <- prometheus.MustNewConstMetric(self.RedisPublishFailures, prometheus.CounterValue, float64(r.RedisPublisher.Errors.Publish.Load()))
	ch <- prometheus.MustNewConstMetric(self.RedisPersistentFailures, prometheus.CounterValue, float64(r.RedisPublisher.Errors.PersistentFailure.Load()))
}
