package syncer

import (
	"github.com/warp-contracts/tom-indexer/src/processor"
	"github.com/warp-contracts/tom-indexer/src/store"
	"github.com/warp-contracts/tom-indexer/src/utils/anchor"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/ledger"
	"github.com/warp-contracts/tom-indexer/src/utils/model"
	monitor_indexer "github.com/warp-contracts/tom-indexer/src/utils/monitoring/indexer"
	"github.com/warp-contracts/tom-indexer/src/utils/publisher"
	"github.com/warp-contracts/tom-indexer/src/utils/task"
	"github.com/warp-contracts/tom-indexer/src/utxo"
)

type Controller struct {
	*task.Task
}

// Main class that orchestrates the indexer.
// Setups the sync loop, notifications and monitoring
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "controller")

	// Migrations and connection retries happen here, failing to connect stops the indexer
	db, err := model.NewConnection(self.Ctx, config, "syncer")
	if err != nil {
		return
	}

	monitor := monitor_indexer.NewMonitor(config)

	server := NewServer(config).
		WithMonitor(monitor)

	repo := store.NewGormRepository(db)

	source := ledger.NewYaciSource(config).
		WithDB(db)

	proc := processor.NewProcessor(config).
		WithRepository(repo).
		WithSource(source)

	if config.Anchor.Enabled {
		proc = proc.WithAnchorFetcher(anchor.NewFetcher(config).WithMonitor(monitor))
	}

	mirror := utxo.NewMirror(config).
		WithRepository(repo).
		WithSource(source).
		WithMonitor(monitor)

	syncer := NewSyncer(config).
		WithRepository(repo).
		WithSource(source).
		WithProcessor(proc).
		WithMirror(mirror).
		WithMonitor(monitor)

	var redisPublisher *publisher.RedisPublisher[*model.Event]
	if config.Redis.Enabled {
		events := make(chan *model.Event, config.Redis.ChannelBufferLength)
		syncer = syncer.WithOutput(events)

		redisPublisher = publisher.NewRedisPublisher[*model.Event](config, config.Redis, "redis-publisher").
			WithInputChannel(events).
			WithMonitor(monitor)
	}

	self.Task = self.Task.
		WithSubtask(monitor.Task).
		WithSubtask(server.Task).
		WithSubtask(syncer.Task).
		WithConditionalSubtask(config.Redis.Enabled, publisherTask(redisPublisher)).
		WithOnAfterStop(func() {
			sqlDB, err := db.DB()
			if err != nil {
				return
			}
			_ = sqlDB.Close()
		})

	return
}

func publisherTask(p *publisher.RedisPublisher[*model.Event]) *task.Task {
	if p == nil {
		return nil
	}
	return p.Task
}
