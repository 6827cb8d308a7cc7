package publisher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding"
	"errors"
	"fmt"
	"time"

	"github.com/warp-contracts/tom-indexer/src/utils/build_info"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring/report"
	"github.com/warp-contracts/tom-indexer/src/utils/task"

	"github.com/redis/go-redis/v9"
)

// Client used for publishing, satisfied by *redis.Client
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Forwards messages to Redis
type RedisPublisher[In encoding.BinaryMarshaler] struct {
	*task.Task

	redisConfig config.Redis

	report *report.RedisPublisherReport

	client      Client
	channelName string
	input       chan In
}

func NewRedisPublisher[In encoding.BinaryMarshaler](config *config.Config, redisConfig config.Redis, name string) (self *RedisPublisher[In]) {
	self = new(RedisPublisher[In])

	self.redisConfig = redisConfig
	self.channelName = redisConfig.ChannelName
	self.report = &report.RedisPublisherReport{}

	self.Task = task.NewTask(config, name).
		WithSubtaskFunc(self.run).
		WithOnBeforeStart(self.connect).
		WithOnAfterStop(self.disconnect).
		WithWorkerPool(redisConfig.MaxWorkers)

	return
}

func (self *RedisPublisher[In]) WithInputChannel(v chan In) *RedisPublisher[In] {
	self.input = v
	return self
}

func (self *RedisPublisher[In]) WithChannelName(v string) *RedisPublisher[In] {
	self.channelName = v
	return self
}

func (self *RedisPublisher[In]) WithMonitor(monitor monitoring.Monitor) *RedisPublisher[In] {
	self.report = monitor.GetReport().RedisPublisher
	return self
}

// Replaces the connection made upon start
func (self *RedisPublisher[In]) WithClient(client Client) *RedisPublisher[In] {
	self.client = client
	return self
}

func (self *RedisPublisher[In]) disconnect() {
	err := self.client.Close()
	if err != nil {
		self.Log.WithError(err).Error("Failed to close connection")
	}
}

func (self *RedisPublisher[In]) connect() (err error) {
	if self.client != nil {
		return
	}

	opts := redis.Options{
		ClientName:      fmt.Sprintf("tom-indexer/%s/%s", self.Name, build_info.Version),
		Addr:            fmt.Sprintf("%s:%d", self.redisConfig.Host, self.redisConfig.Port),
		Password:        self.redisConfig.Password,
		Username:        self.redisConfig.User,
		DB:              self.redisConfig.DB,
		MinIdleConns:    self.redisConfig.MinIdleConns,
		MaxIdleConns:    self.redisConfig.MaxIdleConns,
		ConnMaxIdleTime: self.redisConfig.ConnMaxIdleTime,
		PoolSize:        self.redisConfig.MaxOpenConns,
		ConnMaxLifetime: self.redisConfig.ConnMaxLifetime,
	}

	if self.redisConfig.ClientCert != "" && self.redisConfig.ClientKey != "" && self.redisConfig.CaCert != "" {
		cert, err := tls.X509KeyPair([]byte(self.redisConfig.ClientCert), []byte(self.redisConfig.ClientKey))
		if err != nil {
			return fmt.Errorf("failed to load client cert: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM([]byte(self.redisConfig.CaCert)) {
			return errors.New("failed to append CA cert to pool")
		}

		opts.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			RootCAs:      caCertPool,
			ClientCAs:    caCertPool,
			Certificates: []tls.Certificate{cert},
		}
	}

	self.client = redis.NewClient(&opts)

	ctx, cancel := context.WithTimeout(self.Ctx, 30*time.Second)
	defer cancel()
	err = self.client.Ping(ctx).Err()
	if err != nil {
		self.Log.WithError(err).Error("Failed to ping Redis")
		return
	}

	return
}

func (self *RedisPublisher[In]) run() (err error) {
	for {
		select {
		case <-self.StopChannel:
			return nil
		case payload, ok := <-self.input:
			if !ok {
				return nil
			}
			self.SubmitToWorker(func() {
				self.publish(payload)
			})
		}
	}
}

func (self *RedisPublisher[In]) publish(payload In) {
	err := task.NewRetry().
		WithContext(self.Ctx).
		WithMaxElapsedTime(self.redisConfig.MaxElapsedTime).
		WithMaxInterval(self.redisConfig.MaxInterval).
		WithOnError(func(err error) error {
			self.Log.WithError(err).Warn("Failed to publish message, retrying")
			self.report.Errors.Publish.Inc()
			return err
		}).
		Run(func() (err error) {
			return self.client.Publish(self.Ctx, self.channelName, payload).Err()
		})
	if err != nil {
		self.Log.WithError(err).Error("Failed to publish message, giving up")
		self.report.Errors.PersistentFailure.Inc()
		return
	}

	self.report.State.MessagesPublished.Inc()
	self.report.State.LastSuccessfulMessageTimestamp.Store(time.Now().Unix())
}
