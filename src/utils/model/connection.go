package model

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/warp-contracts/tom-indexer/src/utils/build_info"
	"github.com/warp-contracts/tom-indexer/src/utils/config"
	l "github.com/warp-contracts/tom-indexer/src/utils/logger"
	"github.com/warp-contracts/tom-indexer/src/utils/model/sql_migrations"
	"github.com/warp-contracts/tom-indexer/src/utils/task"

	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(ctx context.Context, dbConfig *config.Database, username, password, applicationName string) (self *gorm.DB, err error) {
	log := l.NewSublogger("db")

	gormLogger := logger.New(log,
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s/tom-indexer/%s",
		dbConfig.Host,
		dbConfig.Port,
		username,
		password,
		dbConfig.Name,
		dbConfig.SslMode,
		applicationName,
		build_info.Version,
	)

	if dbConfig.ClientKey != "" && dbConfig.ClientCert != "" && dbConfig.CaCert != "" {
		log.Info("Using SSL certificates from variables")

		var files []string
		files, err = writeTempFiles(dbConfig.ClientKey, dbConfig.ClientCert, dbConfig.CaCert)
		for _, f := range files {
			defer os.Remove(f)
		}
		if err != nil {
			return
		}

		dsn += fmt.Sprintf(" sslkey=%s sslcert=%s sslrootcert=%s", files[0], files[1], files[2])
	}

	// Postgres may still be starting up next to the indexer
	err = task.NewRetry().
		WithContext(ctx).
		WithMaxElapsedTime(dbConfig.ConnectMaxElapsedTime).
		WithMaxInterval(dbConfig.ConnectMaxInterval).
		WithOnError(func(err error) error {
			log.WithError(err).Warn("Failed to connect to the database, retrying")
			return err
		}).
		Run(func() (err error) {
			self, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
			if err != nil {
				return
			}
			return ping(ctx, dbConfig, self)
		})
	if err != nil {
		return
	}

	db, err := self.DB()
	if err != nil {
		return
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxIdleTime(dbConfig.ConnMaxIdleTime)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return
}

func writeTempFiles(contents ...string) (names []string, err error) {
	for _, content := range contents {
		var f *os.File
		f, err = os.CreateTemp("", "pg-*.pem")
		if err != nil {
			return
		}
		names = append(names, f.Name())

		_, err = f.WriteString(content)
		closeErr := f.Close()
		if err != nil {
			return
		}
		if closeErr != nil {
			err = closeErr
			return
		}
	}
	return
}

func NewConnection(ctx context.Context, config *config.Config, applicationName string) (self *gorm.DB, err error) {
	_, err = Migrate(ctx, config, migrate.Up)
	if err != nil {
		return
	}

	return Connect(ctx, &config.Database, config.Database.User, config.Database.Password, applicationName)
}

// Applies embedded migrations in the given direction, returns the number of applied steps
func Migrate(ctx context.Context, config *config.Config, direction migrate.MigrationDirection) (n int, err error) {
	log := l.NewSublogger("db-migrate")

	if config.Database.MigrationUser == "" || config.Database.MigrationPassword == "" {
		log.Info("Migration user not set, skipping migrations")
		return
	}

	migrations := &migrate.HttpFileSystemMigrationSource{
		FileSystem: http.FS(sql_migrations.FS),
	}

	// Use special migration user
	self, err := Connect(ctx, &config.Database, config.Database.MigrationUser, config.Database.MigrationPassword, "migration")
	if err != nil {
		return
	}

	db, err := self.DB()
	if err != nil {
		return
	}
	defer db.Close()

	max := 0
	if direction == migrate.Down {
		// Roll back one step at a time
		max = 1
	}

	n, err = migrate.ExecMax(db, "postgres", migrations, direction, max)
	if err != nil {
		return
	}

	log.WithField("num", n).Info("Applied migrations")

	return
}

func ping(ctx context.Context, dbConfig *config.Database, db *gorm.DB) (err error) {
	if dbConfig.PingTimeout < 0 {
		// Ping disabled
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbConfig.PingTimeout)
	defer cancel()

	return sqlDB.PingContext(dbCtx)
}
