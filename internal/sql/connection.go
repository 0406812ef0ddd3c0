package sql

import (
	"context"
	"errors"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database types accepted by CreateDBConnector.
const (
	TypeNone     = "none"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeCloudSQL = "cloudsql"
)

// ErrUnsupportedDBType is returned for a database type CreateDBConnector does not know.
var ErrUnsupportedDBType = errors.New("unsupported database type")

// errMissingOption is returned when a connector is missing a required setting.
var errMissingOption = errors.New("is required for database type")

// DBConnector is an interface for database connections.
type DBConnector interface {
	Connect(ctx context.Context) (*gorm.DB, error)
}

// Options describes where the report request history lives.
type Options struct {
	Type                   string
	Path                   string
	DSN                    string
	InstanceConnectionName string
	User                   string
	Password               string
	Name                   string
}

// SQLiteConnector implements DBConnector for SQLite connections.
type SQLiteConnector struct {
	dbPath string
}

// Connect connects to the SQLite database.
func (c *SQLiteConnector) Connect(_ context.Context) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(c.dbPath), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	return database, nil
}

// PostgresConnector implements DBConnector for a Postgres DSN.
type PostgresConnector struct {
	dsn string
}

// Connect connects to the Postgres database.
func (c *PostgresConnector) Connect(_ context.Context) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(c.dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres database: %w", err)
	}
	return database, nil
}

// CloudSQLConnector implements DBConnector for Cloud SQL connections.
type CloudSQLConnector struct {
	instanceConnectionName string
	user                   string
	password               string
	dbname                 string
}

// Connect connects to the database using the Cloud SQL connection.
func (c *CloudSQLConnector) Connect(ctx context.Context) (*gorm.DB, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		// Fallback to using password if IAMAuthN fails
		dialer, err = cloudsqlconn.NewDialer(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create dialer: %w", err)
		}
	}

	config, err := pgx.ParseConfig(fmt.Sprintf("user=%s password=%s dbname=%s sslmode=disable",
		c.user, c.password, c.dbname))
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	config.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		conn, err := dialer.Dial(ctx, c.instanceConnectionName)
		if err != nil {
			return nil, fmt.Errorf("failed to dial Cloud SQL instance: %w", err)
		}
		return conn, nil
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: stdlib.OpenDB(*config),
	}), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gorm with pgx connection: %w", err)
	}
	return gormDB, nil
}

// gormConfig keeps gorm quiet unless something goes wrong.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
}

// CreateDBConnector is a factory function that returns the appropriate DBConnector.
// It returns a nil connector for TypeNone and for an empty type.
func CreateDBConnector(opts Options) (DBConnector, error) {
	switch opts.Type {
	case "", TypeNone:
		return nil, nil
	case TypeSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("path %w %s", errMissingOption, opts.Type)
		}
		return &SQLiteConnector{dbPath: opts.Path}, nil
	case TypePostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("dsn %w %s", errMissingOption, opts.Type)
		}
		return &PostgresConnector{dsn: opts.DSN}, nil
	case TypeCloudSQL:
		if opts.InstanceConnectionName == "" {
			return nil, fmt.Errorf("instance connection name %w %s", errMissingOption, opts.Type)
		}
		return &CloudSQLConnector{
			instanceConnectionName: opts.InstanceConnectionName,
			user:                   opts.User,
			password:               opts.Password,
			dbname:                 opts.Name,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDBType, opts.Type)
	}
}
