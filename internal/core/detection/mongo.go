package detection

import (
	"context"
	"fmt"
	"time"

	"freshloop/internal/infrastructure/config"
	"freshloop/internal/pkg/common"

	"github.com/cenkalti/backoff/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoArchive 將偵測結果寫入 MongoDB
type MongoArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

type archivedDetection struct {
	Name       string  `bson:"name"`
	Confidence float64 `bson:"confidence"`
	Quality    string  `bson:"quality"`
	Quantity   string  `bson:"quantity"`
	Condition  string  `bson:"condition"`
	SafeToEat  string  `bson:"safe_to_eat"`
	Community  string  `bson:"community_share"`
}

type archivedDocument struct {
	ResultID   string            `bson:"result_id"`
	Timestamp  time.Time         `bson:"timestamp"`
	Detection  archivedDetection `bson:"detection"`
	SystemInfo map[string]string `bson:"system_info"`
}

// NewMongoArchive 連線並確認可用；失敗時以指數退避重試
func NewMongoArchive(ctx context.Context, cfg config.MongoConfig) (*MongoArchive, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client, err := backoff.Retry(ctx, func() (*mongo.Client, error) {
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			common.LogWarn("MongoDB 連線失敗，稍後重試", zap.Error(err))
			return nil, err
		}
		return client, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(4),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	common.LogInfo("MongoDB 已連線",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)
	return &MongoArchive{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    timeout,
	}, nil
}

// Save 實作 Archive
func (m *MongoArchive) Save(ctx context.Context, results []Result) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	docs := make([]interface{}, 0, len(results))
	now := time.Now().UTC()
	for _, r := range results {
		docs = append(docs, archivedDocument{
			ResultID:  r.ID,
			Timestamp: now,
			Detection: archivedDetection{
				Name:       r.Name,
				Confidence: r.Confidence,
				Quality:    r.Quality,
				Quantity:   r.Quantity,
				Condition:  r.Condition,
				SafeToEat:  r.Safe,
				Community:  r.Community,
			},
			SystemInfo: map[string]string{"detector_type": "vision"},
		})
	}
	if _, err := m.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert detections: %w", err)
	}
	return nil
}

// Ping 健康檢查
func (m *MongoArchive) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close 中斷連線
func (m *MongoArchive) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
