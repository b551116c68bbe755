package store

import (
	"context"
	"csbot/internal/core/domain"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type feedRecord struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	URL       string    `gorm:"column:url;not null;uniqueIndex:idx_feed_channel"`
	GuildID   string    `gorm:"column:guild_id;not null;uniqueIndex:idx_feed_channel"`
	ChannelID string    `gorm:"column:channel_id;not null;uniqueIndex:idx_feed_channel;index"`
	LastSeen  time.Time `gorm:"column:last_seen"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (feedRecord) TableName() string { return "rss_feeds" }

func (r feedRecord) toDomain() domain.Feed {
	return domain.Feed{
		ID:        r.ID,
		URL:       r.URL,
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		LastSeen:  r.LastSeen,
	}
}

// FeedStore persists RSS subscriptions with gorm.
type FeedStore struct {
	db *gorm.DB
}

// Open opens the SQLite database at path and migrates the schema.
func Open(ctx context.Context, path string) (*FeedStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db failed: %w", err)
	}
	// sqlite allows a single writer, and every ":memory:" connection is a separate database
	sqlDB.SetMaxOpenConns(1)

	s := New(db)
	if err := s.AutoMigrate(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func New(db *gorm.DB) *FeedStore {
	return &FeedStore{db: db}
}

func (s *FeedStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&feedRecord{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

func (s *FeedStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *FeedStore) FindOrCreate(ctx context.Context, url, guildID, channelID string) (domain.Feed, bool, error) {
	var rec feedRecord
	res := s.db.WithContext(ctx).
		Where(feedRecord{URL: url, GuildID: guildID, ChannelID: channelID}).
		FirstOrCreate(&rec)
	if res.Error != nil {
		return domain.Feed{}, false, fmt.Errorf("find or create feed failed: %w", res.Error)
	}

	return rec.toDomain(), res.RowsAffected > 0, nil
}

func (s *FeedStore) ListByChannel(ctx context.Context, guildID, channelID string) ([]domain.Feed, error) {
	var recs []feedRecord
	err := s.db.WithContext(ctx).
		Where("guild_id = ? AND channel_id = ?", guildID, channelID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list feeds failed: %w", err)
	}

	return toDomain(recs), nil
}

func (s *FeedStore) ListAll(ctx context.Context) ([]domain.Feed, error) {
	var recs []feedRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list all feeds failed: %w", err)
	}

	return toDomain(recs), nil
}

func (s *FeedStore) Delete(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&feedRecord{}, id).Error; err != nil {
		return fmt.Errorf("delete feed %d failed: %w", id, err)
	}
	return nil
}

func (s *FeedStore) UpdateLastSeen(ctx context.Context, id uint, seen time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&feedRecord{}).
		Where("id = ?", id).
		Update("last_seen", seen).Error
	if err != nil {
		return fmt.Errorf("update feed %d failed: %w", id, err)
	}
	return nil
}

func toDomain(recs []feedRecord) []domain.Feed {
	feeds := make([]domain.Feed, 0, len(recs))
	for _, r := range recs {
		feeds = append(feeds, r.toDomain())
	}
	return feeds
}
