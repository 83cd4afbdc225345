package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
)

// GormStore implements IdentityStore using GORM.
type GormStore struct {
	db *gorm.DB

	// Message timestamps never go backwards within one store.
	clockMu sync.Mutex
	lastTS  time.Time
	now     func() time.Time
}

// NewGormStore creates a new GORM-based identity store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Models lists the tables this store needs migrated.
func Models() []interface{} {
	return []interface{}{&domain.UserModel{}, &domain.MessageModel{}}
}

func (s *GormStore) FindUser(ctx context.Context, name string) (*domain.User, error) {
	var model domain.UserModel
	result := s.db.WithContext(ctx).First(&model, "username = ?", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (s *GormStore) CreateUser(ctx context.Context, name string) (*domain.User, error) {
	model := &domain.UserModel{Username: name}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// EnsureUser is safe to call concurrently for the same name: a losing insert
// is ignored and the winner's row is read back.
func (s *GormStore) EnsureUser(ctx context.Context, name string) (*domain.User, error) {
	user, err := s.FindUser(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	model := &domain.UserModel{Username: name}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(model).Error; err != nil {
		return nil, err
	}

	return s.FindUser(ctx, name)
}

func (s *GormStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	var models []domain.UserModel
	if err := s.db.WithContext(ctx).Order("username").Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, *models[i].ToDomain())
	}
	return users, nil
}

// AppendMessage is a single INSERT. The result is built from the inserted row
// and the given users, so a successful insert is never reported as a failure.
func (s *GormStore) AppendMessage(ctx context.Context, sender, recipient *domain.User, body string) (*domain.Message, error) {
	model := &domain.MessageModel{
		Text:       body,
		SenderID:   sender.ID,
		ReceiverID: recipient.ID,
		CreatedAt:  s.nextTimestamp(),
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return nil, err
	}

	msg := model.ToDomain()
	msg.Sender = sender.Username
	msg.Recipient = recipient.Username
	return msg, nil
}

func (s *GormStore) History(ctx context.Context, userAID, userBID uint64, limit int) ([]domain.Message, error) {
	query := s.db.WithContext(ctx).
		Preload("Sender").Preload("Receiver").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userAID, userBID, userBID, userAID)

	var models []domain.MessageModel
	if limit > 0 {
		// Take the newest N, then flip back to oldest first.
		if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
			models[i], models[j] = models[j], models[i]
		}
	} else {
		if err := query.Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
			return nil, err
		}
	}

	messages := make([]domain.Message, 0, len(models))
	for i := range models {
		messages = append(messages, *models[i].ToDomain())
	}
	return messages, nil
}

func (s *GormStore) nextTimestamp() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	ts := s.now()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts
	return ts
}
