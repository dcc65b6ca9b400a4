package social

import (
	"context"
	"errors"
	"time"

	"github.com/wirdapp/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service manages the friend-request lifecycle and friendship formation.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a social Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// IncomingRequest is a pending request annotated with the sender's username.
type IncomingRequest struct {
	ID           int64     `json:"id"`
	FromUserID   int64     `json:"from_user_id"`
	FromUsername string    `json:"from_username,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SendFriendRequest creates a pending request from fromID to the user named
// toUsername. Only the (from,to) orientation is checked for a pending
// duplicate, so two users can have requests to each other open at once.
func (svc *Service) SendFriendRequest(ctx context.Context, fromID int64, toUsername string) error {
	var to model.User
	if err := svc.db.WithContext(ctx).Where("username = ?", toUsername).First(&to).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if to.ID == fromID {
		return ErrSelfRequest
	}

	u1, u2 := model.PairIDs(fromID, to.ID)
	var friendship model.Friendship
	err := svc.db.WithContext(ctx).Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&friendship).Error
	if err == nil {
		return ErrAlreadyFriends
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var pending model.FriendRequest
	err = svc.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ? AND status = ?", fromID, to.ID, model.RequestPending).
		First(&pending).Error
	if err == nil {
		return ErrRequestPending
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	req := &model.FriendRequest{
		FromUserID: fromID,
		ToUserID:   to.ID,
		Status:     model.RequestPending,
	}
	if err := svc.db.WithContext(ctx).Create(req).Error; err != nil {
		return err
	}
	svc.logger.Info("friend request sent",
		zap.Int64("from", fromID), zap.Int64("to", to.ID))
	return nil
}

// IncomingRequests returns the pending requests addressed to userID. A
// request whose sender row has gone missing is still listed, just without
// the username annotation.
func (svc *Service) IncomingRequests(ctx context.Context, userID int64) ([]IncomingRequest, error) {
	var requests []model.FriendRequest
	if err := svc.db.WithContext(ctx).
		Where("to_user_id = ? AND status = ?", userID, model.RequestPending).
		Find(&requests).Error; err != nil {
		return nil, err
	}

	result := make([]IncomingRequest, 0, len(requests))
	for _, req := range requests {
		in := IncomingRequest{
			ID:         req.ID,
			FromUserID: req.FromUserID,
			CreatedAt:  req.CreatedAt,
		}
		var sender model.User
		if err := svc.db.WithContext(ctx).First(&sender, req.FromUserID).Error; err == nil {
			in.FromUsername = sender.Username
		}
		result = append(result, in)
	}
	return result, nil
}

// Respond resolves a pending request. Accepting creates the canonical
// Friendship and its zero-value Streak in one transaction; responding to an
// already-resolved request fails with ErrRequestResolved, so a double accept
// cannot create a second friendship.
func (svc *Service) Respond(ctx context.Context, requestID int64, accept bool) error {
	var req model.FriendRequest
	if err := svc.db.WithContext(ctx).First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if req.Status != model.RequestPending {
		return ErrRequestResolved
	}

	newStatus := model.RequestRejected
	if accept {
		newStatus = model.RequestAccepted
	}

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&req).Update("status", newStatus).Error; err != nil {
			return err
		}
		if !accept {
			return nil
		}
		u1, u2 := model.PairIDs(req.FromUserID, req.ToUserID)
		if err := tx.Create(&model.Friendship{User1ID: u1, User2ID: u2}).Error; err != nil {
			return err
		}
		return tx.Create(&model.Streak{User1ID: u1, User2ID: u2, CurrentStreak: 0}).Error
	})
	if err != nil {
		return err
	}

	svc.logger.Info("friend request resolved",
		zap.Int64("request_id", requestID), zap.Bool("accepted", accept))
	return nil
}

// Friends returns the users who share a Friendship with userID, resolved
// from both orientations of the canonical pair. Peers whose user row has
// been deleted are silently skipped.
func (svc *Service) Friends(ctx context.Context, userID int64) ([]model.User, error) {
	peerIDs, err := svc.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	friends := make([]model.User, 0, len(peerIDs))
	for _, id := range peerIDs {
		var u model.User
		if err := svc.db.WithContext(ctx).First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		friends = append(friends, u)
	}
	return friends, nil
}

// FriendIDs returns the peer ids of every Friendship involving userID.
func (svc *Service) FriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	var asFirst []model.Friendship
	if err := svc.db.WithContext(ctx).Where("user1_id = ?", userID).Find(&asFirst).Error; err != nil {
		return nil, err
	}
	var asSecond []model.Friendship
	if err := svc.db.WithContext(ctx).Where("user2_id = ?", userID).Find(&asSecond).Error; err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(asFirst)+len(asSecond))
	for _, f := range asFirst {
		ids = append(ids, f.User2ID)
	}
	for _, f := range asSecond {
		ids = append(ids, f.User1ID)
	}
	return ids, nil
}
