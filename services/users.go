package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"agent-grid-rewards/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Identity is what the social identity provider tells us about a user.
type Identity struct {
	FID           int64   `json:"fid"`
	Username      string  `json:"username"`
	DisplayName   *string `json:"display_name,omitempty"`
	PfpURL        *string `json:"pfp_url,omitempty"`
	WalletAddress *string `json:"wallet_address,omitempty"`
}

type RankInfo struct {
	Title         string  `json:"title"`
	Color         string  `json:"color"`
	NextTitle     *string `json:"next_title,omitempty"`
	PointsToNext  int64   `json:"points_to_next"`
	NextThreshold int64   `json:"next_threshold,omitempty"`
}

type Profile struct {
	FID                 int64            `json:"fid"`
	Username            string           `json:"username"`
	DisplayName         *string          `json:"display_name,omitempty"`
	PfpURL              *string          `json:"pfp_url,omitempty"`
	WalletAddress       *string          `json:"wallet_address,omitempty"`
	Balance             decimal.Decimal  `json:"balance"`
	AccumulatedPoints   int64            `json:"accumulated_points"`
	StreakCount         int              `json:"streak_count"`
	LastCheckinAt       *time.Time       `json:"last_checkin_at,omitempty"`
	Rank                RankInfo         `json:"rank"`
	Multiplier          decimal.Decimal  `json:"multiplier"`
	MultiplierExpiresAt *time.Time       `json:"multiplier_expires_at,omitempty"`
	ActiveBadge         *string          `json:"active_badge,omitempty"`
	TasksCompleted      int64            `json:"tasks_completed"`
	Redemptions         int64            `json:"redemptions"`
	CanCheckIn          bool             `json:"can_check_in"`
	NextCheckinAt       time.Time        `json:"next_checkin_at"`
	NotificationsOn     bool             `json:"notifications_enabled"`
	OnchainBalance      *decimal.Decimal `json:"onchain_balance,omitempty"`
	OnchainCheckedAt    *time.Time       `json:"onchain_checked_at,omitempty"`
	MemberSince         time.Time        `json:"member_since"`
}

type UserService struct {
	*Core
}

func NewUserService(core *Core) *UserService {
	return &UserService{Core: core}
}

// EnsureUser creates the ledger row on first contact (balance 0, streak 0,
// multiplier 1) and otherwise refreshes profile columns only. Reports whether
// the row was created.
func (s *UserService) EnsureUser(ctx context.Context, id Identity) (*models.User, bool, error) {
	if id.FID <= 0 {
		return nil, false, ErrUserNotFound
	}
	normalizeWallet(&id.WalletAddress)

	var (
		user    *models.User
		created bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh := models.User{
			FID:              id.FID,
			Username:         id.Username,
			DisplayName:      id.DisplayName,
			PfpURL:           id.PfpURL,
			WalletAddress:    id.WalletAddress,
			Balance:          decimal.Zero,
			ActiveMultiplier: decimal.NewFromInt(1),
			CreatedAt:        s.now(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
		if res.Error != nil {
			return storeErr("create user", res.Error)
		}
		created = res.RowsAffected > 0

		if !created {
			if fields := profileFields(id); len(fields) > 0 {
				if err := tx.Model(&models.User{}).Where("fid = ?", id.FID).Updates(fields).Error; err != nil {
					return storeErr("refresh profile", err)
				}
			}
		}

		var err error
		user, err = loadUser(tx, id.FID)
		return err
	})
	if err != nil {
		s.Log.Error("ensure user failed", "fid", id.FID, "error", err)
		return nil, false, err
	}
	if created {
		s.Log.Info("user created", "fid", id.FID, "username", id.Username)
	}
	return user, created, nil
}

// GetProfile assembles the read view of fid's ledger.
func (s *UserService) GetProfile(ctx context.Context, fid int64) (*Profile, error) {
	db := s.DB.WithContext(ctx)
	user, err := loadUser(db, fid)
	if err != nil {
		return nil, err
	}
	now := s.now()

	rank := RankForPoints(user.AccumulatedPoints)
	info := RankInfo{Title: rank.Title, Color: rank.Color}
	if next := NextRank(user.AccumulatedPoints); next != nil {
		info.NextTitle = &next.Title
		info.NextThreshold = next.MinPoints
		info.PointsToNext = next.MinPoints - user.AccumulatedPoints
	}

	canCheckIn, nextAt := s.checkinWindow(user.LastCheckinAt, now)
	p := &Profile{
		FID:               user.FID,
		Username:          user.Username,
		DisplayName:       user.DisplayName,
		PfpURL:            user.PfpURL,
		WalletAddress:     user.WalletAddress,
		Balance:           user.Balance,
		AccumulatedPoints: user.AccumulatedPoints,
		StreakCount:       user.StreakCount,
		LastCheckinAt:     user.LastCheckinAt,
		Rank:              info,
		Multiplier:        user.EffectiveMultiplier(now),
		ActiveBadge:       user.EffectiveBadge(now),
		TasksCompleted:    user.TasksCompletedCount,
		Redemptions:       user.RedemptionsCount,
		CanCheckIn:        canCheckIn,
		NextCheckinAt:     nextAt,
		NotificationsOn:   user.HasNotificationTarget(),
		MemberSince:       user.CreatedAt,
	}
	if user.MultiplierExpiresAt != nil && now.Before(*user.MultiplierExpiresAt) {
		p.MultiplierExpiresAt = user.MultiplierExpiresAt
	}

	var mirror models.TokenMirror
	err = db.Where("user_fid = ?", fid).First(&mirror).Error
	switch {
	case err == nil:
		p.OnchainBalance = &mirror.Balance
		p.OnchainCheckedAt = &mirror.CheckedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.Log.Warn("token mirror lookup failed", "fid", fid, "error", err)
	}
	return p, nil
}

// SetNotificationTarget stores the webhook the user's client registered.
func (s *UserService) SetNotificationTarget(ctx context.Context, fid int64, target NotificationTarget) error {
	u, ok := s.notificationURL(target.URL)
	if !ok || strings.TrimSpace(target.Token) == "" {
		return ErrInvalidNotificationTarget
	}
	return s.updateProfileColumns(ctx, fid, map[string]any{
		"notification_url":   u.String(),
		"notification_token": strings.TrimSpace(target.Token),
	})
}

func (s *UserService) ClearNotificationTarget(ctx context.Context, fid int64) error {
	return s.updateProfileColumns(ctx, fid, map[string]any{
		"notification_url":   nil,
		"notification_token": nil,
	})
}

// ProfileUpdate is one record from the profile sync feed.
type ProfileUpdate struct {
	FID           int64   `json:"fid"`
	Username      string  `json:"username"`
	DisplayName   *string `json:"display_name,omitempty"`
	PfpURL        *string `json:"pfp_url,omitempty"`
	WalletAddress *string `json:"wallet_address,omitempty"`
}

// SyncProfiles refreshes profile columns of users we already know. Ledger
// columns are never touched. Returns how many rows changed.
func (s *UserService) SyncProfiles(ctx context.Context, updates []ProfileUpdate) (int, error) {
	var changed int
	for _, up := range updates {
		normalizeWallet(&up.WalletAddress)
		fields := profileFields(Identity(up))
		if len(fields) == 0 {
			continue
		}
		res := s.DB.WithContext(ctx).Model(&models.User{}).Where("fid = ?", up.FID).Updates(fields)
		if res.Error != nil {
			return changed, storeErr("sync profile", res.Error)
		}
		changed += int(res.RowsAffected)
	}
	return changed, nil
}

// WalletHolders lists users with a wallet address, for the token mirror.
func (s *UserService) WalletHolders(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).
		Select("fid", "wallet_address").
		Where("wallet_address IS NOT NULL AND wallet_address <> ''").
		Order("fid ASC").
		Find(&users).Error; err != nil {
		return nil, storeErr("list wallet holders", err)
	}
	return users, nil
}

// RecordTokenBalance upserts the mirrored on-chain balance for fid.
func (s *UserService) RecordTokenBalance(ctx context.Context, fid int64, address string, balance decimal.Decimal) error {
	rec := models.TokenMirror{UserFID: fid, Address: address, Balance: balance, CheckedAt: s.now()}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_fid"}},
		DoUpdates: clause.AssignmentColumns([]string{"address", "balance", "checked_at"}),
	}).Create(&rec).Error; err != nil {
		return storeErr("record token balance", err)
	}
	return nil
}

func (s *UserService) updateProfileColumns(ctx context.Context, fid int64, fields map[string]any) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("fid = ?", fid).Updates(fields)
	if res.Error != nil {
		return storeErr("update profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// profileFields lists the non-empty profile columns of id.
func profileFields(id Identity) map[string]any {
	fields := map[string]any{}
	if id.Username != "" {
		fields["username"] = id.Username
	}
	if id.DisplayName != nil {
		fields["display_name"] = *id.DisplayName
	}
	if id.PfpURL != nil {
		fields["pfp_url"] = *id.PfpURL
	}
	if id.WalletAddress != nil {
		fields["wallet_address"] = *id.WalletAddress
	}
	return fields
}

// normalizeWallet drops addresses that are not 20-byte hex and checksums the rest.
func normalizeWallet(addr **string) {
	if *addr == nil {
		return
	}
	raw := strings.TrimSpace(**addr)
	if !common.IsHexAddress(raw) {
		*addr = nil
		return
	}
	checksummed := common.HexToAddress(raw).Hex()
	*addr = &checksummed
}
