package store

import (
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/token"

	"gorm.io/gorm"
)

// gormTokenStore is a relational TokenStore bound to one table. Each
// operation runs a single query; the store adds no caching on top.
type gormTokenStore struct {
	db    *gorm.DB
	table string
	codec *token.Codec
}

var _ TokenStore = (*gormTokenStore)(nil)

// NewGormTokenStore returns a relational TokenStore over the named table
// (TableAccessTokens or TableRefreshTokens).
func NewGormTokenStore(db *gorm.DB, table string, codec *token.Codec) TokenStore {
	return &gormTokenStore{db: db, table: table, codec: codec}
}

// tokenID derives the store key from a raw signed token without verifying it.
// The result is only ever used as a lookup key into this server-owned store.
func (s *gormTokenStore) tokenID(rawToken string) (string, bool) {
	claims, err := s.codec.Decode(rawToken)
	if err != nil {
		return "", false
	}
	return claims.ID, true
}

func (s *gormTokenStore) Find(rawToken string) (*models.TokenRecord, error) {
	id, ok := s.tokenID(rawToken)
	if !ok {
		return nil, ErrNotFound
	}

	var record models.TokenRecord
	err := s.db.Table(s.table).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &record, nil
}

func (s *gormTokenStore) Save(rawToken string, params TokenParams) (*models.TokenRecord, error) {
	id, ok := s.tokenID(rawToken)
	if !ok {
		return nil, ErrNotFound
	}

	record := models.TokenRecord{
		ID:        id,
		UserID:    params.UserID,
		ClientID:  params.ClientID,
		ExpiresAt: params.ExpiresAt,
		Scope:     models.StringArray(params.Scope),
		GrantType: params.GrantType,
		AuthTime:  params.AuthTime,
	}
	if err := s.db.Table(s.table).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *gormTokenStore) Delete(rawToken string) (*models.TokenRecord, error) {
	id, ok := s.tokenID(rawToken)
	if !ok {
		return nil, ErrNotFound
	}

	var record models.TokenRecord
	if err := s.db.Table(s.table).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, translateNotFound(err)
	}

	// The row DELETE is atomic; of two concurrent deletes for the same id
	// exactly one observes RowsAffected=1, the other gets ErrNotFound.
	res := s.db.Table(s.table).Where("id = ?", id).Delete(&models.TokenRecord{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *gormTokenStore) RemoveExpired() ([]models.TokenRecord, error) {
	var expired []models.TokenRecord
	if err := s.db.Table(s.table).Where("expires_at < ?", time.Now()).Find(&expired).Error; err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return expired, nil
	}

	ids := make([]string, 0, len(expired))
	for _, r := range expired {
		ids = append(ids, r.ID)
	}
	if err := s.db.Table(s.table).Where("id IN ?", ids).Delete(&models.TokenRecord{}).Error; err != nil {
		return nil, err
	}
	return expired, nil
}

func (s *gormTokenStore) RemoveAll() ([]models.TokenRecord, error) {
	var all []models.TokenRecord
	if err := s.db.Table(s.table).Find(&all).Error; err != nil {
		return nil, err
	}
	if err := s.db.Table(s.table).Where("1 = 1").Delete(&models.TokenRecord{}).Error; err != nil {
		return nil, err
	}
	return all, nil
}

// gormCodeStore is the relational CodeStore over the authorizationcodes table.
type gormCodeStore struct {
	db *gorm.DB
}

var _ CodeStore = (*gormCodeStore)(nil)

func NewGormCodeStore(db *gorm.DB) CodeStore {
	return &gormCodeStore{db: db}
}

func (s *gormCodeStore) Find(code string) (*models.AuthorizationCode, error) {
	var record models.AuthorizationCode
	err := s.db.Where("code = ?", code).First(&record).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &record, nil
}

func (s *gormCodeStore) Save(record *models.AuthorizationCode) (*models.AuthorizationCode, error) {
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *gormCodeStore) Delete(code string) (*models.AuthorizationCode, error) {
	var record models.AuthorizationCode
	if err := s.db.Where("code = ?", code).First(&record).Error; err != nil {
		return nil, translateNotFound(err)
	}

	res := s.db.Where("code = ?", code).Delete(&models.AuthorizationCode{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent exchange consumed the code first.
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *gormCodeStore) RemoveExpired() ([]models.AuthorizationCode, error) {
	var expired []models.AuthorizationCode
	if err := s.db.Where("expires_at < ?", time.Now()).Find(&expired).Error; err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return expired, nil
	}

	codes := make([]string, 0, len(expired))
	for _, r := range expired {
		codes = append(codes, r.Code)
	}
	if err := s.db.Where("code IN ?", codes).Delete(&models.AuthorizationCode{}).Error; err != nil {
		return nil, err
	}
	return expired, nil
}

func (s *gormCodeStore) RemoveAll() ([]models.AuthorizationCode, error) {
	var all []models.AuthorizationCode
	if err := s.db.Find(&all).Error; err != nil {
		return nil, err
	}
	if err := s.db.Where("1 = 1").Delete(&models.AuthorizationCode{}).Error; err != nil {
		return nil, err
	}
	return all, nil
}
