package store

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the relational backend for user and client records plus the shared
// *gorm.DB handed to the per-kind token/code stores.
type Store struct {
	db *gorm.DB
}

// GetDialector returns the GORM dialector for the configured driver.
func GetDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.AuthorizationCode{},
	); err != nil {
		return nil, err
	}
	// The two token tables share one model; migrate each by table name.
	if err := db.Table(TableAccessTokens).AutoMigrate(&models.TokenRecord{}); err != nil {
		return nil, err
	}
	if err := db.Table(TableRefreshTokens).AutoMigrate(&models.TokenRecord{}); err != nil {
		return nil, err
	}

	store := &Store{db: db}

	if err := store.seedData(); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

// seedData creates a default admin user and a trusted sample client when the
// database is empty. Generated credentials are logged once at startup.
func (s *Store) seedData() error {
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		password, err := util.CryptoRandomString(16)
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := &models.User{
			ID:           uuid.New().String(),
			Username:     "admin",
			PasswordHash: string(hash),
			Name:         "Administrator",
			Role:         models.StringArray{"user.admin", "api.read", "api.write"},
		}
		if err := s.db.Create(user).Error; err != nil {
			return err
		}
		log.Printf("Created default user: admin / %s", password)
	}

	var clientCount int64
	s.db.Model(&models.Client{}).Count(&clientCount)
	if clientCount == 0 {
		client := &models.Client{
			ID:                 uuid.New().String(),
			Name:               "collab-auth sample client",
			ClientID:           uuid.New().String(),
			TrustedClient:      true,
			AllowedScope:       models.StringArray{"api.read", "api.write", "offline_access"},
			DefaultScope:       models.StringArray{"api.read"},
			AllowedRedirectURI: models.StringArray{"http://localhost:3000/login/callback"},
		}
		secret, err := client.GenerateClientSecret()
		if err != nil {
			return err
		}
		if err := s.db.Create(client).Error; err != nil {
			return err
		}
		log.Printf("Created default client: %s", client.ClientID)
		log.Printf("Client secret (save this): %s", secret)
	}

	return nil
}

// User operations. Soft-deleted rows are filtered by GORM's DeletedAt handling.

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

// CreateUser creates a user after checking the username is unique among
// non-deleted rows.
func (s *Store) CreateUser(user *models.User) error {
	var count int64
	s.db.Model(&models.User{}).Where("username = ?", user.Username).Count(&count)
	if count > 0 {
		return ErrUsernameTaken
	}
	return s.db.Create(user).Error
}

func (s *Store) UpdateUser(user *models.User) error {
	return s.db.Save(user).Error
}

// DeleteUser soft-deletes a user by ID.
func (s *Store) DeleteUser(id string) error {
	return s.db.Delete(&models.User{}, "id = ?", id).Error
}

// TouchLastLogin stamps the user's last successful interactive login.
func (s *Store) TouchLastLogin(userID string) error {
	now := time.Now()
	return s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login", &now).Error
}

// Client operations

func (s *Store) GetClientByClientID(clientID string) (*models.Client, error) {
	var client models.Client
	if err := s.db.Where("client_id = ?", clientID).First(&client).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &client, nil
}

func (s *Store) GetClientByID(id string) (*models.Client, error) {
	var client models.Client
	if err := s.db.Where("id = ?", id).First(&client).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &client, nil
}

// CreateClient creates a client after checking the client_id is unique among
// non-deleted rows.
func (s *Store) CreateClient(client *models.Client) error {
	var count int64
	s.db.Model(&models.Client{}).Where("client_id = ?", client.ClientID).Count(&count)
	if count > 0 {
		return ErrClientIDTaken
	}
	return s.db.Create(client).Error
}

func (s *Store) UpdateClient(client *models.Client) error {
	return s.db.Save(client).Error
}

// DeleteClient soft-deletes a client by ID.
func (s *Store) DeleteClient(id string) error {
	return s.db.Delete(&models.Client{}, "id = ?", id).Error
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection
func (s *Store) DB() *gorm.DB {
	return s.db
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
