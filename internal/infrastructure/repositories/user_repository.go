package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/you/clientcore/domain"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBClient represents the database model for a client credential record
type DBClient struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Name          string    `gorm:"index;size:100"`
	Username      string    `gorm:"uniqueIndex;size:100;not null"`
	Email         string    `gorm:"uniqueIndex;size:100;not null"`
	Phone         string    `gorm:"size:15"`
	Address       string    `gorm:"size:255"`
	Country       string    `gorm:"size:50"`
	RoleInCompany string    `gorm:"size:50"`
	PasswordHash  string    `gorm:"column:hashed_password;not null"`
	RoleID        *string   `gorm:"size:36;index"`
	CompanyID     *string   `gorm:"size:36;index"`
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBClient) TableName() string {
	return "clients"
}

// NewUserRepository creates a new user repository. The *gorm.DB must be
// opened with TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row DBClient
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return dbToDomain(&row)
}

// Insert implements domain.UserRepository
func (r *UserRepositoryImpl) Insert(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	row := domainToDB(user)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}

	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt
	return nil
}

// domainToDB converts domain user to database row
func domainToDB(user *domain.User) *DBClient {
	return &DBClient{
		ID:            user.ID.String(),
		Name:          user.Name,
		Username:      user.Username,
		Email:         user.Email,
		Phone:         user.Phone,
		Address:       user.Address,
		Country:       user.Country,
		RoleInCompany: user.RoleInCompany,
		PasswordHash:  user.PasswordHash,
		RoleID:        idToString(user.RoleID),
		CompanyID:     idToString(user.CompanyID),
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// dbToDomain converts database row to domain user
func dbToDomain(row *DBClient) (*domain.User, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt client id %q: %w", row.ID, err)
	}
	roleID, err := stringToID(row.RoleID)
	if err != nil {
		return nil, fmt.Errorf("corrupt role id for client %s: %w", row.ID, err)
	}
	companyID, err := stringToID(row.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("corrupt company id for client %s: %w", row.ID, err)
	}

	return &domain.User{
		ID:            id,
		Email:         row.Email,
		Username:      row.Username,
		Name:          row.Name,
		Phone:         row.Phone,
		Address:       row.Address,
		Country:       row.Country,
		RoleInCompany: row.RoleInCompany,
		PasswordHash:  row.PasswordHash,
		RoleID:        roleID,
		CompanyID:     companyID,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func idToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func stringToID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
