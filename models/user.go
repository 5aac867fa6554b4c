package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:100;not null;unique" json:"email" binding:"required"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	IsAdmin   *bool     `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	IsActive *bool  `json:"is_active"`
	IsAdmin  *bool  `json:"is_admin"`
}

type LoginInfo struct {
	Token   string `json:"token"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func CreateUser(ctx context.Context, input NewUser) (*User, error) {
	db := config.GetDB()

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := utils.ValidateUnique[User](ctx, "email", email, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Password: string(hashed),
		IsActive: input.IsActive,
		IsAdmin:  input.IsAdmin,
	}
	if user.IsActive == nil {
		user.IsActive = utils.NewTrue()
	}
	if user.IsAdmin == nil {
		user.IsAdmin = utils.NewFalse()
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, errors.New("email is already registered")
		}
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {
	db := config.GetDB()

	user := User{}
	err := db.WithContext(ctx).Model(&User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&user).Error
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return nil, errors.New("invalid email or password")
	}
	if err != nil {
		return nil, err
	}

	if !utils.DereferencePtr(user.IsActive) {
		return nil, errors.New("user is disabled")
	}

	isAdmin := utils.DereferencePtr(user.IsAdmin)
	token, err := utils.JwtGenerate(user.ID, user.Name, user.Email, isAdmin)
	if err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:   token,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: isAdmin,
	}, nil
}

func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	db := config.GetDB()

	user := User{}
	err := db.WithContext(ctx).Model(&User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&user).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	user.PrepareGive()
	return &user, nil
}
