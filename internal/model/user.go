package model

import (
	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleCashier UserRole = "CASHIER"
)

// User represents an authenticated user in the system
type User struct {
	BaseModel
	Email        string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password     string   `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	FullName     string   `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:'CASHIER'" json:"role"`
	IsActive     bool     `gorm:"default:true" json:"is_active"`
	TokenVersion string   `gorm:"type:varchar(255);default:''" json:"-"` // For single session enforcement
}

// UserResponse adalah bentuk aman user untuk dikirim ke client
type UserResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
