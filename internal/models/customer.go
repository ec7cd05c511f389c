// internal/models/customer.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Customer struct {
	BaseModel
	FullName     string       `json:"full_name" gorm:"size:100;not null"`
	Email        string       `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Phone        string       `json:"phone" gorm:"size:15"`
	PasswordHash string       `json:"-" gorm:"size:255;not null"`
	Role         CustomerRole `json:"role" gorm:"type:varchar(20);default:'shopper'"`
	Address      string       `json:"address" gorm:"type:text"`
	IsActive     bool         `json:"is_active" gorm:"default:true"`
	LastLoginAt  *time.Time   `json:"last_login_at"`

	// Relationships
	Orders   []Order   `json:"orders,omitempty" gorm:"foreignKey:CustomerID"`
	Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:CustomerID"`
}

func (c *Customer) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = string(hashedPassword)
	return nil
}

func (c *Customer) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password))
}
