//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/prepdeck/authkit"
)

// AutoMigrate runs database migrations for all authkit tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&PendingFlowModel{})
}

// PendingFlowModel is the GORM model for pending redirect flows
type PendingFlowModel struct {
	Provider        string `gorm:"primaryKey;size:64"`
	DeviceCode      string `gorm:"size:512"`
	UserCode        string `gorm:"size:64"`
	VerificationURI string `gorm:"size:512"`
	Interval        int64
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

func (PendingFlowModel) TableName() string { return "pending_flows" }

func (m *PendingFlowModel) toFlow() *authkit.PendingFlow {
	return &authkit.PendingFlow{
		Provider:        m.Provider,
		DeviceCode:      m.DeviceCode,
		UserCode:        m.UserCode,
		VerificationURI: m.VerificationURI,
		Interval:        m.Interval,
		CreatedAt:       m.CreatedAt,
		ExpiresAt:       m.ExpiresAt,
	}
}

// FlowStore implements authkit.FlowStore using GORM
type FlowStore struct {
	db *gorm.DB
}

func NewFlowStore(db *gorm.DB) *FlowStore {
	return &FlowStore{db: db}
}

func (s *FlowStore) GetFlow(provider string) (*authkit.PendingFlow, error) {
	var model PendingFlowModel
	if err := s.db.First(&model, "provider = ?", provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toFlow(), nil
}

func (s *FlowStore) SetFlow(provider string, flow *authkit.PendingFlow) error {
	model := &PendingFlowModel{
		Provider:        provider,
		DeviceCode:      flow.DeviceCode,
		UserCode:        flow.UserCode,
		VerificationURI: flow.VerificationURI,
		Interval:        flow.Interval,
		CreatedAt:       flow.CreatedAt,
		ExpiresAt:       flow.ExpiresAt,
	}
	return s.db.Save(model).Error
}

func (s *FlowStore) RemoveFlow(provider string) error {
	return s.db.Delete(&PendingFlowModel{}, "provider = ?", provider).Error
}

// Save is a no-op: writes go straight to the database.
func (s *FlowStore) Save() error { return nil }
