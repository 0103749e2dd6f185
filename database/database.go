package database

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/models"
)

// GormConfig is shared by the postgres connection and the in-memory test database.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database: DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), GormConfig())
	if err != nil {
		return nil, errors.Wrap(err, "database: open")
	}
	log.Info("database connected")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.SessionRequest{},
		&models.Transaction{},
		&models.WithdrawalRequest{},
		&models.DiscountCode{},
		&models.Deposit{},
		&models.Notification{},
		&models.SupportTicket{},
		&models.TicketMessage{},
	)
	return errors.Wrap(err, "database: migrate")
}

// SeedAdmin creates the configured admin account once.
func SeedAdmin(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Warn("admin seed skipped: ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", cfg.AdminEmail).Count(&count).Error; err != nil {
		return errors.Wrap(err, "database: check admin")
	}
	if count > 0 {
		log.Debug("admin user already exists")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "database: hash admin password")
	}

	admin := models.User{
		FullName: cfg.AdminFullName,
		Email:    cfg.AdminEmail,
		Password: string(hashedPassword),
		Role:     models.RoleUnset,
		IsAdmin:  true,
		Locale:   models.LocaleEnglish,
	}
	if err := db.Create(&admin).Error; err != nil {
		return errors.Wrap(err, "database: seed admin")
	}

	log.Info("admin user seeded", zap.String("email", admin.Email))
	return nil
}
