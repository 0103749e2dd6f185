package services

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/models"
)

const avatarFolder = "tutor_marketplace_avatars"

// AvatarService stores profile pictures in Cloudinary, one image per user.
type AvatarService struct {
	db     *gorm.DB
	cld    *cloudinary.Cloudinary
	secret string
}

func NewAvatarService(db *gorm.DB, cloudinaryURL string) (*AvatarService, error) {
	s := &AvatarService{db: db}
	if cloudinaryURL == "" {
		return s, nil
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary")
	}
	parsed, err := url.Parse(cloudinaryURL)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary url")
	}
	s.cld = cld
	s.secret, _ = parsed.User.Password()
	return s, nil
}

func (s *AvatarService) Enabled() bool {
	return s.cld != nil
}

// Upload replaces userID's avatar with file and stores the new URL.
func (s *AvatarService) Upload(ctx context.Context, userID uuid.UUID, file io.Reader) (string, error) {
	if !s.Enabled() {
		return "", errors.Wrap(ErrNotConfigured, "uploads")
	}
	overwrite := true
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	res, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:  userID.String(),
		Folder:    avatarFolder,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", errors.Wrap(err, "upload avatar")
	}
	if res.Error.Message != "" {
		return "", errors.Errorf("upload avatar: %s", res.Error.Message)
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("avatar_url", res.SecureURL).Error; err != nil {
		return "", errors.Wrap(err, "save avatar url")
	}
	return res.SecureURL, nil
}

type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
	PublicID  string `json:"public_id"`
}

// Signature returns parameters for a direct browser upload of userID's avatar.
func (s *AvatarService) Signature(userID uuid.UUID) (*UploadSignature, error) {
	if !s.Enabled() {
		return nil, errors.Wrap(ErrNotConfigured, "uploads")
	}
	paramsToSign, err := api.StructToParams(uploader.UploadParams{
		Folder:   avatarFolder,
		PublicID: userID.String(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "prepare signature params")
	}
	timestamp := time.Now().Unix()
	paramsToSign.Set("timestamp", strconv.FormatInt(timestamp, 10))

	signature, err := api.SignParameters(paramsToSign, s.secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign upload params")
	}
	return &UploadSignature{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    s.cld.Config.Cloud.APIKey,
		CloudName: s.cld.Config.Cloud.CloudName,
		Folder:    avatarFolder,
		PublicID:  userID.String(),
	}, nil
}
