package assets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/noah-isme/vidtube-api/pkg/config"
)

// ErrEmptyPath is returned when no local file was staged.
var ErrEmptyPath = errors.New("local file path is empty")

// Asset describes a file stored on the asset host.
type Asset struct {
	URL          string `json:"url"`
	SecureURL    string `json:"secure_url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
	Format       string `json:"format"`
	Bytes        int    `json:"bytes"`
}

// PreferredURL returns the https URL when the host supplied one.
func (a *Asset) PreferredURL() string {
	if a == nil {
		return ""
	}
	if a.SecureURL != "" {
		return a.SecureURL
	}
	return a.URL
}

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryUploader pushes staged files to Cloudinary.
type CloudinaryUploader struct {
	api    uploadAPI
	folder string
	logger *zap.Logger
}

// NewCloudinaryUploader builds an uploader from credentials.
func NewCloudinaryUploader(cfg config.CloudinaryConfig, logger *zap.Logger) (*CloudinaryUploader, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary credentials are not configured")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return newUploader(&cld.Upload, cfg.Folder, logger), nil
}

func newUploader(api uploadAPI, folder string, logger *zap.Logger) *CloudinaryUploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudinaryUploader{api: api, folder: folder, logger: logger}
}

// Upload pushes the file at localPath and returns the stored asset. The local
// file is removed before Upload returns, whatever the outcome.
func (u *CloudinaryUploader) Upload(ctx context.Context, localPath string) (*Asset, error) {
	if localPath == "" {
		return nil, ErrEmptyPath
	}
	defer u.removeLocal(localPath)

	if _, err := os.Stat(localPath); err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}

	res, err := u.api.Upload(ctx, localPath, uploader.UploadParams{
		ResourceType: "auto",
		Folder:       u.folder,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res == nil {
		return nil, errors.New("cloudinary upload: empty response")
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload rejected: %s", res.Error.Message)
	}

	asset := &Asset{
		URL:          res.URL,
		SecureURL:    res.SecureURL,
		PublicID:     res.PublicID,
		ResourceType: res.ResourceType,
		Format:       res.Format,
		Bytes:        res.Bytes,
	}
	u.logger.Debug("asset uploaded", zap.String("public_id", asset.PublicID), zap.String("url", asset.PreferredURL()))
	return asset, nil
}

// Destroy deletes a previously uploaded asset.
func (u *CloudinaryUploader) Destroy(ctx context.Context, asset *Asset) error {
	if asset == nil || asset.PublicID == "" {
		return nil
	}
	resourceType := asset.ResourceType
	if resourceType == "" {
		resourceType = "image"
	}
	res, err := u.api.Destroy(ctx, uploader.DestroyParams{PublicID: asset.PublicID, ResourceType: resourceType})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res != nil && res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy rejected: %s", res.Error.Message)
	}
	return nil
}

func (u *CloudinaryUploader) removeLocal(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		u.logger.Warn("failed to remove staged upload", zap.String("path", path), zap.Error(err))
	}
}
