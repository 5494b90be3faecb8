package updater

import (
	"context"

	"bup/pkg/bilibili"
	"bup/pkg/models"
	"bup/pkg/site"
)

// Platform defines the creator lookups the detector needs
type Platform interface {
	Init(ctx context.Context) error
	GetProfile(ctx context.Context, mid string) (*bilibili.Profile, error)
	GetUploads(ctx context.Context, mid string) ([]bilibili.Upload, error)
}

// SiteBuilder writes pages for updated creators
type SiteBuilder interface {
	Build(ctx context.Context, mds []*models.Metadata) (*site.Report, error)
}
