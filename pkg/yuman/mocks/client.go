package mocks

import (
	"context"

	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of yuman.Client
type Client struct {
	mock.Mock
}

func (m *Client) ListSites(ctx context.Context) ([]yuman.Site, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]yuman.Site)
	return out, args.Error(1)
}

func (m *Client) ListMaterials(ctx context.Context, categoryID int64) ([]yuman.Material, error) {
	args := m.Called(ctx, categoryID)
	out, _ := args.Get(0).([]yuman.Material)
	return out, args.Error(1)
}

func (m *Client) ListWorkorders(ctx context.Context) ([]yuman.Workorder, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]yuman.Workorder)
	return out, args.Error(1)
}

func (m *Client) UpdateWorkorder(ctx context.Context, id int64, patch map[string]any) (*yuman.Workorder, error) {
	args := m.Called(ctx, id, patch)
	out, _ := args.Get(0).(*yuman.Workorder)
	return out, args.Error(1)
}

func (m *Client) CreateSite(ctx context.Context, in yuman.SiteInput) (*yuman.Site, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*yuman.Site)
	return out, args.Error(1)
}

func (m *Client) CreateMaterial(ctx context.Context, in yuman.MaterialInput) (*yuman.Material, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*yuman.Material)
	return out, args.Error(1)
}
