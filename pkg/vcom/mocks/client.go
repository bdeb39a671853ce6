package mocks

import (
	"context"

	"github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of vcom.Client
type Client struct {
	mock.Mock
}

func (m *Client) Systems(ctx context.Context) ([]vcom.System, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]vcom.System)
	return out, args.Error(1)
}

func (m *Client) SystemDetails(ctx context.Context, systemKey string) (*vcom.SystemDetails, error) {
	args := m.Called(ctx, systemKey)
	out, _ := args.Get(0).(*vcom.SystemDetails)
	return out, args.Error(1)
}

func (m *Client) TechnicalData(ctx context.Context, systemKey string) (*vcom.TechnicalData, error) {
	args := m.Called(ctx, systemKey)
	out, _ := args.Get(0).(*vcom.TechnicalData)
	return out, args.Error(1)
}

func (m *Client) Inverters(ctx context.Context, systemKey string) ([]vcom.Inverter, error) {
	args := m.Called(ctx, systemKey)
	out, _ := args.Get(0).([]vcom.Inverter)
	return out, args.Error(1)
}

func (m *Client) InverterDetails(ctx context.Context, systemKey, inverterID string) (*vcom.InverterDetails, error) {
	args := m.Called(ctx, systemKey, inverterID)
	out, _ := args.Get(0).(*vcom.InverterDetails)
	return out, args.Error(1)
}

func (m *Client) Tickets(ctx context.Context, status string) ([]vcom.Ticket, error) {
	args := m.Called(ctx, status)
	out, _ := args.Get(0).([]vcom.Ticket)
	return out, args.Error(1)
}

func (m *Client) UpdateTicket(ctx context.Context, ticketID string, update vcom.TicketUpdate) error {
	args := m.Called(ctx, ticketID, update)
	return args.Error(0)
}

func (m *Client) CloseTicket(ctx context.Context, ticketID, summary string) error {
	args := m.Called(ctx, ticketID, summary)
	return args.Error(0)
}
