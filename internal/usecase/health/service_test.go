package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	inmocks "github.com/imgflow/dispatch/internal/boundaries/in/mocks"
	outmocks "github.com/imgflow/dispatch/internal/boundaries/out/mocks"
	"github.com/imgflow/dispatch/internal/domain"
)

type storageProbe struct{ err error }

func (p storageProbe) HealthCheck(context.Context) error { return p.err }

func component(t *testing.T, h *domain.SystemHealth, name string) domain.ComponentHealth {
	t.Helper()
	for _, c := range h.Components {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "missing component", "component %q not reported", name)
	return domain.ComponentHealth{}
}

func TestService_Check_AllHealthy(t *testing.T) {
	servers := inmocks.NewMockServerService(t)
	connector := outmocks.NewMockEngineConnector(t)
	engine := outmocks.NewMockEngine(t)

	server := &domain.ServerConfig{ID: 3, Host: "tcp://a:2375", Enabled: true}
	servers.On("GetEnabled", mock.Anything).Return(server, nil)
	connector.On("Connect", mock.Anything, server).Return(engine, nil)
	engine.On("APIVersion", mock.Anything).Return("1.47", nil)
	engine.On("Close").Return(nil)

	h := NewService(storageProbe{}, servers, connector).Check(context.Background())

	assert.Equal(t, domain.HealthOK, h.Status)
	assert.Equal(t, int64(3), h.EnabledServerID)
	assert.Len(t, h.Components, 3)
	assert.Equal(t, "api 1.47", component(t, h, domain.ComponentEngine).Detail)
}

func TestService_Check_NoEnabledServerIsDegraded(t *testing.T) {
	servers := inmocks.NewMockServerService(t)
	servers.On("GetEnabled", mock.Anything).Return(nil, domain.ErrNoEnabledServer)

	h := NewService(storageProbe{}, servers, outmocks.NewMockEngineConnector(t)).Check(context.Background())

	assert.Equal(t, domain.HealthDegraded, h.Status)
	assert.Equal(t, domain.NoServerID, h.EnabledServerID)
	assert.Len(t, h.Components, 2)
	assert.True(t, component(t, h, domain.ComponentRegistry).Healthy)
}

func TestService_Check_EngineUnreachableIsDegraded(t *testing.T) {
	servers := inmocks.NewMockServerService(t)
	connector := outmocks.NewMockEngineConnector(t)

	server := &domain.ServerConfig{ID: 1, Host: "tcp://gone:2375", Enabled: true}
	servers.On("GetEnabled", mock.Anything).Return(server, nil)
	connector.On("Connect", mock.Anything, server).Return(nil, domain.ErrEngineUnavailable)

	h := NewService(storageProbe{}, servers, connector).Check(context.Background())

	assert.Equal(t, domain.HealthDegraded, h.Status)
	assert.False(t, component(t, h, domain.ComponentEngine).Healthy)
}

func TestService_Check_CorruptRegistryIsUnavailable(t *testing.T) {
	servers := inmocks.NewMockServerService(t)
	servers.On("GetEnabled", mock.Anything).Return(nil, domain.ErrMultipleEnabledServers)

	h := NewService(storageProbe{}, servers, nil).Check(context.Background())

	assert.Equal(t, domain.HealthUnavailable, h.Status)
	assert.Contains(t, component(t, h, domain.ComponentRegistry).Detail, "data integrity")
}

func TestService_Check_DatabaseDown(t *testing.T) {
	servers := inmocks.NewMockServerService(t)
	servers.On("GetEnabled", mock.Anything).Return(nil, domain.ErrNoEnabledServer)

	h := NewService(storageProbe{err: errors.New("database is closed")}, servers, nil).Check(context.Background())

	assert.Equal(t, domain.HealthUnavailable, h.Status)
	assert.Equal(t, "database is closed", component(t, h, domain.ComponentDatabase).Detail)
}
