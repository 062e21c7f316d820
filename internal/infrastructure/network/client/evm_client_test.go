package client

import (
	"context"
	"testing"
	"time"

	"vest_orchestrator/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDialOptions(local ...string) DialOptions {
	return DialOptions{
		ConnectionTimeout: time.Second,
		RPCCallTimeout:    time.Second,
		LocalNodeURLs:     local,
	}
}

func TestNewEVMClient_SkipsMismatchedChain(t *testing.T) {
	wrong := newRPCServer(t, map[string]string{"eth_chainId": `"0x1"`})
	right := newRPCServer(t, map[string]string{"eth_chainId": `"0x13882"`})

	desc := entity.NetworkDescriptor{
		ChainID:         80002,
		Name:            "Polygon Amoy",
		PrimaryRPCURL:   wrong.URL,
		FallbackRPCURLs: []string{right.URL},
	}
	c, err := NewEVMClient(context.Background(), desc, NewEndpointProber(time.Second, nil), testDialOptions(), nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, right.URL, c.Endpoint())
	assert.Equal(t, uint64(80002), c.Descriptor().ChainID)
}

func TestNewEVMClient_FallsBackToLocalNode(t *testing.T) {
	local := newRPCServer(t, map[string]string{"eth_chainId": `"0x539"`})

	desc := entity.NetworkDescriptor{ChainID: 1337, Name: "Ganache"}
	c, err := NewEVMClient(context.Background(), desc, NewEndpointProber(time.Second, nil), testDialOptions(local.URL), nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, local.URL, c.Endpoint())
}

func TestNewEVMClient_NoEndpoint(t *testing.T) {
	wrong := newRPCServer(t, map[string]string{"eth_chainId": `"0x1"`})

	desc := entity.NetworkDescriptor{ChainID: 56, Name: "BSC Mainnet", PrimaryRPCURL: wrong.URL}
	_, err := NewEVMClient(context.Background(), desc, NewEndpointProber(time.Second, nil), testDialOptions(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrNotConnected)

	_, err = NewEVMClient(context.Background(), entity.NetworkDescriptor{ChainID: 9}, nil, testDialOptions(), nil)
	assert.ErrorIs(t, err, entity.ErrNotConnected)
}
