package quantizer

import (
	"context"
	"encoding/json"
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// QuantizerRPC implements the go-plugin Plugin interface for quantisers.
type QuantizerRPC struct {
	plugin.Plugin
	Impl Quantizer
}

// Server returns an RPC server for this plugin.
func (p *QuantizerRPC) Server(*plugin.MuxBroker) (any, error) {
	return &QuantizerRPCServer{Impl: p.Impl}, nil
}

// Client returns an RPC client for this plugin.
func (p *QuantizerRPC) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &QuantizerRPCClient{client: c}, nil
}

// QuantizerRPCServer is the RPC server implementation for quantisers.
type QuantizerRPCServer struct {
	Impl Quantizer
}

// Quantize implements the RPC method for colour extraction.
func (s *QuantizerRPCServer) Quantize(req Request, resp *[]byte) error {
	colors, err := s.Impl.Quantize(context.Background(), req)
	if err != nil {
		return err
	}

	data, err := json.Marshal(colors)
	if err != nil {
		return err
	}

	*resp = data
	return nil
}

// GetMetadata implements the RPC method for fetching plugin metadata.
func (s *QuantizerRPCServer) GetMetadata(_ any, resp *PluginInfo) error {
	*resp = s.Impl.GetMetadata()
	return nil
}

// QuantizerRPCClient is the RPC client implementation for quantisers.
type QuantizerRPCClient struct {
	client *rpc.Client
}

// Quantize calls the remote Quantize method. Cancelling ctx abandons the
// call; the plugin may still finish it in the background.
func (c *QuantizerRPCClient) Quantize(ctx context.Context, req Request) ([]Colour, error) {
	var respBytes []byte
	call := c.client.Go("Plugin.Quantize", req, &respBytes, make(chan *rpc.Call, 1))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-call.Done:
	}
	if call.Error != nil {
		return nil, &RPCError{Message: call.Error.Error()}
	}

	var colors []Colour
	if err := json.Unmarshal(respBytes, &colors); err != nil {
		return nil, err
	}
	return colors, nil
}

// GetMetadata calls the remote GetMetadata method.
func (c *QuantizerRPCClient) GetMetadata() (PluginInfo, error) {
	var info PluginInfo
	err := c.client.Call("Plugin.GetMetadata", new(any), &info)
	return info, err
}

// RPCError represents an error returned from an RPC call.
type RPCError struct {
	Message string
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}
