package quantize

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/pkg/quantizer"
)

// Plugin runs an external quantiser binary over go-plugin net/rpc.
// The process is started lazily and reused across calls.
type Plugin struct {
	path   string
	logger hclog.Logger

	mu     sync.Mutex
	client *plugin.Client
	remote *quantizer.QuantizerRPCClient
}

// NewPlugin creates a Plugin for the binary at path. Nothing is started
// until Probe or Quantize is called.
func NewPlugin(path string, logger hclog.Logger) *Plugin {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Plugin{path: path, logger: logger}
}

// Probe starts the plugin and checks its protocol version. A missing
// binary, failed handshake or incompatible version wraps ErrUnavailable.
func (p *Plugin) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	remote, err := p.connect()
	if err != nil {
		return err
	}

	info, err := remote.GetMetadata()
	if err != nil {
		p.Close()
		return fmt.Errorf("%w: failed to query plugin metadata: %w", ErrUnavailable, err)
	}

	ok, err := quantizer.IsCompatible(info.ProtocolVersion)
	if err != nil || !ok {
		p.Close()
		return fmt.Errorf("%w: plugin %s speaks protocol %q, host speaks %s", ErrUnavailable, info.Name, info.ProtocolVersion, quantizer.ProtocolVersion)
	}

	p.logger.Debug("quantizer plugin ready", "path", p.path, "name", info.Name, "version", info.Version)
	return nil
}

// Quantize sends img to the plugin and returns its colours.
func (p *Plugin) Quantize(ctx context.Context, img image.Image, n int) ([]colour.RGB, error) {
	if err := checkArgs(img, n); err != nil {
		return nil, err
	}

	remote, err := p.connect()
	if err != nil {
		return nil, err
	}

	colors, err := remote.Quantize(ctx, quantizer.NewRequest(img, n))
	if err != nil {
		if p.exited() {
			p.Close()
			return nil, fmt.Errorf("%w: plugin exited: %w", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("plugin quantize failed: %w", err)
	}

	out := make([]colour.RGB, 0, min(len(colors), n))
	for _, c := range colors[:min(len(colors), n)] {
		out = append(out, colour.RGB{R: c.R, G: c.G, B: c.B})
	}
	return out, nil
}

// Close kills the plugin process if it is running.
func (p *Plugin) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		p.client.Kill()
		p.client = nil
		p.remote = nil
	}
}

func (p *Plugin) exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil && p.client.Exited()
}

func (p *Plugin) connect() (*quantizer.QuantizerRPCClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.remote != nil {
		return p.remote, nil
	}

	path, err := resolveBinary(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	p.client = plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: quantizer.Handshake,
		Plugins: map[string]plugin.Plugin{
			quantizer.PluginName: &quantizer.QuantizerRPC{},
		},
		Cmd:              exec.Command(path), // #nosec G204 - plugin path comes from the user's configuration
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           p.logger,
	})

	rpcClient, err := p.client.Client()
	if err != nil {
		p.client.Kill()
		p.client = nil
		return nil, fmt.Errorf("%w: failed to get RPC client: %w", ErrUnavailable, err)
	}

	raw, err := rpcClient.Dispense(quantizer.PluginName)
	if err != nil {
		p.client.Kill()
		p.client = nil
		return nil, fmt.Errorf("%w: failed to dispense plugin: %w", ErrUnavailable, err)
	}

	p.remote = raw.(*quantizer.QuantizerRPCClient)
	return p.remote, nil
}

// resolveBinary finds path on disk or in PATH.
func resolveBinary(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("plugin path cannot be empty")
	}

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("plugin path is a directory: %s", path)
		}
		return path, nil
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("plugin binary not found: %s", path)
	}
	return resolved, nil
}
