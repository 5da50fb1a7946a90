// Package plugin runs check modules as separate executables over the
// go-plugin net/rpc transport. A module binary calls Serve; the checker
// host calls Load for every plugin a checklist names and registers the
// returned module like a compiled-in one.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/rpc"
	"os"
	"os/exec"
	"time"

	"github.com/containifyci/smartchecker/pkg/checker"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// Handshake is shared by the host and module binaries.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SMARTCHECKER_PLUGIN",
	MagicCookieValue: "checkmodule",
}

// PluginName is the name a module binary is dispensed under.
const PluginName = "module"

// PluginMap is the map of plugins the host can dispense.
var PluginMap = map[string]plugin.Plugin{
	PluginName: &ModulePlugin{},
}

// ModulePlugin is the go-plugin glue for checker.Module. Impl is only set on
// the module side.
type ModulePlugin struct {
	Impl checker.Module
}

func (p *ModulePlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

func (ModulePlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// RunArgs carries a snapshot of the diagnostic context to the module process.
type RunArgs struct {
	Logfile  string
	Element  checker.Element
	Values   map[string]string
	Debug    bool
	Deadline time.Time
}

// RunReply carries the verdict back along with the context entries the
// module published.
type RunReply struct {
	Result    checker.Result
	Published map[string]string
	Element   *checker.Element
}

// RPCServer runs in the module process.
type RPCServer struct {
	Impl checker.Module
}

func (s *RPCServer) Metadata(_ interface{}, resp *checker.Metadata) error {
	*resp = s.Impl.Metadata()
	return nil
}

func (s *RPCServer) Run(args RunArgs, resp *RunReply) error {
	dc := checker.NewContext()
	for k, v := range args.Values {
		dc.Set(k, v)
	}
	if args.Element.Hostname != "" {
		dc.SetElement(args.Element)
	}
	dc.Set(checker.KeyDebug, args.Debug)

	ctx := context.Background()
	if !args.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, args.Deadline)
		defer cancel()
	}

	resp.Result = s.Impl.Run(ctx, dc, args.Logfile)
	resp.Published = make(map[string]string)
	for k, v := range dc.Strings() {
		if old, ok := args.Values[k]; !ok || old != v {
			resp.Published[k] = v
		}
	}
	if e, ok := dc.Element(); ok && e != args.Element {
		resp.Element = &e
	}
	return nil
}

// RPCClient is the host side of a module process.
type RPCClient struct {
	client *rpc.Client
}

func (c *RPCClient) Metadata() (checker.Metadata, error) {
	var meta checker.Metadata
	err := c.client.Call("Plugin.Metadata", new(interface{}), &meta)
	return meta, err
}

// Run sends the context snapshot, waits for the verdict or ctx, and applies
// what the module published to dc.
func (c *RPCClient) Run(ctx context.Context, dc *checker.Context, logfile string) (checker.Result, error) {
	args := RunArgs{
		Logfile: logfile,
		Values:  dc.Strings(),
		Debug:   dc.Bool(checker.KeyDebug),
	}
	if e, ok := dc.Element(); ok {
		args.Element = e
	}
	if deadline, ok := ctx.Deadline(); ok {
		args.Deadline = deadline
	}

	var reply RunReply
	call := c.client.Go("Plugin.Run", args, &reply, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
	case <-ctx.Done():
		return checker.Result{}, ctx.Err()
	}
	if call.Error != nil {
		return checker.Result{}, call.Error
	}

	for k, v := range reply.Published {
		dc.Set(k, v)
	}
	if reply.Element != nil {
		dc.SetElement(*reply.Element)
	}
	return reply.Result, nil
}

// Module adapts a module process to checker.Module. Its metadata is fetched
// once when the plugin is loaded.
type Module struct {
	meta   checker.Metadata
	remote *RPCClient
}

// NewModule fetches and validates the metadata of a dispensed plugin.
func NewModule(raw interface{}) (*Module, error) {
	remote, ok := raw.(*RPCClient)
	if !ok {
		return nil, fmt.Errorf("unexpected plugin type %T", raw)
	}
	meta, err := remote.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to read module metadata: %w", err)
	}
	m := &Module{meta: meta, remote: remote}
	if err := checker.ValidateModule(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) Metadata() checker.Metadata {
	return m.meta
}

func (m *Module) Run(ctx context.Context, dc *checker.Context, logfile string) checker.Result {
	r, err := m.remote.Run(ctx, dc, logfile)
	if err != nil {
		r = checker.NewResult(m.meta.Name)
		r.Abort(&checker.ModuleExecutionError{ModuleID: m.meta.ID, Cause: err})
	}
	return r
}

// Load starts the module binary at path. The returned function stops it.
func Load(path string, logger hclog.Logger) (*Module, func(), error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap,
		Cmd:              exec.Command(path),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Stderr:           os.Stderr,
		Logger:           logger,
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("failed to start plugin %s: %w", path, err)
	}
	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("failed to dispense plugin %s: %w", path, err)
	}
	m, err := NewModule(raw)
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugin %s: %w", path, err)
	}
	return m, client.Kill, nil
}

// LoadAll loads every plugin and registers it into reg. Any failure stops
// the plugins started so far and is reported as a resolution error.
func LoadAll(checklist string, paths []string, reg *checker.Registry, logger hclog.Logger) (func(), error) {
	var stops []func()
	stopAll := func() {
		for _, stop := range stops {
			stop()
		}
	}

	var errs []error
	for _, path := range paths {
		m, stop, err := Load(path, logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stops = append(stops, stop)
		if err := reg.Register(m); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		stopAll()
		return func() {}, checker.NewResolutionError(checklist, errors.Join(errs...))
	}
	return stopAll, nil
}

// Serve runs m as a plugin. It is called from the main function of a module
// binary and does not return.
func Serve(m checker.Module) {
	logger := hclog.New(&hclog.LoggerOptions{
		Level:           hclog.Error,
		Output:          os.Stderr,
		IncludeLocation: true,
	})

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Logger:          logger,
		Plugins: map[string]plugin.Plugin{
			PluginName: &ModulePlugin{Impl: m},
		},
	})
}
