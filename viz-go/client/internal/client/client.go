package client

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/config"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/export"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/history"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/modelinfo"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/network"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/predict"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/trainmetrics"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/trainstream"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/viewstate"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/ws"
	"github.com/RayAKaan/NN-Visualizer/viz-golib/errors"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const (
	// tickInterval must be >= tickTimeout
	componentTickInterval = 15 * time.Second
	componentTickTimeout  = 10 * time.Second
)

// Options contains options for the client
type Options struct {
	Configuration config.Configuration

	// allows tests to inject a scripted network manager
	Network component.NetworkManager
}

// Client is the local daemon core: it brokers the model-serving backend to
// local UI interfaces, holding all components together.
type Client struct {
	URL           *url.URL
	Configuration config.Configuration

	components *component.Manager

	Network   component.NetworkManager
	Arbiter   *viewstate.Arbiter
	Stream    *trainstream.Manager
	Predict   *predict.Manager
	History   *history.Store
	Metrics   *trainmetrics.Accumulator
	ModelInfo *modelinfo.Manager
	Sockets   *ws.Manager

	mu     sync.Mutex
	server *http.Server
	cancel context.CancelFunc
}

// NewClient builds and registers all components. Nothing is started until
// Initialize and Serve are called.
func NewClient(opts Options) (*Client, error) {
	componentMgr := component.NewManager()

	localURL, err := url.Parse(fmt.Sprintf("http://127.0.0.1:%d", opts.Configuration.LocalPort))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid local port %d", opts.Configuration.LocalPort)
	}

	networkMgr := opts.Network
	if networkMgr == nil {
		networkMgr = network.NewManager(componentMgr)
	}

	arbiter := viewstate.NewArbiter(componentMgr)
	metrics := trainmetrics.NewAccumulator(trainmetrics.DefaultCap)
	stream := trainstream.NewManager(componentMgr, metrics, arbiter)
	predictor := predict.NewManager()
	store := history.NewStore(arbiter)
	models := modelinfo.NewManager()
	sockets := ws.NewManager()
	exporter := export.NewManager(metrics)

	c := &Client{
		URL:           localURL,
		Configuration: opts.Configuration,
		components:    componentMgr,
		Network:       networkMgr,
		Arbiter:       arbiter,
		Stream:        stream,
		Predict:       predictor,
		History:       store,
		Metrics:       metrics,
		ModelInfo:     models,
		Sockets:       sockets,
	}

	for _, comp := range []component.Core{
		networkMgr,
		arbiter,
		stream,
		predictor,
		store,
		models,
		sockets,
		exporter,
	} {
		if err := componentMgr.Add(comp); err != nil {
			return nil, errors.Wrapf(err, "error adding component %s", comp.Name())
		}
	}
	return c, nil
}

// AddComponent adds a new component to the Client
func (c *Client) AddComponent(comp component.Core) error {
	return c.components.Add(comp)
}

// Components returns all components which were added to the component manager
func (c *Client) Components() []component.Core {
	return c.components.Components()
}

// TestComponentManager returns the component manager, for tests only
func (c *Client) TestComponentManager() *component.Manager {
	return c.components
}

// Initialize initializes the components registered with Client and mounts
// their HTTP routes on the router.
func (c *Client) Initialize(router *mux.Router) {
	c.components.Initialize(component.InitializerOptions{
		VizdURL:       c.URL,
		Configuration: c.Configuration,
		Network:       c.Network,
	})
	c.components.RegisterHandlers(router)
}

// Serve starts the local HTTP server and blocks until Shutdown is called or
// the listener fails. The backend training stream is dialed in the
// background; the UI talks to us regardless of backend availability.
func (c *Client) Serve() error {
	router := mux.NewRouter()
	c.Initialize(router)

	// local UIs are served from a different origin than the daemon
	handler := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	)(router)

	listener, err := net.Listen("tcp", c.URL.Host)
	if err != nil {
		return errors.Wrapf(err, "cannot listen on %s", c.URL.Host)
	}

	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Handler: gorillahandlers.LoggingHandler(logWriter{}, handler)}

	c.mu.Lock()
	c.server = server
	c.cancel = cancel
	c.mu.Unlock()

	c.Stream.Connect()
	go c.History.Fetch(ctx)
	go c.tickLoop(ctx)

	log.Println("vizd listening on", c.URL.String())
	err = server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and terminates all components. The client
// can not be reused after this method was called.
func (c *Client) Shutdown() {
	c.mu.Lock()
	server := c.server
	cancel := c.cancel
	c.server = nil
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}

	c.components.Terminate()
}

func (c *Client) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(componentTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go func() {
				tickCtx, tickCancel := context.WithTimeout(ctx, componentTickTimeout)
				defer tickCancel()
				c.components.GoTick(tickCtx)
				<-tickCtx.Done()
			}()
		}
	}
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Print(string(p))
	return len(p), nil
}
