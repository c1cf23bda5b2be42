package distrib

import "context"
import "errors"
import "fmt"
import "log/slog"
import "net"
import "sync"
import "time"

import "google.golang.org/grpc"
import "google.golang.org/grpc/codes"
import "google.golang.org/grpc/credentials/insecure"
import "google.golang.org/grpc/status"
import "google.golang.org/protobuf/types/known/structpb"

// Config describes one replica of a gRPC collective
type Config struct {
	Rank      int
	WorldSize int
	// Address of the rank 0 reducer, host:port
	Address string
	// Listener overrides Address for rank 0
	Listener net.Listener
	// ShutdownTimeout bounds the graceful stop of the reducer
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// GRPC is a collective whose rounds rendezvous at a reducer served by rank 0
type GRPC struct {
	rank    int
	world   int
	timeout time.Duration
	logger  *slog.Logger

	conn    *grpc.ClientConn
	server  *grpc.Server
	reducer *reducer
	served  chan error

	mu     sync.Mutex
	round  int
	closed bool
}

// Dial joins the collective. Rank 0 starts the reducer before connecting.
func Dial(ctx context.Context, cfg Config) (*GRPC, error) {
	if cfg.WorldSize < 1 || cfg.Rank < 0 || cfg.Rank >= cfg.WorldSize {
		return nil, fmt.Errorf("invalid replica %d of world %d", cfg.Rank, cfg.WorldSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	g := &GRPC{rank: cfg.Rank, world: cfg.WorldSize, timeout: cfg.ShutdownTimeout, logger: cfg.Logger}

	addr := cfg.Address
	if cfg.Rank == 0 {
		lis := cfg.Listener
		if lis == nil {
			var err error
			lis, err = (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.Address)
			if err != nil {
				return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
			}
		}
		addr = lis.Addr().String()
		g.reducer = newReducer(cfg.WorldSize)
		g.server = grpc.NewServer()
		g.server.RegisterService(&reducerDesc, g.reducer)
		g.served = make(chan error, 1)
		go func() {
			g.served <- g.server.Serve(lis)
		}()
		g.logger.Info("reducer listening", "address", addr, "world_size", cfg.WorldSize)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		g.stopServer()
		return nil, fmt.Errorf("failed to connect to reducer at %s: %w", addr, err)
	}
	g.conn = conn
	return g, nil
}

func (g *GRPC) Rank() int      { return g.rank }
func (g *GRPC) WorldSize() int { return g.world }

// Average contributes values to the next round and waits for its mean
func (g *GRPC) Average(ctx context.Context, values []float64) ([]float64, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	n := g.round
	g.round++
	g.mu.Unlock()

	out := new(structpb.ListValue)
	err := g.conn.Invoke(ctx, averageMethod, contribution(g.rank, n, values), out, grpc.WaitForReady(true))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("collective round %d: %w", n, ctxErr)
		}
		if status.Code(err) == codes.Unavailable {
			return nil, fmt.Errorf("collective round %d: %w: %v", n, ErrClosed, err)
		}
		return nil, fmt.Errorf("collective round %d: %w", n, err)
	}
	return numbers(out), nil
}

// Close leaves the collective. On rank 0 pending rounds are released and the
// reducer stops, forcibly once the shutdown timeout passes.
func (g *GRPC) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	var err error
	if g.conn != nil {
		err = g.conn.Close()
	}
	return errors.Join(err, g.stopServer())
}

func (g *GRPC) stopServer() error {
	if g.server == nil {
		return nil
	}
	close(g.reducer.quit)
	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(g.timeout):
		g.logger.Warn("reducer did not stop in time, forcing")
		g.server.Stop()
		<-done
	}
	if err := <-g.served; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	g.logger.Debug("reducer stopped")
	return nil
}
