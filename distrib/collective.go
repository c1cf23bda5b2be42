package distrib

import "context"
import "errors"
import "fmt"
import "os"
import "os/signal"
import "sync"
import "syscall"

// ErrClosed is returned by Average after Close
var ErrClosed = errors.New("collective closed")

// Collective reduces values across replicas
type Collective interface {
	Rank() int
	WorldSize() int
	// Average blocks until every replica contributed a vector for this
	// round and returns their element-wise mean.
	Average(ctx context.Context, values []float64) ([]float64, error)
	Close() error
}

type local struct {
	mu     sync.Mutex
	closed bool
}

// Local is the collective of a single replica
func Local() Collective {
	return &local{}
}

func (*local) Rank() int      { return 0 }
func (*local) WorldSize() int { return 1 }

func (l *local) Average(ctx context.Context, values []float64) ([]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]float64(nil), values...), nil
}

func (l *local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Run calls fn and tears the collective down afterwards, whether fn returns,
// fails, panics or the process is interrupted. The error of fn is joined
// with any teardown error.
func Run(ctx context.Context, c Collective, fn func(ctx context.Context) error) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("replica %d panicked: %v", c.Rank(), r)
		}
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("collective teardown: %w", cerr))
		}
	}()
	return fn(ctx)
}
