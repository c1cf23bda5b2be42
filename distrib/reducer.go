package distrib

import "context"
import "sync"

import "google.golang.org/grpc"
import "google.golang.org/grpc/codes"
import "google.golang.org/grpc/status"
import "google.golang.org/protobuf/types/known/structpb"

const averageMethod = "/diffar.distrib.Reducer/Average"

type reducerServer interface {
	Average(ctx context.Context, in *structpb.Struct) (*structpb.ListValue, error)
}

var reducerDesc = grpc.ServiceDesc{
	ServiceName: "diffar.distrib.Reducer",
	HandlerType: (*reducerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Average", Handler: averageHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "distrib/reducer",
}

func averageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(reducerServer).Average(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: averageMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(reducerServer).Average(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// contribution encodes one replica's vector for a round
func contribution(rank, round int, values []float64) *structpb.Struct {
	list := make([]*structpb.Value, len(values))
	for i, v := range values {
		list[i] = structpb.NewNumberValue(v)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"rank":   structpb.NewNumberValue(float64(rank)),
		"round":  structpb.NewNumberValue(float64(round)),
		"values": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}

func numbers(list *structpb.ListValue) []float64 {
	out := make([]float64, len(list.GetValues()))
	for i, v := range list.GetValues() {
		out[i] = v.GetNumberValue()
	}
	return out
}

type round struct {
	sum    []float64
	seen   map[int]bool
	done   chan struct{}
	result []float64
	err    error
}

// reducer is the rendezvous point hosted by rank 0
type reducer struct {
	world int
	quit  chan struct{}

	mu     sync.Mutex
	rounds map[int]*round
}

func newReducer(world int) *reducer {
	return &reducer{world: world, quit: make(chan struct{}), rounds: make(map[int]*round)}
}

func (r *reducer) Average(ctx context.Context, in *structpb.Struct) (*structpb.ListValue, error) {
	fields := in.GetFields()
	rank := int(fields["rank"].GetNumberValue())
	n := int(fields["round"].GetNumberValue())
	values := numbers(fields["values"].GetListValue())
	if rank < 0 || rank >= r.world {
		return nil, status.Errorf(codes.InvalidArgument, "rank %d outside world of %d", rank, r.world)
	}

	r.mu.Lock()
	cur, ok := r.rounds[n]
	if !ok {
		cur = &round{seen: make(map[int]bool), done: make(chan struct{})}
		r.rounds[n] = cur
		// every replica finished round n-2 before any could start round n
		delete(r.rounds, n-2)
	}
	switch {
	case cur.seen[rank]:
		r.mu.Unlock()
		return nil, status.Errorf(codes.InvalidArgument, "rank %d contributed twice to round %d", rank, n)
	case cur.err != nil:
	case cur.sum == nil && len(cur.seen) == 0:
		cur.sum = append([]float64(nil), values...)
	case len(values) != len(cur.sum):
		cur.err = status.Errorf(codes.FailedPrecondition, "round %d: rank %d sent %d values, others sent %d", n, rank, len(values), len(cur.sum))
		close(cur.done)
	default:
		for i, v := range values {
			cur.sum[i] += v
		}
	}
	cur.seen[rank] = true
	if cur.err == nil && len(cur.seen) == r.world {
		cur.result = make([]float64, len(cur.sum))
		for i, v := range cur.sum {
			cur.result[i] = v / float64(r.world)
		}
		close(cur.done)
	}
	r.mu.Unlock()

	select {
	case <-cur.done:
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	case <-r.quit:
		select {
		case <-cur.done:
		default:
			return nil, status.Error(codes.Unavailable, "reducer shutting down")
		}
	}
	if cur.err != nil {
		return nil, cur.err
	}
	out := make([]*structpb.Value, len(cur.result))
	for i, v := range cur.result {
		out[i] = structpb.NewNumberValue(v)
	}
	return &structpb.ListValue{Values: out}, nil
}
