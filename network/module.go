package network

import (
	G "gorgonia.org/gorgonia"

	"github.com/arborrl/corerl/stats"
)

// Module is the neural module contract policies and critics are built
// against: a feed-forward step, a packed-sequence step for processing a
// whole buffer.Packed batch without padding, and an iterative step for
// online per-timestep use, all sharing one set of trainable parameters.
//
// Grounded on the NeuralNet interface (network/NeuralNet.go)
// for Learnables/Model/SetInput/fwd; the packed/iterative sequence
// methods are new (the networks are purely feed-forward), so
// this module's default implementation, FeedForwardModule, treats every
// timestep as independent — a correct degenerate case of seq_packed for
// any module with no internal recurrent state, which is all this
// package currently provides.
type Module interface {
	// Forward runs the module on a batch of feature vectors packed as
	// rows of a batch x Features() matrix already bound via SetInput,
	// returning the prediction node.
	Forward() (*G.Node, error)

	// SeqPacked runs the module over a packed, variable-length-episode
	// batch (see package buffer.Packed): batchSizes[t] is how many
	// episodes still have a step at offset t. A feed-forward module
	// ignores batchSizes and just runs Forward once over every packed
	// row; a recurrent module would use it to know where to reset
	// state between episodes.
	SeqPacked(batchSizes []int) (*G.Node, error)

	// SeqIterative runs one step online, given an opaque carried state
	// (nil for a stateless/feed-forward module), over the step's
	// features already bound via SetInput, returning the output and the
	// state to carry into the next call.
	SeqIterative(state any, logger stats.Logger) (output *G.Node, newState any, err error)

	// Net exposes the underlying NeuralNet for parameter access.
	Net() NeuralNet
}

// FeedForwardModule adapts any NeuralNet into the Module contract for
// architectures with no internal recurrent state: SeqPacked and
// SeqIterative both reduce to a single Forward call, since there is no
// state to thread between steps.
type FeedForwardModule struct {
	net NeuralNet
}

func NewFeedForwardModule(net NeuralNet) *FeedForwardModule {
	return &FeedForwardModule{net: net}
}

func (f *FeedForwardModule) Forward() (*G.Node, error) {
	preds := f.net.Prediction()
	if len(preds) == 0 {
		return nil, nil
	}
	return preds[0], nil
}

func (f *FeedForwardModule) SeqPacked(batchSizes []int) (*G.Node, error) {
	return f.Forward()
}

func (f *FeedForwardModule) SeqIterative(state any, logger stats.Logger) (*G.Node, any, error) {
	out, err := f.Forward()
	return out, nil, err
}

func (f *FeedForwardModule) Net() NeuralNet { return f.net }
