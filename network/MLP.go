package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a feed-forward multi-layer perceptron with a single
// output head. Grounded on the multiHeadMLP
// (network/MultiHeadMLP.go in the original package), narrowed to a
// single output head since every consumer in this module (policy
// logits/distribution parameters, critic value estimates) needs exactly
// one prediction tensor per forward pass.
type mlp struct {
	g         *G.ExprGraph
	layers    []Layer
	input     *G.Node
	numOutput int
	numInput  int
	batchSize int

	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// addfcLayers builds one fcLayer per entry of hiddenSizes, wiring each
// layer's input dimension to the previous layer's output dimension
// (starting from numFeatures). Grounded on the shape fcLayer itself
// exposes (weights *G.Node, bias *G.Node, act *Activation) in
// network/FullyConnected.go; the own layer-building helper
// (referenced there as addfcLayers) has no surviving definition, so this
// is a fresh construction against that visible shape.
func addfcLayers(g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, numFeatures int) ([]Layer, error) {
	if len(hiddenSizes) != len(biases) || len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("addfclayers: hiddenSizes, biases, and " +
			"activations must all have equal length")
	}

	layers := make([]Layer, len(hiddenSizes))
	in := numFeatures
	for i, out := range hiddenSizes {
		weights := G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
			G.WithName(fmt.Sprintf("fc%d/weights", i)), G.WithInit(init))

		var bias *G.Node
		if biases[i] {
			bias = G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
				G.WithName(fmt.Sprintf("fc%d/bias", i)), G.WithInit(G.Zeroes()))
		}

		layers[i] = &fcLayer{weights: weights, bias: bias, act: activations[i]}
		in = out
	}
	return layers, nil
}

// NewMLP builds a feed-forward MLP with a single output head of size
// outputs. len(hiddenSizes) hidden layers precede the output layer; the
// output layer itself is appended with no activation and a bias unit,
// matching the "always append an unactivated linear output
// layer" convention.
func NewMLP(features, batch, outputs int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, init G.InitWFn, activations []*Activation) (NeuralNet, error) {
	if len(hiddenSizes) != len(activations) || len(hiddenSizes) != len(biases) {
		return nil, fmt.Errorf("newmlp: hiddenSizes, biases, and activations " +
			"must all have equal length")
	}

	allSizes := append(append([]int{}, hiddenSizes...), outputs)
	allBiases := append(append([]bool{}, biases...), true)
	allActivations := append(append([]*Activation{}, activations...), Identity())

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	layers, err := addfcLayers(g, allSizes, allBiases, allActivations, init, features)
	if err != nil {
		return nil, fmt.Errorf("newmlp: %w", err)
	}

	net := &mlp{
		g:           g,
		layers:      layers,
		input:       input,
		numOutput:   outputs,
		numInput:    features,
		batchSize:   batch,
		hiddenSizes: allSizes,
		biases:      allBiases,
		activations: allActivations,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newmlp: could not compute forward pass: %w", err)
	}
	return net, nil
}

// NewSingleHeadMLP is an alias for NewMLP kept for call-site
// compatibility with single-output-head construction sites.
func NewSingleHeadMLP(features, batch int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, init G.InitWFn, activations []*Activation) (NeuralNet, error) {
	return NewMLP(features, batch, 1, g, hiddenSizes, biases, init, activations)
}

func (m *mlp) Graph() *G.ExprGraph { return m.g }

func (m *mlp) Clone() (NeuralNet, error) { return m.CloneWithBatch(m.batchSize) }

func (m *mlp) cloneWithInputTo(axis int, inputs []*G.Node, graph *G.ExprGraph) (NeuralNet, error) {
	for _, input := range inputs {
		if input.Graph() != graph {
			return nil, fmt.Errorf("clonewithinputto: not all inputs share the same graph")
		}
	}
	var input *G.Node
	if len(inputs) > 1 {
		input = G.Must(G.Concat(axis, inputs...))
	} else {
		input = inputs[0]
	}
	if !input.IsMatrix() {
		return nil, fmt.Errorf("clonewithinputto: input must be a matrix node")
	}

	layers := make([]Layer, len(m.layers))
	for i := range m.layers {
		layers[i] = m.layers[i].CloneTo(graph)
	}

	net := &mlp{
		g:           graph,
		layers:      layers,
		input:       input,
		numOutput:   m.numOutput,
		numInput:    m.numInput,
		batchSize:   input.Shape()[0],
		hiddenSizes: m.hiddenSizes,
		biases:      m.biases,
		activations: m.activations,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithinputto: could not clone: %w", err)
	}
	return net, nil
}

func (m *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()
	inputShape := m.input.Shape()
	batchShape := append([]int{batchSize}, inputShape[1:]...)
	input := G.NewMatrix(graph, tensor.Float64, G.WithShape(batchShape...),
		G.WithName("input"), G.WithInit(G.Zeroes()))
	return m.cloneWithInputTo(-1, []*G.Node{input}, graph)
}

func (m *mlp) BatchSize() int    { return m.batchSize }
func (m *mlp) Features() []int   { return []int{m.numInput} }
func (m *mlp) Outputs() []int    { return []int{m.numOutput} }
func (m *mlp) OutputLayers() int { return len(m.Prediction()) }

func (m *mlp) SetInput(input []float64) error {
	if len(input) != m.numInput*m.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)\n\thave(%v)",
			m.numInput*m.batchSize, len(input))
	}
	inputTensor := tensor.New(tensor.WithBacking(input), tensor.WithShape(m.input.Shape()...))
	return G.Let(m.input, inputTensor)
}

func (m *mlp) Learnables() G.Nodes {
	if m.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.Weights())
			if bias := l.Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		m.learnables = G.Nodes(learnables)
	}
	return m.learnables
}

func (m *mlp) Model() []G.ValueGrad {
	if m.model == nil {
		model := make([]G.ValueGrad, 0, len(m.Learnables()))
		for _, node := range m.Learnables() {
			model = append(model, node)
		}
		m.model = model
	}
	return m.model
}

func (m *mlp) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: layer %d: %w", i, err)
		}
	}
	m.prediction = pred
	G.Read(m.prediction, &m.predVal)
	return pred, nil
}

func (m *mlp) Output() []G.Value     { return []G.Value{m.predVal} }
func (m *mlp) Prediction() []*G.Node { return []*G.Node{m.prediction} }
