package solver

import "math"

// AdamState holds the running first/second moment estimates for a
// plain Adam update over a []float64 parameter vector, adapting
// AdamConfig's hyperparameters to optimization loops that update
// parameters directly (e.g. a Gaussian's mean and log-variance)
// rather than through a gorgonia graph and G.Solver.
type AdamState struct {
	Config AdamConfig
	M, V   []float64
	T      int
}

// NewAdamState allocates a zeroed AdamState for a parameter vector of
// dimension n.
func NewAdamState(cfg AdamConfig, n int) *AdamState {
	return &AdamState{Config: cfg, M: make([]float64, n), V: make([]float64, n)}
}

// Step applies one bias-corrected Adam update to grad (clipping it
// first if Config.Clip > 0) and returns the per-component delta the
// caller should subtract from its parameter vector.
func (s *AdamState) Step(grad []float64) []float64 {
	s.T++
	b1, b2, eps, lr := s.Config.Beta1, s.Config.Beta2, s.Config.Epsilon, s.Config.StepSize
	delta := make([]float64, len(grad))
	for i, g := range grad {
		if s.Config.Clip > 0 {
			if g > s.Config.Clip {
				g = s.Config.Clip
			} else if g < -s.Config.Clip {
				g = -s.Config.Clip
			}
		}
		s.M[i] = b1*s.M[i] + (1-b1)*g
		s.V[i] = b2*s.V[i] + (1-b2)*g*g
		mHat := s.M[i] / (1 - math.Pow(b1, float64(s.T)))
		vHat := s.V[i] / (1 - math.Pow(b2, float64(s.T)))
		delta[i] = lr * mHat / (math.Sqrt(vHat) + eps)
	}
	return delta
}
