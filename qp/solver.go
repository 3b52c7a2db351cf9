package qp

import (
	"log/slog"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Status is the solver exit status. Anything other than StatusSolved means
// the primal returned is a best-effort iterate.
type Status int

const (
	StatusUnsolved   Status = 0
	StatusSolved     Status = 1
	StatusMaxIter    Status = 2
	StatusInfeasible Status = 3
	StatusTimeLimit  Status = 4
	StatusError      Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusMaxIter:
		return "max iterations exceeded"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeLimit:
		return "time limit exceeded"
	case StatusError:
		return "internal error"
	}
	return "unsolved"
}

var (
	ErrInfeasible      = errors.New("qp infeasible")
	ErrMaxIterExceeded = errors.New("qp max iterations exceeded")
	ErrTimeLimit       = errors.New("qp time limit exceeded")
	ErrSolverInternal  = errors.New("qp solver internal error")
	ErrPatternChanged  = errors.New("qp matrix sparsity pattern changed")
)

// Settings tune the ADMM iteration. EpsAbs is the absolute tolerance on the
// primal and dual residuals.
type Settings struct {
	EpsAbs    float64
	EpsRel    float64
	Rho       float64
	Sigma     float64
	Alpha     float64
	MaxIter   int
	TimeLimit time.Duration
}

// DefaultSettings returns the iteration defaults with the given absolute
// tolerance.
func DefaultSettings(epsAbs float64) Settings {
	return Settings{
		EpsAbs:  epsAbs,
		EpsRel:  1e-5,
		Rho:     0.1,
		Sigma:   1e-6,
		Alpha:   1.6,
		MaxIter: 20000,
	}
}

// Result carries the solution of one Optimize call.
type Result struct {
	Primal       []float64
	Dual         []float64
	Status       Status
	Iterations   int
	PolishStatus int
	RunTime      time.Duration
}

// residuals are checked every checkInterval iterations; termination checks
// dominate the per-iteration cost otherwise.
const checkInterval = 25

// equalityRhoScale stiffens the penalty on rows with l == u so equality
// constraints are satisfied to much tighter accuracy than inequalities.
const equalityRhoScale = 1e3

// Solver owns the problem data and the factorized KKT system. The CSC
// buffers passed in are retained; callers must not mutate them after
// construction. One Solver instance must not be shared across goroutines.
type Solver struct {
	n int // variables
	m int // constraint rows

	p CSCMatrix // upper-trapezoidal objective matrix
	a CSCMatrix // constraint matrix
	q []float64
	l []float64
	u []float64

	settings Settings
	rho      float64
	rhoVec   []float64

	kkt        *mat.Dense
	lu         mat.LU
	factorized bool

	// iterates, retained across solves for warm starting
	x []float64
	z []float64
	y []float64

	warmStarted bool
}

// New builds a solver for min 1/2 x'Px + q'x s.t. l <= Ax <= u. P must be in
// upper-trapezoidal CSC form, A in general CSC form.
func New(p, a CSCMatrix, q, l, u []float64, settings Settings) (*Solver, error) {
	n := p.Cols
	m := a.Rows
	if p.Rows != n {
		return nil, errors.Errorf("could not create qp solver: P is %dx%d, want square", p.Rows, p.Cols)
	}
	if a.Cols != n {
		return nil, errors.Errorf("could not create qp solver: A has %d columns, want %d", a.Cols, n)
	}
	if len(q) != n || len(l) != m || len(u) != m {
		return nil, errors.Errorf("could not create qp solver: dimension mismatch q=%d l=%d u=%d (n=%d m=%d)", len(q), len(l), len(u), n, m)
	}
	if settings.MaxIter <= 0 || settings.Rho <= 0 || settings.Sigma <= 0 {
		return nil, errors.New("could not create qp solver: invalid settings")
	}

	s := &Solver{
		n:        n,
		m:        m,
		p:        p,
		a:        a,
		q:        append([]float64(nil), q...),
		l:        append([]float64(nil), l...),
		u:        append([]float64(nil), u...),
		settings: settings,
		x:        make([]float64, n),
		z:        make([]float64, m),
		y:        make([]float64, m),
	}
	s.rho = settings.Rho
	s.updateRhoVec()
	return s, nil
}

func (s *Solver) updateRhoVec() {
	s.rhoVec = make([]float64, s.m)
	for i := 0; i < s.m; i++ {
		rho := s.rho
		if s.l[i] == s.u[i] {
			rho *= equalityRhoScale
		}
		s.rhoVec[i] = rho
	}
	s.factorized = false
}

// adaptRho rebalances the penalty when the primal and dual residuals drift
// apart, trading a refactorization for much faster convergence on badly
// scaled problems.
func (s *Solver) adaptRho(rPrim, rDual, epsPrim, epsDual float64) bool {
	primScaled := rPrim / math.Max(epsPrim, 1e-12)
	dualScaled := rDual / math.Max(epsDual, 1e-12)
	ratio := math.Sqrt(primScaled / math.Max(dualScaled, 1e-12))
	if ratio < 5 && ratio > 1.0/5 {
		return false
	}
	s.rho = math.Min(1e6, math.Max(1e-6, s.rho*ratio))
	s.updateRhoVec()
	return true
}

// factorize assembles and LU-factorizes the quasi-definite KKT matrix
//
//	[ P + sigma*I   A'            ]
//	[ A             -diag(1/rho)  ]
func (s *Solver) factorize() error {
	dim := s.n + s.m
	s.kkt = mat.NewDense(dim, dim, nil)

	for j := 0; j < s.n; j++ {
		for k := s.p.ColPtrs[j]; k < s.p.ColPtrs[j+1]; k++ {
			i := int(s.p.RowIdxs[k])
			s.kkt.Set(i, j, s.p.Vals[k])
			if i != j {
				s.kkt.Set(j, i, s.p.Vals[k])
			}
		}
		s.kkt.Set(j, j, s.kkt.At(j, j)+s.settings.Sigma)
	}
	for j := 0; j < s.a.Cols; j++ {
		for k := s.a.ColPtrs[j]; k < s.a.ColPtrs[j+1]; k++ {
			i := int(s.a.RowIdxs[k])
			s.kkt.Set(s.n+i, j, s.a.Vals[k])
			s.kkt.Set(j, s.n+i, s.a.Vals[k])
		}
	}
	for i := 0; i < s.m; i++ {
		s.kkt.Set(s.n+i, s.n+i, -1/s.rhoVec[i])
	}

	s.lu.Factorize(s.kkt)
	if s.lu.Cond() > 1/1e-16 || math.IsNaN(s.lu.Cond()) {
		return errors.Wrap(ErrSolverInternal, "could not factorize kkt system")
	}
	s.factorized = true
	return nil
}

// SetWarmStart seeds the primal and, optionally, dual iterates for the next
// Optimize call.
func (s *Solver) SetWarmStart(primal, dual []float64) error {
	if len(primal) != s.n {
		return errors.Errorf("could not warm start: primal has %d entries, want %d", len(primal), s.n)
	}
	if dual != nil && len(dual) != s.m {
		return errors.Errorf("could not warm start: dual has %d entries, want %d", len(dual), s.m)
	}
	copy(s.x, primal)
	if dual != nil {
		copy(s.y, dual)
	} else {
		for i := range s.y {
			s.y[i] = 0
		}
	}
	s.a.mulVec(s.z, s.x)
	s.warmStarted = true
	return nil
}

// UpdateCscP replaces the objective matrix values. The sparsity pattern must
// match the one the solver was constructed with; a changed pattern requires
// a new Solver.
func (s *Solver) UpdateCscP(p CSCMatrix) error {
	if !s.p.SamePattern(p) {
		return ErrPatternChanged
	}
	s.p = p
	s.factorized = false
	return nil
}

// UpdateCscA replaces the constraint matrix values under the same pattern
// restriction as UpdateCscP.
func (s *Solver) UpdateCscA(a CSCMatrix) error {
	if !s.a.SamePattern(a) {
		return ErrPatternChanged
	}
	s.a = a
	s.factorized = false
	return nil
}

// UpdateQ replaces the linear objective term.
func (s *Solver) UpdateQ(q []float64) error {
	if len(q) != s.n {
		return errors.Errorf("could not update q: %d entries, want %d", len(q), s.n)
	}
	copy(s.q, q)
	return nil
}

// UpdateBounds replaces the constraint bounds. Rows switching between
// equality and inequality change the penalty vector, which forces a
// refactorization.
func (s *Solver) UpdateBounds(l, u []float64) error {
	if len(l) != s.m || len(u) != s.m {
		return errors.Errorf("could not update bounds: l=%d u=%d entries, want %d", len(l), len(u), s.m)
	}
	refactor := false
	for i := 0; i < s.m; i++ {
		if (s.l[i] == s.u[i]) != (l[i] == u[i]) {
			refactor = true
			break
		}
	}
	copy(s.l, l)
	copy(s.u, u)
	if refactor {
		s.updateRhoVec()
	}
	return nil
}

// NumVariables returns n, the primal dimension.
func (s *Solver) NumVariables() int { return s.n }

// NumConstraints returns m, the number of constraint rows.
func (s *Solver) NumConstraints() int { return s.m }

// Optimize runs the ADMM iteration to the configured tolerance. On
// non-solved statuses the returned Result still holds the last iterate and a
// matching sentinel error is returned.
func (s *Solver) Optimize() (Result, error) {
	start := time.Now()

	for i := 0; i < s.m; i++ {
		if s.l[i] > s.u[i] {
			return s.result(StatusInfeasible, 0, start), errors.Wrapf(ErrInfeasible, "row %d has l=%g > u=%g", i, s.l[i], s.u[i])
		}
	}

	if !s.factorized {
		if err := s.factorize(); err != nil {
			return s.result(StatusError, 0, start), err
		}
	}

	dim := s.n + s.m
	rhs := mat.NewVecDense(dim, nil)
	sol := mat.NewVecDense(dim, nil)
	xPrev := make([]float64, s.n)
	zPrev := make([]float64, s.m)
	zTilde := make([]float64, s.m)

	alpha := s.settings.Alpha

	iter := 0
	for iter = 1; iter <= s.settings.MaxIter; iter++ {
		copy(xPrev, s.x)
		copy(zPrev, s.z)

		for j := 0; j < s.n; j++ {
			rhs.SetVec(j, s.settings.Sigma*xPrev[j]-s.q[j])
		}
		for i := 0; i < s.m; i++ {
			rhs.SetVec(s.n+i, zPrev[i]-s.y[i]/s.rhoVec[i])
		}
		if err := s.lu.SolveVecTo(sol, false, rhs); err != nil {
			return s.result(StatusError, iter, start), errors.Wrap(ErrSolverInternal, "could not solve kkt system")
		}

		for i := 0; i < s.m; i++ {
			zTilde[i] = zPrev[i] + (sol.AtVec(s.n+i)-s.y[i])/s.rhoVec[i]
		}
		for j := 0; j < s.n; j++ {
			s.x[j] = alpha*sol.AtVec(j) + (1-alpha)*xPrev[j]
		}
		for i := 0; i < s.m; i++ {
			zRelaxed := alpha*zTilde[i] + (1-alpha)*zPrev[i]
			zCand := zRelaxed + s.y[i]/s.rhoVec[i]
			s.z[i] = math.Max(s.l[i], math.Min(s.u[i], zCand))
			s.y[i] += s.rhoVec[i] * (zRelaxed - s.z[i])
		}

		if iter%checkInterval == 0 || iter == s.settings.MaxIter {
			rPrim, rDual, epsPrim, epsDual := s.residuals()
			if math.IsNaN(rPrim) || math.IsNaN(rDual) {
				return s.result(StatusError, iter, start), errors.Wrap(ErrSolverInternal, "iteration diverged")
			}
			if rPrim <= epsPrim && rDual <= epsDual {
				res := s.result(StatusSolved, iter, start)
				res.PolishStatus = 1
				return res, nil
			}
			if s.settings.TimeLimit > 0 && time.Since(start) > s.settings.TimeLimit {
				return s.result(StatusTimeLimit, iter, start), errors.Wrapf(ErrTimeLimit, "after %d iterations", iter)
			}
			if iter%(checkInterval*4) == 0 && s.adaptRho(rPrim, rDual, epsPrim, epsDual) {
				if err := s.factorize(); err != nil {
					return s.result(StatusError, iter, start), err
				}
			}
		}
	}

	return s.result(StatusMaxIter, s.settings.MaxIter, start), errors.Wrapf(ErrMaxIterExceeded, "after %d iterations", s.settings.MaxIter)
}

func (s *Solver) residuals() (rPrim, rDual, epsPrim, epsDual float64) {
	ax := make([]float64, s.m)
	s.a.mulVec(ax, s.x)
	diff := make([]float64, s.m)
	for i := range diff {
		diff[i] = ax[i] - s.z[i]
	}
	rPrim = infNorm(diff)

	px := make([]float64, s.n)
	s.p.symMulVec(px, s.x)
	aty := make([]float64, s.n)
	s.a.mulVecT(aty, s.y)
	dual := make([]float64, s.n)
	for j := range dual {
		dual[j] = px[j] + s.q[j] + aty[j]
	}
	rDual = infNorm(dual)

	epsPrim = s.settings.EpsAbs + s.settings.EpsRel*math.Max(infNorm(ax), infNorm(s.z))
	epsDual = s.settings.EpsAbs + s.settings.EpsRel*math.Max(math.Max(infNorm(px), infNorm(aty)), infNorm(s.q))
	return rPrim, rDual, epsPrim, epsDual
}

func (s *Solver) result(status Status, iters int, start time.Time) Result {
	return Result{
		Primal:     append([]float64(nil), s.x...),
		Dual:       append([]float64(nil), s.y...),
		Status:     status,
		Iterations: iters,
		RunTime:    time.Since(start),
	}
}

// LogUnsolvedStatus emits a debug line describing a failed solve.
func (s *Solver) LogUnsolvedStatus(prefix string, res Result) {
	slog.Debug(prefix,
		"status", res.Status.String(),
		"iterations", res.Iterations,
		"runtime", res.RunTime,
		"variables", s.n,
		"constraints", s.m,
	)
}
