package mpt

import (
	"log/slog"
	m "math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"pathd.dev/pathd/geom"
	"pathd.dev/pathd/qp"
)

// minSpeedForRateLimit floors the speed used to convert the steering rate
// limit into a per-segment steering delta, so a standstill path still gets
// a finite constraint.
const minSpeedForRateLimit = 0.1

// Diagnostics reports how the last QP solve went.
type Diagnostics struct {
	Status      string
	Iterations  int
	SolveTime   time.Duration
	WarmStarted bool
	NumRefs     int
}

// Optimizer computes a collision-free trajectory by quadratic programming
// over the steering inputs along the horizon. It retains the previous primal
// and dual solution plus reference points across ticks for warm starting;
// all state is owned by one planning goroutine.
type Optimizer struct {
	param      Param
	egoNearest EgoNearestParam
	vehicle    geom.VehicleInfo

	gen    *StateEquationGenerator
	solver *qp.Solver

	prevSolution  []float64
	prevDual      []float64
	prevRefPoints []ReferencePoint

	refPoints []ReferencePoint
	diag      Diagnostics
}

func NewOptimizer(param Param, egoNearest EgoNearestParam, vehicle geom.VehicleInfo) *Optimizer {
	model := NewVehicleModel(vehicle.WheelBase, vehicle.MaxSteerAngle)
	return &Optimizer{
		param:      param,
		egoNearest: egoNearest,
		vehicle:    vehicle,
		gen:        NewStateEquationGenerator(model),
	}
}

// ReferencePoints returns the reference points of the last Optimize call.
func (o *Optimizer) ReferencePoints() []ReferencePoint { return o.refPoints }

// LastDiagnostics returns QP statistics of the last Optimize call.
func (o *Optimizer) LastDiagnostics() Diagnostics { return o.diag }

// ResetWarmStart drops the cross-tick solution memory; the next solve runs
// cold.
func (o *Optimizer) ResetWarmStart() {
	o.prevSolution = nil
	o.prevDual = nil
	o.prevRefPoints = nil
}

// problem is one assembled QP instance.
type problem struct {
	p qp.CSCMatrix
	a qp.CSCMatrix
	q []float64
	l []float64
	u []float64
}

// Optimize runs one planning tick: sample reference points, derive bounds,
// assemble and solve the QP, and convert the optimized kinematic states
// back to trajectory points.
func (o *Optimizer) Optimize(
	trajPoints []geom.TrajectoryPoint,
	leftBound, rightBound []geom.Point,
	egoPose geom.Pose,
	egoVelocity float64,
) ([]geom.TrajectoryPoint, error) {
	refs, goalReached, err := o.generateReferencePoints(trajPoints)
	if err != nil {
		return nil, err
	}
	o.updateBounds(refs, leftBound, rightBound)
	o.updateAvoidanceCost(refs)
	fixIdx := o.updateFixedPoint(refs, egoPose)

	initial := KinematicState{}
	if fixIdx == 0 {
		initial = *refs[0].FixedKinematicState
	}
	se := o.gen.CalcMatrix(refs, initial)

	prob := o.assembleQP(refs, se, goalReached, fixIdx, egoVelocity)
	res, err := o.solveQP(prob, len(refs))
	o.refPoints = refs
	if err != nil {
		o.ResetWarmStart()
		return nil, err
	}

	o.unpack(refs, se, res.Primal)

	if o.param.EnableTerminalConstraint {
		last := refs[len(refs)-1].OptimizedKinematicState
		if m.Abs(last.Lat) > o.param.TerminalLatErrorThreshold ||
			m.Abs(last.Yaw) > o.param.TerminalYawErrorThreshold {
			o.ResetWarmStart()
			return nil, errors.Errorf(
				"terminal state out of tolerance: lat=%.3f yaw=%.3f", last.Lat, last.Yaw)
		}
	}

	o.prevSolution = res.Primal
	o.prevDual = res.Dual
	o.prevRefPoints = refs

	return o.convertToTrajectory(refs), nil
}

// assembleQP builds P, q, A, l, u over the decision vector
// [steer_0..steer_{N-2}, slack_0..slack_{N-1}, s_inf]: steering inputs per
// segment, a soft collision-free slack per point, and one L-infinity slack
// bounding the largest lateral error.
func (o *Optimizer) assembleQP(refs []ReferencePoint, se StateEquation, goalReached bool, fixIdx int, egoVelocity float64) problem {
	nRef := len(refs)
	dx := o.gen.DimX()
	nx := nRef * dx
	ns := nRef - 1 // steering inputs
	n := ns + nRef + 1

	idxSlack := func(i int) int { return ns + i }
	idxLInf := ns + nRef

	// Tracking weights per point, substituted through X = B*U + W.
	q := mat.NewDense(nx, nx, nil)
	for i := 0; i < nRef; i++ {
		wLat := o.param.LatErrorWeight
		wYaw := o.param.YawErrorWeight
		if o.param.EnableAvoidance {
			c := refs[i].NormalizedAvoidanceCost
			wLat = wLat*(1-c) + o.param.AvoidanceLatErrorWeight*c
			wYaw = wYaw*(1-c) + o.param.AvoidanceYawErrorWeight*c
		}
		if i == nRef-1 {
			if goalReached {
				wLat = o.param.GoalLatErrorWeight
				wYaw = o.param.GoalYawErrorWeight
			} else {
				wLat = o.param.TerminalLatErrorWeight
				wYaw = o.param.TerminalYawErrorWeight
			}
		}
		q.Set(i*dx, i*dx, wLat)
		q.Set(i*dx+1, i*dx+1, wYaw)
	}
	for i := 0; i+1 < nRef; i++ {
		w := o.param.YawErrorRateWeight
		yi := i*dx + 1
		yj := (i+1)*dx + 1
		q.Set(yi, yi, q.At(yi, yi)+w)
		q.Set(yj, yj, q.At(yj, yj)+w)
		q.Set(yi, yj, q.At(yi, yj)-w)
		q.Set(yj, yi, q.At(yj, yi)-w)
	}

	// Input weights: steering magnitude plus steering rate differences.
	r := mat.NewDense(ns, ns, nil)
	for k := 0; k < ns; k++ {
		r.Set(k, k, o.param.SteerInputWeight)
	}
	for k := 0; k+1 < ns; k++ {
		w := o.param.SteerRateWeight
		r.Set(k, k, r.At(k, k)+w)
		r.Set(k+1, k+1, r.At(k+1, k+1)+w)
		r.Set(k, k+1, r.At(k, k+1)-w)
		r.Set(k+1, k, r.At(k+1, k)-w)
	}

	var qb mat.Dense
	qb.Mul(q, se.B) // nx x ns
	var btqb mat.Dense
	btqb.Mul(se.B.T(), &qb) // ns x ns

	pDense := mat.NewDense(n, n, nil)
	for i := 0; i < ns; i++ {
		for j := 0; j < ns; j++ {
			pDense.Set(i, j, 2*(btqb.At(i, j)+r.At(i, j)))
		}
	}
	for i := 0; i < nRef; i++ {
		pDense.Set(idxSlack(i), idxSlack(i), 2*o.param.SoftCollisionFreeWeight)
	}
	pDense.Set(idxLInf, idxLInf, 2*o.param.LInfWeight)

	qVec := make([]float64, n)
	var qw mat.VecDense
	qw.MulVec(q, se.W) // nx
	for k := 0; k < ns; k++ {
		sum := 0.0
		for i := 0; i < nx; i++ {
			sum += se.B.At(i, k) * qw.AtVec(i)
		}
		qVec[k] = 2 * sum
	}

	// Constraint rows: soft bounds, slack positivity, L-inf envelope,
	// steering magnitude, steering rate, anchor equality.
	mRows := 5*nRef + ns + (ns - 1)
	if fixIdx >= 0 {
		mRows += dx
	}
	aDense := mat.NewDense(mRows, n, nil)
	l := make([]float64, mRows)
	u := make([]float64, mRows)
	row := 0

	latRow := func(i int) int { return i * dx }

	// lower[i] - slack_i <= X_lat[i], softened by the collision-free slack
	for i := 0; i < nRef; i++ {
		for k := 0; k < ns; k++ {
			aDense.Set(row, k, se.B.At(latRow(i), k))
		}
		aDense.Set(row, idxSlack(i), 1)
		l[row] = refs[i].Bounds.Lower - se.W.AtVec(latRow(i))
		u[row] = m.Inf(1)
		row++
	}
	// X_lat[i] <= upper[i] + slack_i
	for i := 0; i < nRef; i++ {
		for k := 0; k < ns; k++ {
			aDense.Set(row, k, se.B.At(latRow(i), k))
		}
		aDense.Set(row, idxSlack(i), -1)
		l[row] = m.Inf(-1)
		u[row] = refs[i].Bounds.Upper - se.W.AtVec(latRow(i))
		row++
	}
	// slack_i >= 0
	for i := 0; i < nRef; i++ {
		aDense.Set(row, idxSlack(i), 1)
		l[row] = 0
		u[row] = m.Inf(1)
		row++
	}
	// s_inf >= X_lat[i] and s_inf >= -X_lat[i]
	for i := 0; i < nRef; i++ {
		for k := 0; k < ns; k++ {
			aDense.Set(row, k, -se.B.At(latRow(i), k))
		}
		aDense.Set(row, idxLInf, 1)
		l[row] = se.W.AtVec(latRow(i))
		u[row] = m.Inf(1)
		row++
	}
	for i := 0; i < nRef; i++ {
		for k := 0; k < ns; k++ {
			aDense.Set(row, k, se.B.At(latRow(i), k))
		}
		aDense.Set(row, idxLInf, 1)
		l[row] = -se.W.AtVec(latRow(i))
		u[row] = m.Inf(1)
		row++
	}
	// steering magnitude
	for k := 0; k < ns; k++ {
		aDense.Set(row, k, 1)
		l[row] = -o.param.MaxSteer
		u[row] = o.param.MaxSteer
		row++
	}
	// steering rate, with dt from segment length over speed
	for k := 0; k+1 < ns; k++ {
		aDense.Set(row, k, -1)
		aDense.Set(row, k+1, 1)
		v := m.Max(m.Max(refs[k].LongitudinalVelocity, egoVelocity), minSpeedForRateLimit)
		dt := refs[k+1].DeltaArcLength / v
		l[row] = -o.param.MaxSteerRate * dt
		u[row] = o.param.MaxSteerRate * dt
		row++
	}
	// anchor: pin the fixed point's state, l = u
	if fixIdx >= 0 {
		fixed := *refs[fixIdx].FixedKinematicState
		target := []float64{fixed.Lat, fixed.Yaw}
		for d := 0; d < dx; d++ {
			xr := fixIdx*dx + d
			for k := 0; k < ns; k++ {
				aDense.Set(row, k, se.B.At(xr, k))
			}
			l[row] = target[d] - se.W.AtVec(xr)
			u[row] = l[row]
			row++
		}
	}

	return problem{
		p: qp.NewCSCMatrixTrapezoidal(pDense),
		a: qp.NewCSCMatrix(aDense),
		q: qVec,
		l: l,
		u: u,
	}
}

// solveQP runs the solver, reusing the workspace and warm start when the
// problem shape and sparsity pattern carry over from the previous tick.
func (o *Optimizer) solveQP(prob problem, nRef int) (qp.Result, error) {
	warm := false
	reused := false

	if o.solver != nil &&
		o.solver.NumVariables() == len(prob.q) &&
		o.solver.NumConstraints() == len(prob.l) {
		errP := o.solver.UpdateCscP(prob.p)
		errA := o.solver.UpdateCscA(prob.a)
		if errP == nil && errA == nil {
			if err := o.solver.UpdateQ(prob.q); err != nil {
				return qp.Result{}, err
			}
			if err := o.solver.UpdateBounds(prob.l, prob.u); err != nil {
				return qp.Result{}, err
			}
			reused = true
		}
	}

	if !reused {
		settings := qp.DefaultSettings(o.param.EpsAbs)
		settings.TimeLimit = time.Duration(o.param.MaxOptimizationTimeMS * float64(time.Millisecond))
		solver, err := qp.New(prob.p, prob.a, prob.q, prob.l, prob.u, settings)
		if err != nil {
			return qp.Result{}, errors.Wrap(err, "could not construct qp solver")
		}
		o.solver = solver
	}

	if len(o.prevSolution) == len(prob.q) && len(o.prevRefPoints) == nRef {
		if err := o.solver.SetWarmStart(o.prevSolution, o.prevDual); err == nil {
			warm = true
		}
	}

	res, err := o.solver.Optimize()
	o.diag = Diagnostics{
		Status:      res.Status.String(),
		Iterations:  res.Iterations,
		SolveTime:   res.RunTime,
		WarmStarted: warm,
		NumRefs:     nRef,
	}
	if err != nil {
		o.solver.LogUnsolvedStatus("mpt qp unsolved", res)
		return res, err
	}
	return res, nil
}

// unpack writes the optimized kinematic states and inputs back into the
// reference points via X = B*U + W.
func (o *Optimizer) unpack(refs []ReferencePoint, se StateEquation, primal []float64) {
	ns := len(refs) - 1
	uVec := mat.NewVecDense(ns, primal[:ns])
	x := o.gen.Predict(se, uVec)

	dx := o.gen.DimX()
	for i := range refs {
		refs[i].OptimizedKinematicState = KinematicState{
			Lat: x.AtVec(i * dx),
			Yaw: x.AtVec(i*dx + 1),
		}
		k := i
		if k >= ns {
			k = ns - 1
		}
		refs[i].OptimizedInput = primal[k]
	}

	slog.Debug("mpt solved",
		"refs", len(refs),
		"iterations", o.diag.Iterations,
		"warm", o.diag.WarmStarted,
		"solve_time", o.diag.SolveTime,
	)
}
