// Package pid implements a discrete-time PID controller.
//
// The controller integrates with plain rectangular accumulation and has no
// anti-windup clamp: a sustained one-sided error grows the integral until the
// error changes sign.
//
// Not safe for concurrent use.
package pid

// Controller is a discrete-time PID controller with a fixed time step that
// can be changed between calls.
type Controller struct {
	kp, ki, kd float64

	timeStep        float64
	inverseTimeStep float64

	integral  float64
	lastError float64
	firstRun  bool

	value float64
}

// New creates a controller. timeStep is in seconds and must be > 0.
func New(kp, ki, kd, timeStep float64) *Controller {
	return &Controller{
		kp:              kp,
		ki:              ki,
		kd:              kd,
		timeStep:        timeStep,
		inverseTimeStep: 1 / timeStep,
		firstRun:        true,
	}
}

// Control advances the controller by one time step and returns the output.
// The derivative term is 0 on the first call after New or Reset.
func (c *Controller) Control(err float64) float64 {
	derivative := (err - c.lastError) * c.inverseTimeStep
	if c.firstRun {
		derivative = 0
		c.firstRun = false
	}

	c.integral += err * c.timeStep
	c.lastError = err

	c.value = c.kp*err + c.ki*c.integral + c.kd*derivative
	return c.value
}

// ControlStep is Control with an explicit time step, which replaces the
// stored one when it differs.
func (c *Controller) ControlStep(err, timeStep float64) float64 {
	if timeStep != c.timeStep {
		c.timeStep = timeStep
		c.inverseTimeStep = 1 / timeStep
	}
	return c.Control(err)
}

// Reset clears the accumulated state. Gains and time step are kept.
func (c *Controller) Reset() {
	c.integral = 0
	c.lastError = 0
	c.firstRun = true
}

// SetGains replaces the gains without touching the accumulated state.
func (c *Controller) SetGains(kp, ki, kd float64) {
	c.kp, c.ki, c.kd = kp, ki, kd
}

// Gains returns kp, ki, kd.
func (c *Controller) Gains() (kp, ki, kd float64) {
	return c.kp, c.ki, c.kd
}

// Value returns the output of the last Control call.
func (c *Controller) Value() float64 { return c.value }

// TimeStep returns the current time step in seconds.
func (c *Controller) TimeStep() float64 { return c.timeStep }

// Integral returns the accumulated error integral.
func (c *Controller) Integral() float64 { return c.integral }
