package flow

import "github.com/jask/creditofacil/internal/api"

// Screen identifies a wizard step. The zero value is Initial.
type Screen int

const (
	Initial Screen = iota
	Registration
	CreditAnalysis
	Simulation
	Contract
	Release
)

var screenOrder = []Screen{Initial, Registration, CreditAnalysis, Simulation, Contract, Release}

var screenNames = map[Screen]string{
	Initial:        "initial",
	Registration:   "registration",
	CreditAnalysis: "credit_analysis",
	Simulation:     "simulation",
	Contract:       "contract",
	Release:        "release",
}

func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return "unknown"
}

// Position is the 1-based step number used in the footer.
func (s Screen) Position() int {
	for i, candidate := range screenOrder {
		if candidate == s {
			return i + 1
		}
	}
	return 0
}

// Steps is the number of screens in the wizard.
func Steps() int { return len(screenOrder) }

// back maps a screen to its predecessor. Screens missing from the table
// (Initial, Release, anything unknown) go back to Initial.
var back = map[Screen]Screen{
	Registration:   Initial,
	CreditAnalysis: Registration,
	Simulation:     CreditAnalysis,
	Contract:       Simulation,
}

// Action names the event that caused a transition.
type Action string

const (
	ActionStart                Action = "start"
	ActionCompleteRegistration Action = "complete_registration"
	ActionCompleteAnalysis     Action = "complete_analysis"
	ActionCompleteSimulation   Action = "complete_simulation"
	ActionCompleteContract     Action = "complete_contract"
	ActionRestart              Action = "restart"
	ActionBack                 Action = "back"
)

// Transition describes one controller step; it is handed to listeners after
// the state has been updated.
type Transition struct {
	From   Screen
	To     Screen
	Action Action
	State  WizardState
}

// WizardState is everything accumulated while walking the wizard.
type WizardState struct {
	Screen   Screen
	Customer *api.Customer
	Analysis *api.CreditAnalysis
	Loan     *api.Loan
}

// Controller owns the wizard state. It is not safe for concurrent use; the
// TUI only touches it from its update loop.
type Controller struct {
	state     WizardState
	listeners []func(Transition)
}

// Option configures a Controller.
type Option func(*Controller)

// OnTransition registers fn to be called after every transition.
func OnTransition(fn func(Transition)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.listeners = append(c.listeners, fn)
		}
	}
}

func New(opts ...Option) *Controller {
	c := &Controller{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Screen() Screen { return c.state.Screen }

// State returns a copy of the current state. Records are copied too so
// callers cannot mutate the controller through the pointers.
func (c *Controller) State() WizardState {
	return c.state.clone()
}

func (c *Controller) Start() {
	c.move(Registration, ActionStart)
}

func (c *Controller) CompleteRegistration(customer api.Customer) {
	c.state.Customer = &customer
	c.move(CreditAnalysis, ActionCompleteRegistration)
}

func (c *Controller) CompleteAnalysis(analysis api.CreditAnalysis) {
	c.state.Analysis = &analysis
	c.move(Simulation, ActionCompleteAnalysis)
}

func (c *Controller) CompleteSimulation(loan api.Loan) {
	c.state.Loan = &loan
	c.move(Contract, ActionCompleteSimulation)
}

// CompleteContract overwrites the loan with the signed (approved) record.
func (c *Controller) CompleteContract(loan api.Loan) {
	c.state.Loan = &loan
	c.move(Release, ActionCompleteContract)
}

func (c *Controller) Restart() {
	c.state.Customer = nil
	c.state.Analysis = nil
	c.state.Loan = nil
	c.move(Initial, ActionRestart)
}

// Back steps to the previous screen without touching stored records.
func (c *Controller) Back() {
	c.move(back[c.state.Screen], ActionBack)
}

func (c *Controller) move(to Screen, action Action) {
	from := c.state.Screen
	c.state.Screen = to
	if len(c.listeners) == 0 {
		return
	}
	t := Transition{From: from, To: to, Action: action, State: c.state.clone()}
	for _, fn := range c.listeners {
		fn(t)
	}
}

func (s WizardState) clone() WizardState {
	out := WizardState{Screen: s.Screen}
	if s.Customer != nil {
		cust := *s.Customer
		out.Customer = &cust
	}
	if s.Analysis != nil {
		a := *s.Analysis
		out.Analysis = &a
	}
	if s.Loan != nil {
		l := *s.Loan
		out.Loan = &l
	}
	return out
}
